package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/warren-labs/warren/internal/core/domain"
	"github.com/warren-labs/warren/internal/core/ports/driven"
	"github.com/warren-labs/warren/internal/core/ports/driving"
)

var _ driving.KnowledgeBaseService = (*KnowledgeBaseManager)(nil)

// KnowledgeBaseManager administers knowledge base definitions. Memory
// deletion lives on the Ingestor, which owns the vector/provenance side.
type KnowledgeBaseManager struct {
	kbs driven.KnowledgeBaseStore
}

// NewKnowledgeBaseManager creates the knowledge base manager.
func NewKnowledgeBaseManager(kbs driven.KnowledgeBaseStore) *KnowledgeBaseManager {
	return &KnowledgeBaseManager{kbs: kbs}
}

// Create defines a new knowledge base with a fresh id.
func (m *KnowledgeBaseManager) Create(ctx context.Context, name string, usePlugins []string) (domain.KnowledgeBase, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.KnowledgeBase{}, fmt.Errorf("%w: knowledge base name is empty", domain.ErrInvalidInput)
	}

	kb := domain.KnowledgeBase{
		ID:         uuid.NewString(),
		Name:       name,
		UsePlugins: usePlugins,
		CreatedAt:  time.Now(),
	}
	if err := m.kbs.SaveKnowledgeBase(ctx, kb); err != nil {
		return domain.KnowledgeBase{}, err
	}
	return kb, nil
}

// Get returns one knowledge base by id.
func (m *KnowledgeBaseManager) Get(ctx context.Context, id string) (domain.KnowledgeBase, error) {
	return m.kbs.GetKnowledgeBase(ctx, id)
}

// List returns all knowledge bases.
func (m *KnowledgeBaseManager) List(ctx context.Context) ([]domain.KnowledgeBase, error) {
	return m.kbs.ListKnowledgeBases(ctx)
}

// SetPlugins replaces a knowledge base's plugin opt-in list.
func (m *KnowledgeBaseManager) SetPlugins(ctx context.Context, id string, usePlugins []string) error {
	kb, err := m.kbs.GetKnowledgeBase(ctx, id)
	if err != nil {
		return err
	}
	kb.UsePlugins = usePlugins
	return m.kbs.SaveKnowledgeBase(ctx, kb)
}
