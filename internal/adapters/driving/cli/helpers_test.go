package cli

import (
	"bytes"
	"context"
	"time"

	"github.com/warren-labs/warren/internal/core/domain"
)

type fakePluginService struct {
	infos     []domain.PluginInfo
	toggled   []string
	installed []string
	removed   []string
	settings  map[string]any
	err       error
}

func (f *fakePluginService) Bootstrap(context.Context) error { return f.err }

func (f *fakePluginService) List(context.Context) []domain.PluginInfo { return f.infos }

func (f *fakePluginService) Toggle(_ context.Context, id string) error {
	f.toggled = append(f.toggled, id)
	return f.err
}

func (f *fakePluginService) Install(_ context.Context, path string) (string, error) {
	f.installed = append(f.installed, path)
	return "weather_plugin", f.err
}

func (f *fakePluginService) Uninstall(_ context.Context, id string) error {
	f.removed = append(f.removed, id)
	return f.err
}

func (f *fakePluginService) ExecuteHook(_ context.Context, _ string, value any) (any, error) {
	return value, f.err
}

func (f *fakePluginService) SettingsSchema(context.Context, string) (map[string]any, error) {
	return map[string]any{"type": "object"}, f.err
}

func (f *fakePluginService) LoadSettings(context.Context, string) (map[string]any, error) {
	return f.settings, f.err
}

func (f *fakePluginService) SaveSettings(_ context.Context, _ string, updates map[string]any) (map[string]any, error) {
	if f.settings == nil {
		f.settings = map[string]any{}
	}
	for k, v := range updates {
		f.settings[k] = v
	}
	return f.settings, f.err
}

type fakeIngestionService struct {
	processed []string
	forgotten []string
	deleted   []string
	err       error
}

func (f *fakeIngestionService) ProcessFile(_ context.Context, path string) error {
	f.processed = append(f.processed, path)
	return f.err
}

func (f *fakeIngestionService) ProcessDocuments(context.Context, string, []domain.Document, string, string, time.Time) error {
	return f.err
}

func (f *fakeIngestionService) DeleteByFilename(_ context.Context, kbID, filename string) error {
	f.forgotten = append(f.forgotten, kbID+"/"+filename)
	return f.err
}

func (f *fakeIngestionService) DeleteKnowledgeBase(_ context.Context, kbID string) error {
	f.deleted = append(f.deleted, kbID)
	return f.err
}

type fakeChatService struct {
	reply   domain.Reply
	lastMsg string
	err     error
}

func (f *fakeChatService) Reply(_ context.Context, _ string, message string, _ []domain.ChatTurn) (domain.Reply, error) {
	f.lastMsg = message
	return f.reply, f.err
}

func (f *fakeChatService) Stream(ctx context.Context, kbID, message string, history []domain.ChatTurn, onDelta func(string)) (domain.Reply, error) {
	reply, err := f.Reply(ctx, kbID, message, history)
	if err == nil {
		onDelta(reply.Content)
	}
	return reply, err
}

type fakeKBService struct {
	kbs     []domain.KnowledgeBase
	plugins map[string][]string
	err     error
}

func (f *fakeKBService) Create(_ context.Context, name string, usePlugins []string) (domain.KnowledgeBase, error) {
	kb := domain.KnowledgeBase{ID: "kb-new", Name: name, UsePlugins: usePlugins}
	f.kbs = append(f.kbs, kb)
	return kb, f.err
}

func (f *fakeKBService) Get(_ context.Context, id string) (domain.KnowledgeBase, error) {
	for _, kb := range f.kbs {
		if kb.ID == id {
			return kb, f.err
		}
	}
	return domain.KnowledgeBase{}, domain.ErrNotFound
}

func (f *fakeKBService) List(context.Context) ([]domain.KnowledgeBase, error) {
	return f.kbs, f.err
}

func (f *fakeKBService) SetPlugins(_ context.Context, id string, usePlugins []string) error {
	if f.plugins == nil {
		f.plugins = map[string][]string{}
	}
	f.plugins[id] = usePlugins
	return f.err
}

type testServices struct {
	plugins   *fakePluginService
	ingestion *fakeIngestionService
	chat      *fakeChatService
	kbs       *fakeKBService
}

// setupTestServices wires fakes into the command tree and returns them
// plus a cleanup that unwires everything and resets flag state.
func setupTestServices() (*testServices, func()) {
	s := &testServices{
		plugins:   &fakePluginService{},
		ingestion: &fakeIngestionService{},
		chat:      &fakeChatService{},
		kbs:       &fakeKBService{},
	}
	SetServices(Services{
		Plugins:        s.plugins,
		Ingestion:      s.ingestion,
		Chat:           s.chat,
		KnowledgeBases: s.kbs,
	})

	return s, func() {
		SetServices(Services{})
		ingestKB = ""
		forgetKB = ""
		chatKB = ""
		chatStream = false
		tuiKB = ""
		kbCreatePlugins = nil
		pluginSettingsSchema = false
		pluginSettingsSet = ""
	}
}

// execute runs the root command with args and returns the combined output.
func execute(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}
