package plugins

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/warren-labs/warren/internal/core/domain"
	"github.com/warren-labs/warren/internal/logger"
)

// Discover scans the plugin root one level deep and constructs a Plugin
// for every valid candidate folder, resolving providers from the given
// registry. Folder order (lexicographic, as returned by the OS) fixes the
// discovery order used for hook tie-breaking.
//
// Invalid candidates are logged and skipped; they never abort discovery
// of other plugins. A missing root directory is created.
func Discover(root string, reg *Registry) ([]*Plugin, error) {
	if err := os.MkdirAll(root, 0700); err != nil {
		return nil, fmt.Errorf("create plugin directory: %w", err)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read plugin directory: %w", err)
	}

	var found []*Plugin
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		id := entry.Name()
		path := filepath.Join(root, id)
		if err := validateFolder(path); err != nil {
			logger.Warn("Skipping plugin %q: %v", id, err)
			continue
		}

		provider, _ := reg.Provider(id)
		found = append(found, New(id, path, provider))
	}
	return found, nil
}

// Load constructs a single plugin from its folder under the plugin root,
// validating it the same way Discover does.
func Load(root, id string, reg *Registry) (*Plugin, error) {
	path := filepath.Join(root, id)
	if err := validateFolder(path); err != nil {
		return nil, err
	}

	provider, _ := reg.Provider(id)
	return New(id, path, provider), nil
}

// validateFolder checks that a candidate folder contains at least one
// plugin source file.
func validateFolder(path string) error {
	entries, err := os.ReadDir(path)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidPlugin, err)
	}

	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".go") {
			return nil
		}
	}
	return fmt.Errorf("%w: no plugin source files found", domain.ErrInvalidPlugin)
}
