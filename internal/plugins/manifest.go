package plugins

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/warren-labs/warren/internal/core/domain"
	"github.com/warren-labs/warren/internal/logger"
)

// manifestFilename is the optional descriptor file inside a plugin folder.
const manifestFilename = "plugin.json"

// LoadManifest reads the plugin descriptor from the given folder.
// A missing or malformed descriptor never fails the plugin load: every
// absent field falls back to a default derived from the folder name.
func LoadManifest(path, id string) domain.PluginManifest {
	manifest := defaultManifest(id)

	data, err := os.ReadFile(filepath.Join(path, manifestFilename))
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("Could not read %s for plugin %q: %v", manifestFilename, id, err)
		}
		return manifest
	}

	var loaded domain.PluginManifest
	if err := json.Unmarshal(data, &loaded); err != nil {
		logger.Warn("Malformed %s for plugin %q: %v", manifestFilename, id, err)
		return manifest
	}

	if loaded.Name != "" {
		manifest.Name = loaded.Name
	}
	if loaded.Description != "" {
		manifest.Description = loaded.Description
	}
	if loaded.AuthorName != "" {
		manifest.AuthorName = loaded.AuthorName
	}
	if loaded.AuthorURL != "" {
		manifest.AuthorURL = loaded.AuthorURL
	}
	if loaded.PluginURL != "" {
		manifest.PluginURL = loaded.PluginURL
	}
	if loaded.Tags != "" {
		manifest.Tags = loaded.Tags
	}
	if loaded.Thumb != "" {
		manifest.Thumb = loaded.Thumb
	}
	if loaded.Version != "" {
		manifest.Version = loaded.Version
	}
	return manifest
}

// defaultManifest builds placeholder metadata from the folder name.
func defaultManifest(id string) domain.PluginManifest {
	return domain.PluginManifest{
		Name:        toCamelCase(id),
		Description: "Description not found for this plugin. Please create a plugin.json file in the plugin folder.",
		AuthorName:  "Unknown author",
		Tags:        "unknown",
		Version:     "0.0.1",
	}
}

// toCamelCase turns a folder name like "my_fine_plugin" into "MyFinePlugin".
func toCamelCase(id string) string {
	parts := strings.FieldsFunc(id, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})

	var b strings.Builder
	for _, part := range parts {
		runes := []rune(part)
		runes[0] = unicode.ToUpper(runes[0])
		b.WriteString(string(runes))
	}
	return b.String()
}
