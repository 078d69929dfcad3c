package plugins

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/warren-labs/warren/internal/core/domain"
	"github.com/warren-labs/warren/internal/logger"
)

// ExtractArchive unpacks a plugin archive (zip or tar.gz) into the plugin
// root and returns the id of the extracted plugin folder.
//
// The archive must contain exactly one top-level folder holding the whole
// plugin; anything else fails with ErrInvalidPluginArchive before any file
// is written, so a bad archive never leaves a partial install behind.
func ExtractArchive(archivePath, root string) (string, error) {
	names, extract, err := openArchive(archivePath)
	if err != nil {
		return "", err
	}

	folder, err := topLevelFolder(names)
	if err != nil {
		return "", err
	}

	if err := extract(root); err != nil {
		return "", fmt.Errorf("extract plugin archive: %w", err)
	}

	noteDependencies(filepath.Join(root, folder), folder)
	return folder, nil
}

// openArchive inspects the archive format and returns its entry names
// plus a deferred extraction function.
func openArchive(archivePath string) (names []string, extract func(root string) error, err error) {
	lower := strings.ToLower(archivePath)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return openZip(archivePath)
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return openTarGz(archivePath)
	default:
		return nil, nil, fmt.Errorf("%w: unsupported archive format %q", domain.ErrInvalidPluginArchive, filepath.Ext(archivePath))
	}
}

// topLevelFolder validates that every entry lives under a single shared
// top-level folder and returns its name.
func topLevelFolder(names []string) (string, error) {
	folders := map[string]bool{}
	for _, name := range names {
		clean := filepath.ToSlash(filepath.Clean(name))
		if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
			return "", fmt.Errorf("%w: unsafe entry path %q", domain.ErrInvalidPluginArchive, name)
		}

		top, rest, _ := strings.Cut(clean, "/")
		if rest == "" && !strings.HasSuffix(name, "/") {
			return "", fmt.Errorf("%w: file %q outside a plugin folder", domain.ErrInvalidPluginArchive, name)
		}
		folders[top] = true
	}

	if len(folders) != 1 {
		return "", fmt.Errorf("%w: expected exactly one top-level folder, found %d", domain.ErrInvalidPluginArchive, len(folders))
	}
	for folder := range folders {
		return folder, nil
	}
	return "", domain.ErrInvalidPluginArchive
}

func openZip(archivePath string) ([]string, func(string) error, error) {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrInvalidPluginArchive, err)
	}

	names := make([]string, 0, len(reader.File))
	for _, f := range reader.File {
		names = append(names, f.Name)
	}

	extract := func(root string) error {
		defer reader.Close()
		for _, f := range reader.File {
			target := filepath.Join(root, filepath.FromSlash(filepath.Clean(f.Name)))
			if f.FileInfo().IsDir() {
				if err := os.MkdirAll(target, 0700); err != nil {
					return err
				}
				continue
			}
			if err := writeEntry(target, func() (io.ReadCloser, error) { return f.Open() }); err != nil {
				return err
			}
		}
		return nil
	}
	return names, extract, nil
}

func openTarGz(archivePath string) ([]string, func(string) error, error) {
	// Tar is a stream, so entry names require a full first pass.
	names, err := tarEntryNames(archivePath)
	if err != nil {
		return nil, nil, err
	}

	extract := func(root string) error {
		f, err := os.Open(archivePath)
		if err != nil {
			return err
		}
		defer f.Close()

		gz, err := gzip.NewReader(f)
		if err != nil {
			return err
		}
		defer gz.Close()

		tr := tar.NewReader(gz)
		for {
			header, err := tr.Next()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}

			target := filepath.Join(root, filepath.FromSlash(filepath.Clean(header.Name)))
			switch header.Typeflag {
			case tar.TypeDir:
				if err := os.MkdirAll(target, 0700); err != nil {
					return err
				}
			case tar.TypeReg:
				if err := os.MkdirAll(filepath.Dir(target), 0700); err != nil {
					return err
				}
				out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
				if err != nil {
					return err
				}
				if _, err := io.Copy(out, tr); err != nil {
					out.Close()
					return err
				}
				if err := out.Close(); err != nil {
					return err
				}
			}
		}
	}
	return names, extract, nil
}

// tarEntryNames lists the regular files and directories in a tar.gz.
func tarEntryNames(archivePath string) ([]string, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPluginArchive, err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPluginArchive, err)
	}
	defer gz.Close()

	var names []string
	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPluginArchive, err)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			names = append(names, header.Name+"/")
		case tar.TypeReg:
			names = append(names, header.Name)
		}
	}
	return names, nil
}

// writeEntry copies one archive entry to disk.
func writeEntry(target string, open func() (io.ReadCloser, error)) error {
	if err := os.MkdirAll(filepath.Dir(target), 0700); err != nil {
		return err
	}

	src, err := open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// noteDependencies logs a plugin's declared dependencies. Providers are
// compiled in, so dependencies cannot be installed at runtime; the note
// tells the operator what the plugin expects.
func noteDependencies(path, id string) {
	data, err := os.ReadFile(filepath.Join(path, "requirements.txt"))
	if err != nil {
		return
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		logger.Info("Plugin %q declares dependency: %s", id, line)
	}
}
