// Package configsource loads configuration documents from disk.
package configsource

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"github.com/rs/zerolog/log"

	"github.com/watzon/autoimport/internal/models"
)

// Document is a configuration together with the file it came from.
type Document struct {
	Path   string
	Config *models.Configuration
}

// DirSource reads every configuration document in a directory whose file
// name matches a glob pattern.
type DirSource struct {
	dir     string
	pattern string
	match   glob.Glob
}

// NewDirSource creates a DirSource. The pattern uses gobwas/glob syntax,
// for example "*.{yaml,yml}".
func NewDirSource(dir, pattern string) (*DirSource, error) {
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compiling pattern %q: %w", pattern, err)
	}
	return &DirSource{dir: dir, pattern: pattern, match: g}, nil
}

// Dir returns the directory the source reads from.
func (s *DirSource) Dir() string {
	return s.dir
}

// Matches reports whether path names a file this source would load.
func (s *DirSource) Matches(path string) bool {
	return s.match.Match(filepath.Base(path))
}

// Load parses every matching document in file name order. Documents that
// fail to parse are skipped and reported in the returned error; the rest
// are still returned. A configuration without a service name is named
// after its file. A second document reusing a name is rejected.
func (s *DirSource) Load() ([]*Document, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading configuration directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !s.match.Match(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	var (
		docs []*Document
		errs []error
		seen = make(map[string]string)
	)
	for _, name := range names {
		path := filepath.Join(s.dir, name)

		cfg, err := ParseFile(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		if cfg.ServiceName == "" {
			cfg.ServiceName = strings.TrimSuffix(name, filepath.Ext(name))
		}
		if other, dup := seen[cfg.ServiceName]; dup {
			errs = append(errs, fmt.Errorf("%s: configuration %q is already defined in %s", name, cfg.ServiceName, other))
			continue
		}
		seen[cfg.ServiceName] = name

		docs = append(docs, &Document{Path: path, Config: cfg})
	}

	log.Debug().
		Str("dir", s.dir).
		Str("pattern", s.pattern).
		Int("loaded", len(docs)).
		Int("failed", len(errs)).
		Msg("Configurations loaded")

	return docs, errors.Join(errs...)
}
