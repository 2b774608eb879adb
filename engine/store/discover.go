package store

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"reflect"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"

	"github.com/compozy/trainconf/engine/core"
	"github.com/compozy/trainconf/pkg/logger"
)

// DefaultIncludes matches every YAML file below the search root.
var DefaultIncludes = []string{"**/*.yaml", "**/*.yml"}

// DefaultExcludes contains patterns for editor and backup files that are never loaded.
var DefaultExcludes = []string{
	"**/.#*",
	"**/*~",
	"**/*.bak",
	"**/*.swp",
	"**/*.tmp",
	"**/._*",
}

// DocumentCheck validates an untyped document against a record type.
type DocumentCheck func(ctx context.Context, doc core.Node, t reflect.Type) error

// DiscoverConfig controls which files under a search root are loaded.
type DiscoverConfig struct {
	Root    string
	Include []string
	Exclude []string
	Strict  bool
	// Check validates overlay files against the typed record they overlay.
	Check DocumentCheck
}

// DiscoverResult summarizes a discovery run.
type DiscoverResult struct {
	FilesProcessed int
	Registered     []string
	Overlaid       []string
	Errors         []DiscoverError
}

// DiscoverError is a per-file failure collected in non-strict mode.
type DiscoverError struct {
	File  string
	Error error
}

// Discover loads every matching file under cfg.Root. A file at <group>/<name>.yaml
// overlays the typed record at (group, name) when one exists, otherwise it is
// registered as an untyped entry with source "file".
func (s *Store) Discover(ctx context.Context, fs afero.Fs, cfg DiscoverConfig) (*DiscoverResult, error) {
	log := logger.FromContext(ctx)
	start := time.Now()
	defer func() { recordDiscoverDuration(ctx, time.Since(start)) }()

	result := &DiscoverResult{Errors: make([]DiscoverError, 0)}
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return result, core.NewError(err, core.ErrCodeDiscoveryFailed, map[string]any{"root": cfg.Root})
	}
	base := afero.NewBasePathFs(fs, root)
	files, err := newDiscoverer(base).discover(cfg.Include, cfg.Exclude)
	if err != nil {
		return result, core.NewError(err, core.ErrCodeDiscoveryFailed, map[string]any{"root": root})
	}
	log.Debug("Discovered config files", "root", root, "count", len(files))

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.FilesProcessed++
		overlaid, err := s.loadFile(ctx, base, root, file, cfg.Check)
		if err != nil {
			recordDiscoverFile(ctx, discoverOutcomeError)
			result.Errors = append(result.Errors, DiscoverError{File: file, Error: err})
			if cfg.Strict {
				return result, core.NewError(err, core.ErrCodeFileLoadFailed, map[string]any{
					"file":             file,
					"total_files":      len(files),
					"processed_so_far": result.FilesProcessed,
				})
			}
			log.Warn("Skipping invalid config file", "file", file, "error", err)
			continue
		}
		key := strings.TrimSuffix(file, path.Ext(file))
		if overlaid {
			recordDiscoverFile(ctx, discoverOutcomeOverlay)
			result.Overlaid = append(result.Overlaid, key)
		} else {
			recordDiscoverFile(ctx, discoverOutcomeRegistered)
			result.Registered = append(result.Registered, key)
		}
		log.Debug("Loaded config file", "file", file, "overlay", overlaid)
	}
	return result, nil
}

func (s *Store) loadFile(ctx context.Context, fs afero.Fs, root, file string, check DocumentCheck) (bool, error) {
	group, name := SplitKey(strings.TrimSuffix(file, path.Ext(file)))
	node, err := core.MapFromFilePath(fs, file)
	if err != nil {
		return false, err
	}
	if entry, err := s.Get(group, name); err == nil && entry.Typed() {
		if check != nil {
			if err := check(ctx, node, entry.Type); err != nil {
				return true, fmt.Errorf("overlay %s does not match %s: %w", file, entry.Type, err)
			}
		}
		return true, s.Overlay(group, name, node)
	}
	return false, s.register(group, name, node, core.SourceFile, filepath.Join(root, filepath.FromSlash(file)))
}

// discoverer globs files relative to the root of an afero filesystem.
type discoverer struct {
	fsys afero.Fs
}

func newDiscoverer(fsys afero.Fs) *discoverer {
	return &discoverer{fsys: fsys}
}

func (d *discoverer) discover(includes, excludes []string) ([]string, error) {
	if len(includes) == 0 {
		includes = DefaultIncludes
	}
	iofs := afero.NewIOFS(d.fsys)
	found := make(map[string]struct{})
	for _, pattern := range includes {
		if err := validatePattern(pattern); err != nil {
			return nil, err
		}
		matches, err := doublestar.Glob(iofs, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
		}
		for _, match := range matches {
			if strings.HasPrefix(match, "../") || path.IsAbs(match) {
				return nil, core.NewError(nil, core.ErrCodePathEscape, map[string]any{"file": match})
			}
			found[match] = struct{}{}
		}
	}
	files := make([]string, 0, len(found))
	for file := range found {
		if shouldExclude(file, excludes) {
			continue
		}
		files = append(files, file)
	}
	sort.Strings(files)
	return files, nil
}

func validatePattern(pattern string) error {
	clean := path.Clean(strings.ReplaceAll(pattern, "\\", "/"))
	if pattern == "" {
		return fmt.Errorf("empty include pattern is not allowed")
	}
	if path.IsAbs(clean) {
		return core.NewError(nil, core.ErrCodePathEscape, map[string]any{
			"pattern": pattern,
			"reason":  "absolute paths not allowed",
		})
	}
	if slices.Contains(strings.Split(clean, "/"), "..") {
		return core.NewError(nil, core.ErrCodePathEscape, map[string]any{
			"pattern": pattern,
			"reason":  "parent directory references not allowed",
		})
	}
	return nil
}

func shouldExclude(file string, excludes []string) bool {
	base := path.Base(file)
	for _, pattern := range append(slices.Clone(DefaultExcludes), excludes...) {
		if matched, err := doublestar.Match(pattern, file); err == nil && matched {
			return true
		}
		if matched, err := doublestar.Match(pattern, base); err == nil && matched {
			return true
		}
	}
	return false
}
