package schema

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"reflect"
	"runtime"
	"sort"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/compozy/trainconf/engine/store"
	"github.com/compozy/trainconf/pkg/logger"
)

// RecordTypes returns the distinct record types registered in s, keyed by type name.
func RecordTypes(s *store.Store) map[string]reflect.Type {
	out := make(map[string]reflect.Type)
	for _, entry := range s.Entries() {
		if entry.Typed() {
			out[entry.Type.Name()] = entry.Type
		}
	}
	return out
}

// Export writes one <TypeName>.json schema per record type into outDir and
// returns the written paths, sorted.
func Export(ctx context.Context, fs afero.Fs, outDir string, types map[string]reflect.Type) ([]string, error) {
	log := logger.FromContext(ctx)
	if err := fs.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	names := make([]string, 0, len(types))
	for name := range types {
		names = append(names, name)
	}
	sort.Strings(names)
	written := make([]string, len(names))
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(runtime.GOMAXPROCS(0))
	for i, name := range names {
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s, err := JSONSchema(types[name])
			if err != nil {
				return fmt.Errorf("failed to build schema for %s: %w", name, err)
			}
			data, err := json.MarshalIndent(s, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal schema for %s: %w", name, err)
			}
			filePath := filepath.Join(outDir, name+".json")
			if err := afero.WriteFile(fs, filePath, data, 0o600); err != nil {
				return fmt.Errorf("failed to write schema to %s: %w", filePath, err)
			}
			log.Debug("Generated schema", "file", filePath)
			written[i] = filePath
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return written, nil
}
