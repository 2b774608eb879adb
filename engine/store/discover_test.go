package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compozy/trainconf/engine/core"
)

func writeFiles(t *testing.T, fs afero.Fs, files map[string]string) {
	t.Helper()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
	}
}

func TestStore_Discover(t *testing.T) {
	t.Run("Should register new files and overlay typed entries", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		writeFiles(t, fs, map[string]string{
			"/conf/task/optim/adamw.yaml": "lr: 0.01\n",
			"/conf/data/local.yaml":       "train_path: /data/train.tsv\nbatch_size: 2\n",
			"/conf/run.yml":               "name: quick\n",
			"/conf/data/local.yaml.bak":   "ignored: true\n",
			"/conf/data/notes.txt":        "not yaml",
		})
		s := New()
		require.NoError(t, s.Register("task/optim", "adamw", defaultOptim()))

		result, err := s.Discover(context.Background(), fs, DiscoverConfig{Root: "/conf"})
		require.NoError(t, err)
		assert.Equal(t, 3, result.FilesProcessed)
		assert.ElementsMatch(t, []string{"data/local", "run"}, result.Registered)
		assert.Equal(t, []string{"task/optim/adamw"}, result.Overlaid)
		assert.Empty(t, result.Errors)

		entry, err := s.Get("data", "local")
		require.NoError(t, err)
		assert.Equal(t, core.SourceFile, entry.Source)
		assert.Equal(t, filepath.Join("/conf", "data", "local.yaml"), entry.Path)
		assert.True(t, s.Has("", "run"))

		optim, err := s.Instantiate("task/optim", "adamw")
		require.NoError(t, err)
		assert.Equal(t, 0.01, optim.(optimRecord).LR)
	})
	t.Run("Should check overlays against their record type", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		writeFiles(t, fs, map[string]string{
			"/conf/task/optim/adamw.yaml": "lr: fast\n",
			"/conf/data/local.yaml":       "train_path: a.tsv\n",
		})
		s := New()
		require.NoError(t, s.Register("task/optim", "adamw", defaultOptim()))
		checked := make(map[string]reflect.Type)
		check := func(_ context.Context, doc core.Node, typ reflect.Type) error {
			checked[fmt.Sprint(doc["lr"])] = typ
			if _, ok := doc["lr"].(float64); !ok {
				return errors.New("lr must be a number")
			}
			return nil
		}

		result, err := s.Discover(context.Background(), fs, DiscoverConfig{Root: "/conf", Check: check})
		require.NoError(t, err)
		assert.Equal(t, map[string]reflect.Type{"fast": reflect.TypeOf(optimRecord{})}, checked)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, "task/optim/adamw.yaml", result.Errors[0].File)
		assert.Empty(t, result.Overlaid)
		assert.Equal(t, []string{"data/local"}, result.Registered)

		optim, err := s.Instantiate("task/optim", "adamw")
		require.NoError(t, err)
		assert.Equal(t, defaultOptim(), optim)
	})
	t.Run("Should honour include and exclude patterns", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		writeFiles(t, fs, map[string]string{
			"/conf/data/a.yaml":  "x: 1\n",
			"/conf/data/b.yaml":  "x: 2\n",
			"/conf/model/m.yaml": "x: 3\n",
		})
		s := New()
		result, err := s.Discover(context.Background(), fs, DiscoverConfig{
			Root:    "/conf",
			Include: []string{"data/*.yaml"},
			Exclude: []string{"b.yaml"},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"data/a"}, result.Registered)
		assert.False(t, s.Has("model", "m"))
	})
	t.Run("Should aggregate errors in non-strict mode", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		writeFiles(t, fs, map[string]string{
			"/conf/data/bad.yaml":  "a: [1, 2\n",
			"/conf/data/good.yaml": "a: 1\n",
		})
		s := New()
		result, err := s.Discover(context.Background(), fs, DiscoverConfig{Root: "/conf"})
		require.NoError(t, err)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, "data/bad.yaml", result.Errors[0].File)
		assert.True(t, s.Has("data", "good"))
	})
	t.Run("Should stop at the first error in strict mode", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		writeFiles(t, fs, map[string]string{
			"/conf/data/a_bad.yaml":  "a: [1, 2\n",
			"/conf/data/b_good.yaml": "a: 1\n",
		})
		s := New()
		_, err := s.Discover(context.Background(), fs, DiscoverConfig{Root: "/conf", Strict: true})
		require.Error(t, err)
		assert.True(t, core.HasCode(err, core.ErrCodeFileLoadFailed))
		assert.False(t, s.Has("data", "b_good"))
	})
	t.Run("Should reject patterns escaping the root", func(t *testing.T) {
		s := New()
		for _, pattern := range []string{"../**/*.yaml", "/etc/*.yaml", "data/../../x.yaml"} {
			_, err := s.Discover(context.Background(), afero.NewMemMapFs(), DiscoverConfig{
				Root:    "/conf",
				Include: []string{pattern},
			})
			require.Error(t, err, pattern)
			assert.True(t, core.HasCode(err, core.ErrCodePathEscape), pattern)
		}
	})
	t.Run("Should stop when the context is canceled", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		writeFiles(t, fs, map[string]string{"/conf/data/a.yaml": "x: 1\n"})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := New().Discover(ctx, fs, DiscoverConfig{Root: "/conf"})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestWatcher(t *testing.T) {
	t.Run("Should report changes in nested directories", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(root, "data"), 0o755))
		target := filepath.Join(root, "data", "sst2.yaml")
		require.NoError(t, os.WriteFile(target, []byte("batch_size: 8\n"), 0o644))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		watcher, err := NewWatcher(ctx)
		require.NoError(t, err)
		defer watcher.Close()

		var mu sync.Mutex
		changed := make([]string, 0)
		watcher.OnChange(func(path string) {
			mu.Lock()
			changed = append(changed, path)
			mu.Unlock()
		})
		require.NoError(t, watcher.Watch(ctx, root))

		require.NoError(t, os.WriteFile(target, []byte("batch_size: 16\n"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(root, "data", "notes.txt"), []byte("x"), 0o644))

		assert.Eventually(t, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return len(changed) > 0
		}, 2*time.Second, 20*time.Millisecond)
		mu.Lock()
		defer mu.Unlock()
		for _, path := range changed {
			assert.Equal(t, target, path)
		}
	})
	t.Run("Should close idempotently", func(t *testing.T) {
		watcher, err := NewWatcher(context.Background())
		require.NoError(t, err)
		require.NoError(t, watcher.Close())
		require.NoError(t, watcher.Close())
	})
}
