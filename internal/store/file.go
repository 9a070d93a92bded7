package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// FileStore persists the catalogue as a single JSON document on disk.
// Every mutation rewrites the whole file (temp file + rename), so the last
// writer wins. Reads are served from memory.
type FileStore struct {
	path   string
	logger zerolog.Logger

	// mu serialises mutate-then-save sequences.
	mu  sync.Mutex
	mem *MemoryStore
}

// NewFileStore opens the catalogue at path. A missing file is seeded with an
// empty catalogue; an unreadable or malformed file is an error.
func NewFileStore(path string, logger zerolog.Logger) (*FileStore, error) {
	fs := &FileStore{
		path:   path,
		logger: logger.With().Str("component", "filestore").Str("path", path).Logger(),
		mem:    NewMemoryStore(),
	}

	file, err := fs.read()
	if errors.Is(err, os.ErrNotExist) {
		fs.logger.Info().Msg("pack file not found, starting with an empty catalogue")
		if err := fs.write(NewPackFile()); err != nil {
			return nil, err
		}
		return fs, nil
	}
	if err != nil {
		return nil, err
	}
	if err := fs.mem.Import(context.Background(), file); err != nil {
		return nil, err
	}
	fs.logger.Debug().Int("packs", len(file.Packs)).Msg("pack file loaded")
	return fs, nil
}

// Path returns the catalogue file location.
func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) ListPacks(ctx context.Context) ([]Pack, error) {
	return f.mem.ListPacks(ctx)
}

func (f *FileStore) GetPack(ctx context.Context, id string) (*Pack, error) {
	return f.mem.GetPack(ctx, id)
}

func (f *FileStore) UpsertPack(ctx context.Context, pack Pack) error {
	return f.mutate(ctx, func() error {
		return f.mem.UpsertPack(ctx, pack)
	})
}

func (f *FileStore) DeletePack(ctx context.Context, id string) error {
	return f.mutate(ctx, func() error {
		return f.mem.DeletePack(ctx, id)
	})
}

func (f *FileStore) ClonePack(ctx context.Context, id string) (*Pack, error) {
	var clone *Pack
	err := f.mutate(ctx, func() error {
		var err error
		clone, err = f.mem.ClonePack(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return clone, nil
}

func (f *FileStore) Export(ctx context.Context) (PackFile, error) {
	return f.mem.Export(ctx)
}

func (f *FileStore) Import(ctx context.Context, file PackFile) error {
	return f.mutate(ctx, func() error {
		return f.mem.Import(ctx, file)
	})
}

// Close is a no-op; every mutation is already on disk.
func (f *FileStore) Close() error {
	return nil
}

// Reload re-reads the file, replacing the in-memory catalogue.
func (f *FileStore) Reload(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := f.read()
	if err != nil {
		return err
	}
	return f.mem.Import(ctx, file)
}

// Watch reloads the catalogue whenever the file is changed by another
// process and calls onReload after each successful reload. It blocks until
// ctx is cancelled.
func (f *FileStore) Watch(ctx context.Context, onReload func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors and our own writes replace the file by rename.
	if err := watcher.Add(filepath.Dir(f.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(f.path), err)
	}
	target := filepath.Clean(f.path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if err := f.Reload(ctx); err != nil {
				f.logger.Warn().Err(err).Msg("pack file reload failed, keeping previous catalogue")
				continue
			}
			f.logger.Info().Str("op", event.Op.String()).Msg("pack file reloaded")
			if onReload != nil {
				onReload()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			f.logger.Warn().Err(err).Msg("pack file watcher error")
		}
	}
}

func (f *FileStore) mutate(ctx context.Context, fn func() error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	prev, err := f.mem.Export(ctx)
	if err != nil {
		return err
	}
	if err := fn(); err != nil {
		return err
	}
	file, err := f.mem.Export(ctx)
	if err == nil {
		err = f.write(file)
	}
	if err != nil {
		// Memory must not get ahead of the file.
		if rerr := f.mem.Import(ctx, prev); rerr != nil {
			f.logger.Error().Err(rerr).Msg("restore catalogue after failed save")
		}
		return err
	}
	return nil
}

func (f *FileStore) read() (PackFile, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		return PackFile{}, err
	}
	file, err := decodePackFile(raw)
	if err != nil {
		return PackFile{}, fmt.Errorf("%s: %w", f.path, err)
	}
	return file, nil
}

func (f *FileStore) write(file PackFile) error {
	raw, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("encode pack file: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create pack directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".packs-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(raw, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write pack file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write pack file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace pack file: %w", err)
	}
	return nil
}
