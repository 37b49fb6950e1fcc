package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
)

// ChangeKind classifies what changed in a session file reload.
type ChangeKind int

const (
	// Unchanged means the token and workspace are the same as before.
	Unchanged ChangeKind = iota
	// TokenChanged means a different non-empty token is now stored.
	TokenChanged
	// LoggedOut means the token was removed.
	LoggedOut
	// WorkspaceChanged means only the current workspace changed.
	WorkspaceChanged
)

// String returns the name of the change kind.
func (k ChangeKind) String() string {
	switch k {
	case TokenChanged:
		return "token_changed"
	case LoggedOut:
		return "logged_out"
	case WorkspaceChanged:
		return "workspace_changed"
	default:
		return "unchanged"
	}
}

// Change describes the outcome of a reload.
type Change struct {
	Kind      ChangeKind
	Workspace string
}

// FileStore is a Store backed by a dotenv-format file such as
//
//	token=eyJhbGciOi...
//	currentWorkspace=ws-42
//
// A missing file is an empty, signed-out session.
type FileStore struct {
	path   string
	logger *slog.Logger
	settle time.Duration

	mu     sync.RWMutex
	values map[string]string
}

var _ Store = (*FileStore)(nil)

// FileOption configures a FileStore.
type FileOption func(*FileStore)

// WithLogger sets the logger used for watch errors.
func WithLogger(l *slog.Logger) FileOption {
	return func(f *FileStore) { f.logger = l }
}

// WithSettle sets how long the file must stay quiet after a write before
// Watch reloads it. Writers that truncate then write produce several events
// and a reload in between would see an empty file.
func WithSettle(d time.Duration) FileOption {
	return func(f *FileStore) { f.settle = d }
}

// OpenFile loads the session file at path.
func OpenFile(path string, opts ...FileOption) (*FileStore, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("session: resolve %s: %w", path, err)
	}
	f := &FileStore{
		path:   abs,
		logger: slog.Default(),
		settle: 100 * time.Millisecond,
		values: map[string]string{},
	}
	for _, opt := range opts {
		opt(f)
	}
	if _, err := f.Reload(); err != nil {
		return nil, err
	}
	return f, nil
}

// Path returns the absolute path of the session file.
func (f *FileStore) Path() string { return f.path }

// Get implements Store.
func (f *FileStore) Get(_ context.Context, key string) (string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v, ok := f.values[key]
	return v, ok
}

// Reload re-reads the file and reports how the session changed.
func (f *FileStore) Reload() (Change, error) {
	values, err := godotenv.Read(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		values, err = map[string]string{}, nil
	}
	if err != nil {
		return Change{}, fmt.Errorf("session: read %s: %w", f.path, err)
	}

	f.mu.Lock()
	prev := f.values
	f.values = values
	f.mu.Unlock()

	return diff(prev, values), nil
}

func diff(prev, next map[string]string) Change {
	c := Change{Workspace: next[KeyCurrentWorkspace]}
	switch oldTok, newTok := prev[KeyToken], next[KeyToken]; {
	case oldTok != "" && newTok == "":
		c.Kind = LoggedOut
	case oldTok != newTok:
		c.Kind = TokenChanged
	case prev[KeyCurrentWorkspace] != next[KeyCurrentWorkspace]:
		c.Kind = WorkspaceChanged
	}
	return c
}

// Watch reloads the file once it has settled after being written, replaced
// or removed, and calls fn for every change other than Unchanged. It blocks
// until ctx is done. The parent directory is watched so atomic replacements
// are seen.
func (f *FileStore) Watch(ctx context.Context, fn func(Change)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("session: create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(f.path)); err != nil {
		return fmt.Errorf("session: watch %s: %w", filepath.Dir(f.path), err)
	}

	var (
		timer  *time.Timer
		settle <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	const relevant = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != f.path || event.Op&relevant == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(f.settle)
				settle = timer.C
			} else {
				timer.Reset(f.settle)
			}
		case <-settle:
			change, err := f.Reload()
			if err != nil {
				f.logger.Warn("session file reload failed",
					slog.String("path", f.path),
					slog.String("error", err.Error()),
				)
				continue
			}
			if change.Kind != Unchanged {
				fn(change)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			f.logger.Warn("session file watcher error",
				slog.String("path", f.path),
				slog.String("error", err.Error()),
			)
		}
	}
}
