// Package sink writes generated code to disk in the background. A new
// submission while a write is running cancels that write at the next chunk
// boundary; submissions that arrive meanwhile collapse into one pending
// write of the newest content.
package sink

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/chazu/chisel/pkg/logging"
)

// ChunkSize is the number of bytes written between cancellation checks.
const ChunkSize = 64 * 1024

// chunkHook runs before every chunk when set. Tests use it to hold a write
// in progress.
var chunkHook func()

// Stats counts finished writes.
type Stats struct {
	Completed int
	Cancelled int
}

// Writer owns one output file.
type Writer struct {
	path string

	mu      sync.Mutex
	pending *string
	running bool
	cancel  context.CancelFunc
	idle    *sync.Cond
	err     error
	stats   Stats
	closed  bool
}

// New returns a writer for path. Nothing is written until Submit.
func New(path string) *Writer {
	w := &Writer{path: path}
	w.idle = sync.NewCond(&w.mu)
	return w
}

// Path returns the output file.
func (w *Writer) Path() string { return w.path }

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("sink: writer closed")

// Submit schedules content to replace the file. It never blocks on I/O.
func (w *Writer) Submit(content string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	w.pending = &content
	if w.running {
		if w.cancel != nil {
			w.cancel()
		}
		return nil
	}
	w.running = true
	go w.loop()
	return nil
}

// Wait blocks until no write is running or pending and returns the error of
// the last write, if any.
func (w *Writer) Wait() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for w.running {
		w.idle.Wait()
	}
	return w.err
}

// Close waits for outstanding work and refuses further submissions.
func (w *Writer) Close() error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	return w.Wait()
}

// Stats returns the write counts so far.
func (w *Writer) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Writer) loop() {
	for {
		w.mu.Lock()
		if w.pending == nil {
			w.running = false
			w.cancel = nil
			w.idle.Broadcast()
			w.mu.Unlock()
			return
		}
		content := *w.pending
		w.pending = nil
		ctx, cancel := context.WithCancel(context.Background())
		w.cancel = cancel
		w.mu.Unlock()

		err := w.write(ctx, content)
		cancel()

		w.mu.Lock()
		switch {
		case errors.Is(err, context.Canceled):
			w.stats.Cancelled++
			logging.Logger().Debug("sink: write superseded", "path", w.path)
		case err != nil:
			w.err = err
			logging.Logger().Warn("sink: write failed", "path", w.path, "err", err)
		default:
			w.err = nil
			w.stats.Completed++
			logging.Logger().Info("sink: wrote", "path", w.path, "bytes", len(content))
		}
		w.mu.Unlock()
	}
}

// write streams content to a temporary file next to the target and renames
// it into place, so readers never see a partial file.
func (w *Writer) write(ctx context.Context, content string) (err error) {
	dir, base := filepath.Split(w.path)
	if dir == "" {
		dir = "."
	}
	f, err := os.CreateTemp(dir, "."+base+".*")
	if err != nil {
		return fmt.Errorf("sink: %w", err)
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()

	for off := 0; ; off += ChunkSize {
		if chunkHook != nil {
			chunkHook()
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(off+ChunkSize, len(content))
		if _, err := f.WriteString(content[off:end]); err != nil {
			return fmt.Errorf("sink: write %s: %w", w.path, err)
		}
		if end == len(content) {
			break
		}
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("sink: close %s: %w", w.path, err)
	}
	if err := os.Rename(tmp, w.path); err != nil {
		return fmt.Errorf("sink: rename %s: %w", w.path, err)
	}
	return nil
}
