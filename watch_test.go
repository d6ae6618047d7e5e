package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type watchFixture struct {
	w        *jobWatcher
	job, out string
	events   chan fsnotify.Event
	errs     chan error
	compiled chan error
	done     chan error
	cancel   context.CancelFunc
}

func startWatch(t *testing.T, src string, delay time.Duration) *watchFixture {
	t.Helper()
	dir := t.TempDir()
	f := &watchFixture{
		job:      filepath.Join(dir, "job.chisel"),
		out:      filepath.Join(dir, "job.nc"),
		events:   make(chan fsnotify.Event),
		errs:     make(chan error),
		compiled: make(chan error, 16),
		done:     make(chan error, 1),
	}
	require.NoError(t, os.WriteFile(f.job, []byte(src), 0o644))

	f.w = newJobWatcher(newTestApp(t, Config{}), f.job, f.out)
	f.w.delay = delay
	f.w.compiled = func(err error) { f.compiled <- err }

	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	go func() { f.done <- f.w.run(ctx, f.events, f.errs) }()
	t.Cleanup(cancel)
	return f
}

func (f *watchFixture) next(t *testing.T) error {
	t.Helper()
	select {
	case err := <-f.compiled:
		return err
	case <-time.After(10 * time.Second):
		t.Fatal("no compile")
		return nil
	}
}

func (f *watchFixture) stop(t *testing.T) {
	t.Helper()
	f.cancel()
	select {
	case err := <-f.done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func (f *watchFixture) edit(t *testing.T, src string) {
	t.Helper()
	require.NoError(t, os.WriteFile(f.job, []byte(src), 0o644))
	f.events <- fsnotify.Event{Name: f.job, Op: fsnotify.Write}
}

func TestWatchCompilesOnStartAndChange(t *testing.T) {
	f := startWatch(t, lineJob, 10*time.Millisecond)
	require.NoError(t, f.next(t))

	edited := lineJob[:len(lineJob)-4] + ` (pt 10 5 -1))))` + "\n"
	f.edit(t, edited)
	require.NoError(t, f.next(t))
	f.stop(t)

	code, err := os.ReadFile(f.out)
	require.NoError(t, err)
	assert.Contains(t, string(code), "Y5")
	stats := f.w.out.Stats()
	assert.Equal(t, 2, stats.Completed+stats.Cancelled)
}

func TestWatchDebouncesBursts(t *testing.T) {
	f := startWatch(t, lineJob, 200*time.Millisecond)
	require.NoError(t, f.next(t))

	for i := 0; i < 5; i++ {
		f.events <- fsnotify.Event{Name: f.job, Op: fsnotify.Write}
	}
	require.NoError(t, f.next(t))
	select {
	case <-f.compiled:
		t.Fatal("burst compiled more than once")
	case <-time.After(400 * time.Millisecond):
	}
	f.stop(t)
}

func TestWatchIgnoresOtherFiles(t *testing.T) {
	f := startWatch(t, lineJob, 10*time.Millisecond)
	require.NoError(t, f.next(t))

	f.events <- fsnotify.Event{Name: filepath.Join(filepath.Dir(f.job), "other.txt"), Op: fsnotify.Write}
	f.events <- fsnotify.Event{Name: f.job, Op: fsnotify.Chmod}
	f.errs <- errors.New("overflow")
	select {
	case <-f.compiled:
		t.Fatal("unrelated event caused a compile")
	case <-time.After(100 * time.Millisecond):
	}
	f.stop(t)
}

func TestWatchKeepsLastGoodOutput(t *testing.T) {
	f := startWatch(t, lineJob, 10*time.Millisecond)
	require.NoError(t, f.next(t))

	f.edit(t, `(instruction "broken"`)
	assert.Error(t, f.next(t))
	f.stop(t)

	code, err := os.ReadFile(f.out)
	require.NoError(t, err)
	assert.Contains(t, string(code), "(cut)")
}
