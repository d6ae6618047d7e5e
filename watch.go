package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/chazu/chisel/pkg/logging"
	"github.com/chazu/chisel/pkg/sink"
)

// watchDelay is how long the job file must be quiet before a recompile.
const watchDelay = 150 * time.Millisecond

// jobWatcher recompiles a job whenever its file changes and hands the code
// to a sink writer.
type jobWatcher struct {
	app   *App
	job   string
	out   *sink.Writer
	delay time.Duration

	// compiled is called after every compile attempt.
	compiled func(err error)
}

func newJobWatcher(app *App, job, output string) *jobWatcher {
	return &jobWatcher{
		app:   app,
		job:   filepath.Clean(job),
		out:   sink.New(output),
		delay: watchDelay,
	}
}

// watch compiles the job once and then again after each change until ctx
// is done.
func (w *jobWatcher) watch(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer fw.Close()
	// Editors replace files on save, so the directory is watched instead.
	if err := fw.Add(filepath.Dir(w.job)); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	return w.run(ctx, fw.Events, fw.Errors)
}

// run is the event loop. It returns once ctx is done and the last write
// has finished.
func (w *jobWatcher) run(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error) error {
	log := logging.Logger()
	w.compile(ctx)

	timer := time.NewTimer(w.delay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return w.out.Close()
			}
			if filepath.Clean(ev.Name) != w.job {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			log.Debug("watch: change", "path", ev.Name, "op", ev.Op.String())
			timer.Reset(w.delay)

		case err, ok := <-errs:
			if !ok {
				return w.out.Close()
			}
			log.Warn("watch: watcher error", "error", err)

		case <-timer.C:
			w.compile(ctx)

		case <-ctx.Done():
			log.Debug("watch: stopping", "job", w.job)
			return w.out.Close()
		}
	}
}

// compile recompiles the job. Failures are logged and the previous output
// is left in place.
func (w *jobWatcher) compile(ctx context.Context) {
	err := w.compileOnce(ctx)
	if err != nil {
		logging.Logger().Warn("watch: compile failed", "job", w.job, "error", err)
	}
	if w.compiled != nil {
		w.compiled(err)
	}
}

func (w *jobWatcher) compileOnce(ctx context.Context) error {
	src, err := os.ReadFile(w.job)
	if err != nil {
		return err
	}
	res, err := w.app.Compile(ctx, string(src))
	if err != nil {
		return err
	}
	if res.Report != "" {
		logging.Logger().Info("watch: report", "job", w.job, "report", res.Report)
	}
	return w.out.Submit(res.Code)
}
