package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sandeepkv93/taskplan/internal/logging"
	"github.com/sandeepkv93/taskplan/internal/model"
	"github.com/sandeepkv93/taskplan/internal/planner"
)

const watchSettle = 200 * time.Millisecond

// replanFile plans the input document at path without touching storage and
// writes the plan as JSON.
func replanFile(ctx context.Context, p *planner.Planner, path string, out io.Writer) error {
	in, err := model.ReadInputFile(path)
	if err != nil {
		return err
	}
	res, err := p.Plan(ctx, in)
	if err != nil {
		return err
	}
	loc, err := in.Availability.Location()
	if err != nil {
		return err
	}
	return model.EncodePlan(out, res.Plan, loc)
}

// watchFile calls onChange whenever path is written or replaced, after the
// writes have settled. The parent directory is watched so editors that
// rename over the file are still seen. It returns when ctx is done.
func watchFile(ctx context.Context, path string, logger *logging.Logger, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	var settle <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				logger.Debugf("fsnotify event=%s file=%s", event.Op, event.Name)
				settle = time.After(watchSettle)
			}
		case <-settle:
			settle = nil
			onChange()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Errorf("fsnotify error=%v", err)
		}
	}
}

func runWatch(ctx context.Context, a *app, path string, out io.Writer) error {
	replan := func() {
		if err := replanFile(ctx, a.planner, path, out); err != nil {
			a.logger.Errorf("replan %s: %v", path, err)
		}
	}
	replan()
	a.logger.Infof("watching %s", path)
	return watchFile(ctx, path, a.logger.With("watch"), replan)
}
