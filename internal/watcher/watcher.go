// Package watcher ingests documents dropped into an inbox directory.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"conversational-rag/internal/helper"
	"conversational-rag/internal/parser"
)

const (
	ProcessedDir = "processed"
	FailedDir    = "failed"
)

type Ingester interface {
	Ingest(ctx context.Context, path, source string) (int, error)
}

// Watcher indexes files created in dir once they have been quiet for delay,
// then moves them to dir/processed or dir/failed. Files are ingested one at
// a time.
type Watcher struct {
	dir      string
	delay    time.Duration
	ingester Ingester
}

func New(dir string, delay time.Duration, ingester Ingester) (*Watcher, error) {
	if dir == "" {
		return nil, fmt.Errorf("watch directory is required")
	}
	for _, sub := range []string{ProcessedDir, FailedDir} {
		if err := helper.CreateFolder(filepath.Join(dir, sub)); err != nil {
			return nil, err
		}
	}
	return &Watcher{dir: dir, delay: delay, ingester: ingester}, nil
}

// Run blocks until ctx is cancelled. Files already present are picked up
// first.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	log.Info().Str("dir", w.dir).Dur("delay", w.delay).Msg("Watching inbox")

	ready := make(chan string, 16)
	pending := make(map[string]*time.Timer)
	defer func() {
		for _, t := range pending {
			t.Stop()
		}
	}()

	schedule := func(path string) {
		if t, ok := pending[path]; ok {
			t.Reset(w.delay)
			return
		}
		pending[path] = time.AfterFunc(w.delay, func() {
			select {
			case ready <- path:
			case <-ctx.Done():
			}
		})
	}

	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", w.dir, err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			schedule(filepath.Join(w.dir, e.Name()))
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			schedule(event.Name)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("Watcher error")
		case path := <-ready:
			delete(pending, path)
			w.process(ctx, path)
		}
	}
}

func (w *Watcher) process(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}
	name := filepath.Base(path)

	if !parser.IsSupported(name) {
		log.Warn().Str("file", name).Msg("Unsupported file in inbox")
		w.move(path, FailedDir)
		return
	}

	n, err := w.ingester.Ingest(ctx, path, name)
	if err != nil {
		log.Error().Err(err).Str("file", name).Msg("Failed to ingest inbox file")
		w.move(path, FailedDir)
		return
	}
	log.Info().Str("file", name).Int("chunks", n).Msg("Ingested inbox file")
	w.move(path, ProcessedDir)
}

func (w *Watcher) move(path, sub string) {
	name := filepath.Base(path)
	target := filepath.Join(w.dir, sub, name)
	if _, err := os.Stat(target); err == nil {
		ext := filepath.Ext(name)
		target = filepath.Join(w.dir, sub, name[:len(name)-len(ext)]+"-"+strconv.FormatInt(time.Now().UnixNano(), 10)+ext)
	}
	if err := os.Rename(path, target); err != nil {
		log.Error().Err(err).Str("file", name).Str("target", target).Msg("Failed to move inbox file")
	}
}
