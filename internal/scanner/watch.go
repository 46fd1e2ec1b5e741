package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/kbgraph-mcp/pkg/types"
)

// ChangeKind classifies a watch-mode event.
type ChangeKind string

const (
	ChangeCreate ChangeKind = "create"
	ChangeWrite  ChangeKind = "write"
	ChangeRemove ChangeKind = "remove"
	ChangeRename ChangeKind = "rename"
)

// Event is one filtered change notification.
type Event struct {
	Path string
	Kind ChangeKind
}

// Watch subscribes to change notifications under the root and emits events
// for paths passing the same include/exclude test as Scan. Watch mode is
// best effort: construction failure returns ErrWatch and the caller keeps
// full-scan indexing. The channel closes when ctx is done.
func (s *Scanner) Watch(ctx context.Context) (<-chan Event, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrWatch, err)
	}

	// Watch every surviving directory; fsnotify does not recurse.
	walkErr := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(s.root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if path != s.root && s.excludedDir(d.Name(), rel) {
			return filepath.SkipDir
		}
		if addErr := watcher.Add(path); addErr != nil {
			log.Printf("scanner: cannot watch %s: %v", path, addErr)
		}
		return nil
	})
	if walkErr != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("%w: %v", types.ErrWatch, walkErr)
	}

	events := make(chan Event, 64)

	go func() {
		defer close(events)
		defer func() { _ = watcher.Close() }()

		for {
			select {
			case <-ctx.Done():
				return

			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				s.handleFsEvent(ctx, watcher, ev, events)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				// Watcher errors never crash the process.
				log.Printf("scanner: %v: %v", types.ErrWatch, err)
			}
		}
	}()

	return events, nil
}

func (s *Scanner) handleFsEvent(ctx context.Context, watcher *fsnotify.Watcher, ev fsnotify.Event, events chan<- Event) {
	rel, err := filepath.Rel(s.root, ev.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)
	name := filepath.Base(ev.Name)

	// New directories are added to the watcher so later writes inside
	// them are seen.
	if ev.Op.Has(fsnotify.Create) {
		if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
			if !s.excludedDir(name, rel) {
				if addErr := watcher.Add(ev.Name); addErr != nil {
					log.Printf("scanner: cannot watch %s: %v", ev.Name, addErr)
				}
			}
			return
		}
	}

	if !s.Accepts(rel, name) {
		return
	}

	var kind ChangeKind
	switch {
	case ev.Op.Has(fsnotify.Create):
		kind = ChangeCreate
	case ev.Op.Has(fsnotify.Write):
		kind = ChangeWrite
	case ev.Op.Has(fsnotify.Remove):
		kind = ChangeRemove
	case ev.Op.Has(fsnotify.Rename):
		kind = ChangeRename
	default:
		return
	}

	select {
	case events <- Event{Path: ev.Name, Kind: kind}:
	case <-ctx.Done():
	}
}
