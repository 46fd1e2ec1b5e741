package indexer

import (
	"context"
	"log"

	"github.com/dshills/kbgraph-mcp/internal/scanner"
)

// Watch starts incremental indexing: created and modified files are
// re-extracted and merged into the chunk set and graph. Removes and
// renames leave the stale chunk behind until the next full pass. The
// returned error covers watcher construction only; the loop itself runs
// until ctx is done.
func (c *Coordinator) Watch(ctx context.Context) error {
	events, err := c.scanner.Watch(ctx)
	if err != nil {
		return err
	}

	go c.watchLoop(ctx, events)
	return nil
}

func (c *Coordinator) watchLoop(ctx context.Context, events <-chan scanner.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.handleEvent(ctx, ev)
		}
	}
}

func (c *Coordinator) handleEvent(ctx context.Context, ev scanner.Event) {
	switch ev.Kind {
	case scanner.ChangeCreate, scanner.ChangeWrite:
	default:
		return
	}

	fileCtx, cancel := context.WithTimeout(ctx, c.config.FileTimeout)
	defer cancel()

	chunk, err := c.extractor.Extract(fileCtx, c.scanner.Root(), ev.Path)
	if err != nil {
		log.Printf("indexer: watch update %s: %v", ev.Path, err)
		return
	}

	c.chunks.Put(chunk)
	c.graph.UpdateNode(chunk)
}
