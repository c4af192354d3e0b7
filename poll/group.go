package poll

import (
	"context"
	"sync"
)

type starter interface {
	Start(ctx context.Context) *Handle
}

// Group owns the running tasks of one view.
type Group struct {
	mu      sync.Mutex
	handles []*Handle
	stopped bool
}

func NewGroup() *Group {
	return &Group{}
}

// Go starts task under the group. After Stop it is a no-op.
func (g *Group) Go(ctx context.Context, task starter) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stopped {
		return
	}
	g.handles = append(g.handles, task.Start(ctx))
}

// Stop halts every task and waits for them to exit. No fetch starts after it returns.
func (g *Group) Stop() {
	g.mu.Lock()
	handles := g.handles
	g.handles = nil
	g.stopped = true
	g.mu.Unlock()

	for _, h := range handles {
		h.Stop()
	}
}

func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.handles)
}
