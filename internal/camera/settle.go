package camera

import (
	"context"
	"sync"

	"github.com/chromedp/cdproto/page"
)

// lifecycleNetworkIdle is the page lifecycle event fired once the page has
// had no network activity for a short while.
const lifecycleNetworkIdle = "networkIdle"

// pageSettler tracks the lifecycle events of a tab and reports when the
// latest navigation reached networkIdle. networkIdle may fire more than once
// per navigation; only the first counts.
type pageSettler struct {
	mu   sync.Mutex
	idle chan struct{}
	done bool
}

func newPageSettler() *pageSettler {
	return &pageSettler{idle: make(chan struct{})}
}

// reset arms the settler for the next navigation.
func (s *pageSettler) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.idle = make(chan struct{})
	s.done = false
}

// onEvent is a chromedp target listener. It runs on the CDP event goroutine.
func (s *pageSettler) onEvent(ev any) {
	e, ok := ev.(*page.EventLifecycleEvent)
	if !ok || e.Name != lifecycleNetworkIdle {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.done {
		s.done = true
		close(s.idle)
	}
}

// wait blocks until the page settles or ctx is done, and reports whether it
// settled.
func (s *pageSettler) wait(ctx context.Context) bool {
	s.mu.Lock()
	idle := s.idle
	s.mu.Unlock()

	select {
	case <-idle:
		return true
	case <-ctx.Done():
		return false
	}
}
