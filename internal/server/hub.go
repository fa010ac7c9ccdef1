package server

import "sync"

// hub fans out "dashboard changed" notifications to open SSE streams.
type hub struct {
	mu     sync.Mutex
	subs   map[string]map[chan struct{}]struct{}
	done   chan struct{}
	closed bool
}

func newHub() *hub {
	return &hub{
		subs: make(map[string]map[chan struct{}]struct{}),
		done: make(chan struct{}),
	}
}

// close ends every open stream. Later subscribers see it closed at once.
func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.closed {
		h.closed = true
		close(h.done)
	}
}

// subscribe returns a channel that receives after every publish for id, and
// a function that unsubscribes. Notifications coalesce while the reader is
// busy.
func (h *hub) subscribe(id string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	h.mu.Lock()
	if h.subs[id] == nil {
		h.subs[id] = make(map[chan struct{}]struct{})
	}
	h.subs[id][ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		delete(h.subs[id], ch)
		if len(h.subs[id]) == 0 {
			delete(h.subs, id)
		}
		h.mu.Unlock()
	}
}

func (h *hub) publish(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[id] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (h *hub) subscribers(id string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[id])
}
