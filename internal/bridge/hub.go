// Package bridge carries one-shot messages from a page (bookmarklet or content script)
// to the running popup.
package bridge

import (
	"strings"
	"sync"
)

const TypeSelection = "selection"

type Message struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Hub fans incoming messages out to registered listeners.
type Hub struct {
	mu        sync.Mutex
	next      int
	listeners map[int]func(Message)
}

func NewHub() *Hub {
	return &Hub{listeners: map[int]func(Message){}}
}

// Add registers fn and returns a func that removes it. Removing twice is harmless.
func (h *Hub) Add(fn func(Message)) (remove func()) {
	h.mu.Lock()
	id := h.next
	h.next++
	h.listeners[id] = fn
	h.mu.Unlock()
	return func() {
		h.mu.Lock()
		delete(h.listeners, id)
		h.mu.Unlock()
	}
}

// Dispatch delivers m to every listener registered at call time and reports how many there were.
func (h *Hub) Dispatch(m Message) int {
	h.mu.Lock()
	fns := make([]func(Message), 0, len(h.listeners))
	for _, fn := range h.listeners {
		fns = append(fns, fn)
	}
	h.mu.Unlock()
	for _, fn := range fns {
		fn(m)
	}
	return len(fns)
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners)
}

// OnceSelection registers a listener for the first "selection" message. The listener removes
// itself on first use; later selections are ignored. The channel receives at most one value.
func OnceSelection(h *Hub) (<-chan string, func()) {
	ch := make(chan string, 1)
	var once sync.Once
	var remove func()
	var removeMu sync.Mutex

	removeMu.Lock()
	remove = h.Add(func(m Message) {
		if m.Type != TypeSelection {
			return
		}
		once.Do(func() {
			removeMu.Lock()
			r := remove
			removeMu.Unlock()
			r()
			ch <- strings.TrimSpace(m.Value)
		})
	})
	removeMu.Unlock()
	return ch, remove
}
