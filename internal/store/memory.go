package store

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore is an in-process Store used by tests and local development.
// It honors the same contract as the Redis adapter: staged transaction
// writes are invisible until commit, and subscribers receive an event per
// committed write.
type MemoryStore struct {
	mu       sync.Mutex
	docs     map[string][]byte
	watchers map[*memoryWatch]struct{}
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:     make(map[string][]byte),
		watchers: make(map[*memoryWatch]struct{}),
	}
}

func (s *MemoryStore) Get(ctx context.Context, path string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.docs[path]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneBytes(data), nil
}

func (s *MemoryStore) Set(ctx context.Context, path string, data []byte) error {
	s.mu.Lock()
	s.docs[path] = cloneBytes(data)
	events := []Event{{Path: path, Data: cloneBytes(data)}}
	watchers := s.snapshotWatchers()
	s.mu.Unlock()

	notify(watchers, events)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, path string) error {
	s.mu.Lock()
	delete(s.docs, path)
	events := []Event{{Path: path, Deleted: true}}
	watchers := s.snapshotWatchers()
	s.mu.Unlock()

	notify(watchers, events)
	return nil
}

func (s *MemoryStore) List(ctx context.Context, prefix string) (map[string][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string][]byte)
	for path, data := range s.docs {
		if strings.HasPrefix(path, prefix) {
			out[path] = cloneBytes(data)
		}
	}
	return out, nil
}

// RunTransaction executes fn under the store lock. Writes staged through
// the Tx are applied only if fn returns nil; any error discards them all.
func (s *MemoryStore) RunTransaction(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()

	tx := &memoryTx{store: s, staged: make(map[string]*[]byte)}
	if err := fn(tx); err != nil {
		s.mu.Unlock()
		return err
	}

	events := make([]Event, 0, len(tx.order))
	for _, path := range tx.order {
		data := tx.staged[path]
		if data == nil {
			delete(s.docs, path)
			events = append(events, Event{Path: path, Deleted: true})
			continue
		}
		s.docs[path] = cloneBytes(*data)
		events = append(events, Event{Path: path, Data: cloneBytes(*data)})
	}
	watchers := s.snapshotWatchers()
	s.mu.Unlock()

	notify(watchers, events)
	return nil
}

func (s *MemoryStore) Subscribe(ctx context.Context, prefix string) (Watch, error) {
	watch := &memoryWatch{
		store:  s,
		prefix: prefix,
		ch:     make(chan Event, watchBuffer),
	}
	s.mu.Lock()
	s.watchers[watch] = struct{}{}
	s.mu.Unlock()

	if ctx != nil && ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			watch.Cancel()
		}()
	}
	return watch, nil
}

func (s *MemoryStore) snapshotWatchers() []*memoryWatch {
	out := make([]*memoryWatch, 0, len(s.watchers))
	for w := range s.watchers {
		out = append(out, w)
	}
	return out
}

func (s *MemoryStore) removeWatcher(w *memoryWatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.watchers[w]; ok {
		delete(s.watchers, w)
		close(w.ch)
	}
}

func notify(watchers []*memoryWatch, events []Event) {
	for _, w := range watchers {
		for _, event := range events {
			w.send(event)
		}
	}
}

const watchBuffer = 64

type memoryWatch struct {
	store  *MemoryStore
	prefix string
	ch     chan Event
	mu     sync.Mutex
	done   bool
}

func (w *memoryWatch) C() <-chan Event { return w.ch }

func (w *memoryWatch) Cancel() {
	w.mu.Lock()
	if w.done {
		w.mu.Unlock()
		return
	}
	w.done = true
	w.mu.Unlock()
	w.store.removeWatcher(w)
}

func (w *memoryWatch) send(event Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done || !strings.HasPrefix(event.Path, w.prefix) {
		return
	}
	select {
	case w.ch <- event:
	default:
	}
}

// memoryTx stages writes; staged entries override committed state for
// reads inside the same transaction. A nil staged value marks a delete.
type memoryTx struct {
	store  *MemoryStore
	staged map[string]*[]byte
	order  []string
}

func (tx *memoryTx) Get(path string) ([]byte, error) {
	if data, ok := tx.staged[path]; ok {
		if data == nil {
			return nil, ErrNotFound
		}
		return cloneBytes(*data), nil
	}
	data, ok := tx.store.docs[path]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneBytes(data), nil
}

func (tx *memoryTx) Set(path string, data []byte) {
	cloned := cloneBytes(data)
	if _, ok := tx.staged[path]; !ok {
		tx.order = append(tx.order, path)
	}
	tx.staged[path] = &cloned
}

func (tx *memoryTx) Delete(path string) {
	if _, ok := tx.staged[path]; !ok {
		tx.order = append(tx.order, path)
	}
	tx.staged[path] = nil
}

func cloneBytes(data []byte) []byte {
	if data == nil {
		return nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out
}
