package cache

import (
	"context"
	"sync"
	"time"

	"proximity-sync/internal/logging"
	"proximity-sync/internal/models"
	"proximity-sync/internal/observability"
)

// MessageSource is the remote subscription a mirror consumes. Satisfied by
// directory.MessageStream.
type MessageSource interface {
	C() <-chan []models.Message
	Cancel()
}

// Mirror keeps one conversation's local replica current. Snapshots from
// the remote subscription are handed to a background writer so the read
// path never waits on the network. Cancel stops the listener and the
// writer; rows already cached stay for instant next-open display.
type Mirror struct {
	conversationID string
	cache          MessageCache
	source         MessageSource

	pending chan []models.Message
	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

// NewMirror starts mirroring immediately.
func NewMirror(conversationID string, cache MessageCache, source MessageSource) *Mirror {
	m := &Mirror{
		conversationID: conversationID,
		cache:          cache,
		source:         source,
		pending:        make(chan []models.Message, 1),
		done:           make(chan struct{}),
	}

	m.wg.Add(2)
	go m.listen()
	go m.write()
	return m
}

// Cancel tears the mirror down: the remote listener stops and the writer
// performs no further writes. Idempotent.
func (m *Mirror) Cancel() {
	m.once.Do(func() {
		m.source.Cancel()
		close(m.done)
	})
	m.wg.Wait()
}

// listen drains the remote subscription, always keeping only the newest
// snapshot pending. The remote is authoritative; intermediate snapshots
// are superseded, not queued.
func (m *Mirror) listen() {
	defer m.wg.Done()
	for snapshot := range m.source.C() {
		select {
		case m.pending <- snapshot:
		default:
			select {
			case <-m.pending:
			default:
			}
			select {
			case m.pending <- snapshot:
			default:
			}
		}
	}
}

func (m *Mirror) write() {
	defer m.wg.Done()
	for {
		select {
		case <-m.done:
			return
		case snapshot := <-m.pending:
			start := time.Now()
			err := m.cache.ReplaceConversation(context.Background(), m.conversationID, snapshot)
			observability.ObserveMirrorSync(time.Since(start), err)
			if err != nil {
				logging.L().Errorw("mirror write failed", "conversation_id", m.conversationID, "error", err)
			}
		}
	}
}
