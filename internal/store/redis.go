package store

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/go-redis/redis/v8"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	keyPrefix     = "doc:"
	changeChannel = "docstore:changes"
	txAttempts    = 3
)

// RedisStore adapts Redis to the Store contract: JSON documents under
// doc:<path> keys, WATCH-guarded conditional transactions and a pub/sub
// change feed on a single channel, filtered by prefix client-side.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Connect dials Redis and verifies the connection.
func Connect(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &RedisStore{client: client}, nil
}

// Close releases the underlying client.
func (s *RedisStore) Close() error { return s.client.Close() }

func (s *RedisStore) Get(ctx context.Context, path string) ([]byte, error) {
	data, err := s.client.Get(ctx, keyPrefix+path).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	return data, err
}

func (s *RedisStore) Set(ctx context.Context, path string, data []byte) error {
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, keyPrefix+path, data, 0)
	publishEvent(ctx, pipe, Event{Path: path, Data: data})
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Delete(ctx context.Context, path string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, keyPrefix+path)
	publishEvent(ctx, pipe, Event{Path: path, Deleted: true})
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) List(ctx context.Context, prefix string) (map[string][]byte, error) {
	out := make(map[string][]byte)
	iter := s.client.Scan(ctx, 0, keyPrefix+prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		data, err := s.client.Get(ctx, key).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[strings.TrimPrefix(key, keyPrefix)] = data
	}
	return out, iter.Err()
}

// RunTransaction runs fn against a read-recording view, then commits the
// staged writes under WATCH on every key fn read. If any read key changed
// between read and commit the attempt is retried; exhausting attempts
// surfaces ErrTxConflict.
func (s *RedisStore) RunTransaction(ctx context.Context, fn func(tx Tx) error) error {
	for attempt := 0; attempt < txAttempts; attempt++ {
		view := &redisTx{ctx: ctx, client: s.client, reads: make(map[string][]byte), staged: make(map[string]*[]byte)}
		if err := fn(view); err != nil {
			return err
		}
		if len(view.order) == 0 {
			return nil
		}

		watched := make([]string, 0, len(view.reads))
		for path := range view.reads {
			watched = append(watched, keyPrefix+path)
		}

		err := s.client.Watch(ctx, func(rtx *redis.Tx) error {
			for path, seen := range view.reads {
				current, err := rtx.Get(ctx, keyPrefix+path).Bytes()
				if err == redis.Nil {
					current = nil
				} else if err != nil {
					return err
				}
				if !bytes.Equal(current, seen) {
					return ErrTxConflict
				}
			}
			_, err := rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				for _, path := range view.order {
					data := view.staged[path]
					if data == nil {
						pipe.Del(ctx, keyPrefix+path)
						publishEvent(ctx, pipe, Event{Path: path, Deleted: true})
						continue
					}
					pipe.Set(ctx, keyPrefix+path, *data, 0)
					publishEvent(ctx, pipe, Event{Path: path, Data: *data})
				}
				return nil
			})
			return err
		}, watched...)

		if err == redis.TxFailedErr || errors.Is(err, ErrTxConflict) {
			continue
		}
		return err
	}
	return ErrTxConflict
}

func (s *RedisStore) Subscribe(ctx context.Context, prefix string) (Watch, error) {
	pubsub := s.client.Subscribe(ctx, changeChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	watch := &redisWatch{pubsub: pubsub, ch: make(chan Event, watchBuffer)}
	go func() {
		defer close(watch.ch)
		for msg := range pubsub.Channel() {
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue
			}
			if !strings.HasPrefix(event.Path, prefix) {
				continue
			}
			select {
			case watch.ch <- event:
			default:
			}
		}
	}()
	return watch, nil
}

func publishEvent(ctx context.Context, pipe redis.Pipeliner, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	pipe.Publish(ctx, changeChannel, payload)
}

type redisWatch struct {
	pubsub *redis.PubSub
	ch     chan Event
	once   sync.Once
}

func (w *redisWatch) C() <-chan Event { return w.ch }

func (w *redisWatch) Cancel() {
	w.once.Do(func() { _ = w.pubsub.Close() })
}

// redisTx records first-read values for the WATCH compare and stages
// writes. Staged entries override committed state for reads inside the
// same transaction; a nil staged value marks a delete.
type redisTx struct {
	ctx    context.Context
	client *redis.Client
	reads  map[string][]byte
	staged map[string]*[]byte
	order  []string
}

func (tx *redisTx) Get(path string) ([]byte, error) {
	if data, ok := tx.staged[path]; ok {
		if data == nil {
			return nil, ErrNotFound
		}
		return *data, nil
	}
	data, err := tx.client.Get(tx.ctx, keyPrefix+path).Bytes()
	if err == redis.Nil {
		if _, seen := tx.reads[path]; !seen {
			tx.reads[path] = nil
		}
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if _, seen := tx.reads[path]; !seen {
		tx.reads[path] = data
	}
	return data, nil
}

func (tx *redisTx) Set(path string, data []byte) {
	cloned := make([]byte, len(data))
	copy(cloned, data)
	if _, ok := tx.staged[path]; !ok {
		tx.order = append(tx.order, path)
	}
	tx.staged[path] = &cloned
}

func (tx *redisTx) Delete(path string) {
	if _, ok := tx.staged[path]; !ok {
		tx.order = append(tx.order, path)
	}
	tx.staged[path] = nil
}
