package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryStoreGetSetDelete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.Get(ctx, "users/a")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "users/a", []byte(`{"uid":"a"}`)))
	data, err := s.Get(ctx, "users/a")
	require.NoError(t, err)
	require.JSONEq(t, `{"uid":"a"}`, string(data))

	require.NoError(t, s.Delete(ctx, "users/a"))
	_, err = s.Get(ctx, "users/a")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreListByPrefix(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "conversations/a_b", []byte(`1`)))
	require.NoError(t, s.Set(ctx, "conversations/a_c", []byte(`2`)))
	require.NoError(t, s.Set(ctx, "users/a", []byte(`3`)))

	docs, err := s.List(ctx, "conversations/")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	require.Contains(t, docs, "conversations/a_b")
	require.Contains(t, docs, "conversations/a_c")
}

func TestMemoryStoreTransactionIsAtomic(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "users/a", []byte(`old`)))

	boom := errors.New("boom")
	err := s.RunTransaction(ctx, func(tx Tx) error {
		tx.Set("users/a", []byte(`new`))
		tx.Set("users/b", []byte(`new`))
		return boom
	})
	require.ErrorIs(t, err, boom)

	// Nothing staged may leak.
	data, err := s.Get(ctx, "users/a")
	require.NoError(t, err)
	require.Equal(t, "old", string(data))
	_, err = s.Get(ctx, "users/b")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreTransactionReadsOwnWrites(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	err := s.RunTransaction(ctx, func(tx Tx) error {
		tx.Set("users/a", []byte(`v1`))
		data, err := tx.Get("users/a")
		if err != nil {
			return err
		}
		require.Equal(t, "v1", string(data))
		tx.Delete("users/a")
		_, err = tx.Get("users/a")
		require.ErrorIs(t, err, ErrNotFound)
		return nil
	})
	require.NoError(t, err)

	_, err = s.Get(ctx, "users/a")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreSubscribeFiltersByPrefix(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	watch, err := s.Subscribe(ctx, "conversations/")
	require.NoError(t, err)
	defer watch.Cancel()

	require.NoError(t, s.Set(ctx, "users/a", []byte(`x`)))
	require.NoError(t, s.Set(ctx, "conversations/a_b", []byte(`y`)))

	select {
	case event := <-watch.C():
		require.Equal(t, "conversations/a_b", event.Path)
	case <-time.After(time.Second):
		t.Fatal("expected change event")
	}
}

func TestMemoryStoreSubscribeCancelStopsDelivery(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	watch, err := s.Subscribe(ctx, "")
	require.NoError(t, err)
	watch.Cancel()

	require.NoError(t, s.Set(ctx, "users/a", []byte(`x`)))
	_, open := <-watch.C()
	require.False(t, open)
}
