package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/rollcall/internal/domain/model"
)

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	if err := q.Put(ctx, model.Frame{Seq: 1}); err != nil {
		t.Fatalf("expected put to succeed, got %v", err)
	}
	if l := q.Len(); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	f := <-q.Frames()
	if f.Seq != 1 {
		t.Errorf("expected frame 1, got %d", f.Seq)
	}
	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_FIFO(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(8))
	ctx := context.Background()

	for i := uint64(1); i <= 5; i++ {
		if err := q.Put(ctx, model.Frame{Seq: i}); err != nil {
			t.Fatalf("put %d: %v", i, err)
		}
	}
	for want := uint64(1); want <= 5; want++ {
		if got := (<-q.Frames()).Seq; got != want {
			t.Fatalf("expected frame %d, got %d", want, got)
		}
	}
}

func TestInMemoryQueue_PutBlocksWhenFull(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1))
	ctx := context.Background()

	if err := q.Put(ctx, model.Frame{Seq: 1}); err != nil {
		t.Fatal(err)
	}

	tctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := q.Put(tctx, model.Frame{Seq: 2}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- q.Put(ctx, model.Frame{Seq: 3}) }()
	<-q.Frames()
	if err := <-done; err != nil {
		t.Fatalf("expected blocked put to complete, got %v", err)
	}
	if got := (<-q.Frames()).Seq; got != 3 {
		t.Errorf("expected frame 3, got %d", got)
	}
}

func TestInMemoryQueue_Close(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1))
	ctx := context.Background()

	if err := q.Put(ctx, model.Frame{Seq: 1}); err != nil {
		t.Fatal(err)
	}

	blocked := make(chan error, 1)
	go func() { blocked <- q.Put(ctx, model.Frame{Seq: 2}) }()
	time.Sleep(10 * time.Millisecond)

	if err := q.Close(); err != nil {
		t.Fatal(err)
	}
	if err := <-blocked; !errors.Is(err, ErrClosed) {
		t.Errorf("expected blocked put to fail with ErrClosed, got %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed")
	}
	if err := q.Put(ctx, model.Frame{Seq: 3}); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}

	// Queued frames survive Close.
	f, ok := <-q.Frames()
	if !ok || f.Seq != 1 {
		t.Errorf("expected queued frame 1, got %v ok=%v", f.Seq, ok)
	}
	if _, ok := <-q.Frames(); ok {
		t.Error("expected channel closed after drain")
	}
	if err := q.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
}
