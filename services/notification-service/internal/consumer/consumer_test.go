package consumer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	committed []int64
	drained   chan struct{}
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.msgs) > 0 {
		m := r.msgs[0]
		r.msgs = r.msgs[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	select {
	case r.drained <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func TestRunRetriesThenCommits(t *testing.T) {
	reader := &fakeReader{
		msgs:    []kafka.Message{{Topic: "t", Offset: 1}, {Topic: "t", Offset: 2}},
		drained: make(chan struct{}, 1),
	}
	calls := map[int64]int{}
	handler := func(_ context.Context, msg kafka.Message) error {
		calls[msg.Offset]++
		if msg.Offset == 1 && calls[msg.Offset] < 2 {
			return errors.New("transient")
		}
		if msg.Offset == 2 {
			return errors.New("permanent")
		}
		return nil
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := NewWithReader(logger, reader, Config{Attempts: 3, Backoff: time.Millisecond}, handler)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	select {
	case <-reader.drained:
	case <-time.After(5 * time.Second):
		t.Fatalf("consumer did not drain")
	}
	cancel()
	<-done

	if calls[1] != 2 || calls[2] != 3 {
		t.Fatalf("unexpected attempts: %v", calls)
	}
	if len(reader.committed) != 2 || reader.committed[0] != 1 || reader.committed[1] != 2 {
		t.Fatalf("unexpected commits: %v", reader.committed)
	}
}
