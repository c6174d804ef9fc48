package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/kirillkom/label-compliance/internal/core/domain"
)

func setupTestRedis(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	store, err := NewRedisStore("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("failed to create redis store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store, s
}

func TestEnsureSessionIsIdempotent(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()

	first, err := store.EnsureSession(ctx, domain.Session{ID: "s-1", OriginAnalysisID: "a-1", CreatedAt: time.Now().UTC()})
	if err != nil {
		t.Fatalf("EnsureSession failed: %v", err)
	}
	second, err := store.EnsureSession(ctx, domain.Session{ID: "s-2", OriginAnalysisID: "a-1", CreatedAt: time.Now().UTC()})
	if err != nil {
		t.Fatalf("EnsureSession failed: %v", err)
	}
	if first.ID != "s-1" || second.ID != "s-1" {
		t.Fatalf("expected both calls to return s-1, got %s and %s", first.ID, second.ID)
	}
	if _, err := store.GetSession(ctx, "s-2"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("losing session must not be stored, got %v", err)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	store, _ := setupTestRedis(t)

	if _, err := store.GetSession(context.Background(), "missing"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestAppendAndListIterations(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()

	if _, err := store.EnsureSession(ctx, domain.Session{ID: "s-1", OriginAnalysisID: "a-1"}); err != nil {
		t.Fatalf("EnsureSession failed: %v", err)
	}

	first, err := store.AppendIteration(ctx, domain.Iteration{
		ID: "it-1", SessionID: "s-1", Kind: domain.IterationChat,
		Payload: domain.IterationPayload{Message: "hi", Response: "hello"},
	})
	if err != nil {
		t.Fatalf("AppendIteration failed: %v", err)
	}
	second, err := store.AppendIteration(ctx, domain.Iteration{
		ID: "it-2", SessionID: "s-1", Kind: domain.IterationRevisedUpload,
		Payload: domain.IterationPayload{AnalysisID: "a-2"},
	})
	if err != nil {
		t.Fatalf("AppendIteration failed: %v", err)
	}
	if first.Seq != 1 || second.Seq != 2 {
		t.Fatalf("unexpected seqs: %d, %d", first.Seq, second.Seq)
	}

	history, err := store.ListIterations(ctx, "s-1")
	if err != nil {
		t.Fatalf("ListIterations failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 iterations, got %d", len(history))
	}
	if history[0].Payload.Response != "hello" || history[1].Payload.AnalysisID != "a-2" || history[1].SessionID != "s-1" {
		t.Fatalf("unexpected history: %+v", history)
	}
}

func TestAppendIterationUnknownSession(t *testing.T) {
	store, s := setupTestRedis(t)

	_, err := store.AppendIteration(context.Background(), domain.Iteration{
		ID: "it-1", SessionID: "missing", Kind: domain.IterationChat,
		Payload: domain.IterationPayload{Message: "hi"},
	})
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if s.Exists("compliance:session:missing:iterations") {
		t.Fatalf("no iteration list must be created for an unknown session")
	}
}

func TestConcurrentAppendsGetDistinctSeqs(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()
	if _, err := store.EnsureSession(ctx, domain.Session{ID: "s-1", OriginAnalysisID: "a-1"}); err != nil {
		t.Fatalf("EnsureSession failed: %v", err)
	}

	const writers = 20
	var wg sync.WaitGroup
	seqs := make(chan int64, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			it, err := store.AppendIteration(ctx, domain.Iteration{
				ID: fmt.Sprintf("it-%d", i), SessionID: "s-1", Kind: domain.IterationChat,
				Payload: domain.IterationPayload{Message: "m"},
			})
			if err != nil {
				t.Errorf("AppendIteration failed: %v", err)
				return
			}
			seqs <- it.Seq
		}(i)
	}
	wg.Wait()
	close(seqs)

	seen := make(map[int64]bool, writers)
	for seq := range seqs {
		if seen[seq] {
			t.Fatalf("duplicate seq %d", seq)
		}
		seen[seq] = true
	}
	history, err := store.ListIterations(ctx, "s-1")
	if err != nil {
		t.Fatalf("ListIterations failed: %v", err)
	}
	if len(history) != writers {
		t.Fatalf("expected %d iterations, got %d", writers, len(history))
	}
}

func TestListIterationsEmptySession(t *testing.T) {
	store, _ := setupTestRedis(t)

	history, err := store.ListIterations(context.Background(), "s-1")
	if err != nil {
		t.Fatalf("ListIterations failed: %v", err)
	}
	if history == nil || len(history) != 0 {
		t.Fatalf("expected empty non-nil history, got %#v", history)
	}
}
