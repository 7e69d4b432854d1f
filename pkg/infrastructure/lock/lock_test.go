package lock

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestLocalLocker_SerializesSameKey(t *testing.T) {
	locker := NewLocalLocker()
	ctx := context.Background()

	var (
		mu      sync.Mutex
		holders int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Acquire(ctx, "revalue:lot:L1")
			if err != nil {
				t.Errorf("Acquire failed: %v", err)
				return
			}
			mu.Lock()
			holders++
			if holders > maxSeen {
				maxSeen = holders
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			holders--
			mu.Unlock()
			_ = release(ctx)
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Errorf("Expected at most one holder at a time, saw %d", maxSeen)
	}
	if len(locker.locks) != 0 {
		t.Errorf("Expected lock table to be empty after release, got %d", len(locker.locks))
	}
}

func TestLocalLocker_DifferentKeysDoNotBlock(t *testing.T) {
	locker := NewLocalLocker()
	ctx := context.Background()

	releaseA, err := locker.Acquire(ctx, "a")
	if err != nil {
		t.Fatalf("Acquire a failed: %v", err)
	}
	defer releaseA(ctx)

	timeout, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	releaseB, err := locker.Acquire(timeout, "b")
	if err != nil {
		t.Fatalf("Expected b to be free, got %v", err)
	}
	_ = releaseB(ctx)
}

func TestLocalLocker_ContextCancelled(t *testing.T) {
	locker := NewLocalLocker()
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "k")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	timeout, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if _, err := locker.Acquire(timeout, "k"); !errors.Is(err, ErrNotObtained) {
		t.Fatalf("Expected ErrNotObtained, got %v", err)
	}

	_ = release(ctx)
	_ = release(ctx)

	again, err := locker.Acquire(ctx, "k")
	if err != nil {
		t.Fatalf("Expected lock to be free after release, got %v", err)
	}
	_ = again(ctx)
}

func TestRedisLocker_ExclusiveAcrossClients(t *testing.T) {
	addr := os.Getenv("REDIS_ADDRESS")
	if addr == "" {
		t.Skip("set REDIS_ADDRESS to run redis lock tests")
	}
	ctx := context.Background()

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()

	first := NewRedisLocker(rdb, 5*time.Second)
	second := NewRedisLocker(rdb, 5*time.Second)

	release, err := first.Acquire(ctx, "test:lot:L1")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	timeout, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()
	if _, err := second.Acquire(timeout, "test:lot:L1"); !errors.Is(err, ErrNotObtained) {
		t.Errorf("Expected ErrNotObtained while held, got %v", err)
	}

	if err := release(ctx); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	releaseAgain, err := second.Acquire(ctx, "test:lot:L1")
	if err != nil {
		t.Fatalf("Expected lock after release, got %v", err)
	}
	_ = releaseAgain(ctx)
}
