package replay

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

func TestCheckAndConsume(t *testing.T) {
	g := NewMemoryGuard(0, 0)
	ctx := context.Background()

	ok, err := g.CheckAndConsume(ctx, "n1")
	if err != nil || !ok {
		t.Fatalf("fresh nonce rejected: ok=%v err=%v", ok, err)
	}

	ok, err = g.CheckAndConsume(ctx, "n1")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("reused nonce must be rejected")
	}

	ok, _ = g.CheckAndConsume(ctx, "n2")
	if !ok {
		t.Fatal("distinct nonce must be accepted")
	}
}

func TestEvictionBoundsMemory(t *testing.T) {
	g := NewMemoryGuard(100, 10)
	ctx := context.Background()

	for i := 0; i < 250; i++ {
		ok, _ := g.CheckAndConsume(ctx, fmt.Sprintf("nonce-%d", i))
		if !ok {
			t.Fatalf("nonce-%d rejected unexpectedly", i)
		}
	}

	if g.Len() > 100 {
		t.Fatalf("guard retained %d entries, capacity is 100", g.Len())
	}
}

func TestEvictionNeverDropsJustInserted(t *testing.T) {
	g := NewMemoryGuard(10, 5)
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		nonce := fmt.Sprintf("nonce-%d", i)
		g.CheckAndConsume(ctx, nonce)
		if ok, _ := g.CheckAndConsume(ctx, nonce); ok {
			t.Fatalf("nonce-%d accepted twice immediately after insertion", i)
		}
	}
}

func TestEvictionMakesForwardProgress(t *testing.T) {
	g := NewMemoryGuard(10, 3)
	ctx := context.Background()

	// Well past capacity; the oldest entries get evicted and an old
	// nonce becomes reusable. That is the documented tradeoff.
	for i := 0; i < 100; i++ {
		g.CheckAndConsume(ctx, fmt.Sprintf("nonce-%d", i))
	}
	if ok, _ := g.CheckAndConsume(ctx, "nonce-0"); !ok {
		t.Fatal("expected nonce-0 to have been evicted by now")
	}
}

func TestConcurrentSameNonce(t *testing.T) {
	g := NewMemoryGuard(0, 0)
	ctx := context.Background()

	const workers = 32
	var wg sync.WaitGroup
	accepted := make(chan bool, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, _ := g.CheckAndConsume(ctx, "contested")
			accepted <- ok
		}()
	}
	wg.Wait()
	close(accepted)

	wins := 0
	for ok := range accepted {
		if ok {
			wins++
		}
	}
	if wins != 1 {
		t.Fatalf("exactly one caller must win the nonce, got %d", wins)
	}
}
