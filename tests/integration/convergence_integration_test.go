//go:build integration

package integration

import (
    "context"
    "fmt"
    "testing"
    "time"
)

// TestWriteCommitSearchConvergence drives the core scenario against a live
// cluster: create an index, write a batch everywhere, commit, then wait for
// every node to report the exact hit count.
func TestWriteCommitSearchConvergence(t *testing.T) {
    h, nodes := envHarness(t)
    ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
    defer cancel()

    if err := h.WaitForPing(ctx, h.All()); err != nil {
        t.Fatalf("ping: %v", err)
    }

    index := fmt.Sprintf("converge_it_%d", time.Now().Unix())
    if err := h.CreateIndex(ctx, nodes[0], index); err != nil {
        t.Fatalf("create index: %v", err)
    }
    if err := h.WaitForIndex(ctx, h.All(), index); err != nil {
        t.Fatalf("index propagation: %v", err)
    }

    const batch = 1000
    if err := h.WriteObjects(ctx, index, "body_t", "converge", batch); err != nil {
        t.Fatalf("write: %v", err)
    }
    if err := h.Commit(ctx, nodes[0], index); err != nil {
        t.Fatalf("commit: %v", err)
    }
    if err := h.WaitForSearchCount(ctx, h.All(), index, "body_t", "converge", batch); err != nil {
        t.Fatalf("search convergence: %v", err)
    }
    for _, n := range nodes {
        if err := h.SearchExpect(ctx, n, index, "body_t", "converge", batch); err != nil {
            t.Fatalf("exact count on %s: %v", n.ID, err)
        }
    }
}

// TestFullExchangeRound proves anti-entropy completes a full round after a
// reference point captured before the wait.
func TestFullExchangeRound(t *testing.T) {
    h, _ := envHarness(t)
    ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
    defer cancel()

    if err := h.WaitForPing(ctx, h.All()); err != nil {
        t.Fatalf("ping: %v", err)
    }
    since := time.Now()
    if err := h.WaitForFullExchangeRound(ctx, h.All(), since); err != nil {
        t.Fatalf("exchange round: %v", err)
    }
}

// TestFuseBlowResetCycle engages and releases backpressure explicitly and
// watches the status propagate on every node.
func TestFuseBlowResetCycle(t *testing.T) {
    h, nodes := envHarness(t)
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
    defer cancel()

    index := fmt.Sprintf("converge_fuse_%d", time.Now().Unix())
    if err := h.CreateIndex(ctx, nodes[0], index); err != nil {
        t.Fatalf("create index: %v", err)
    }
    if err := h.WaitForIndex(ctx, h.All(), index); err != nil {
        t.Fatalf("index propagation: %v", err)
    }

    for _, n := range nodes {
        if err := h.BlowFuse(ctx, n, "default", index); err != nil {
            t.Fatalf("blow fuse on %s: %v", n.ID, err)
        }
    }
    if err := h.WaitUntilFusesBlown(ctx, h.All(), "default", []string{index}); err != nil {
        t.Fatalf("fuses blown: %v", err)
    }

    for _, n := range nodes {
        if err := h.ResetFuse(ctx, n, "default", index); err != nil {
            t.Fatalf("reset fuse on %s: %v", n.ID, err)
        }
    }
    if err := h.WaitUntilFusesReset(ctx, h.All(), "default", []string{index}); err != nil {
        t.Fatalf("fuses reset: %v", err)
    }
}
