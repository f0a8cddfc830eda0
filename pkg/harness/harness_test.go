package harness_test

import (
    "context"
    "testing"
    "time"

    "github.com/stretchr/testify/require"

    "github.com/amirimatin/go-converge/pkg/clustertest"
    "github.com/amirimatin/go-converge/pkg/harness"
    "github.com/amirimatin/go-converge/pkg/poll"
    "github.com/amirimatin/go-converge/pkg/search"
    "github.com/amirimatin/go-converge/pkg/transport/httpjson"
    "github.com/amirimatin/go-converge/pkg/verify"
)

func newHarness(t *testing.T, fc *clustertest.FakeCluster, attempts int, delay time.Duration) *harness.Harness {
    t.Helper()
    c, err := fc.Cluster()
    require.NoError(t, err)
    client := httpjson.NewClient(2 * time.Second)
    h, err := harness.New(c, harness.Options{
        RPC:      client,
        HTTP:     client,
        Attempts: attempts,
        Delay:    delay,
    })
    require.NoError(t, err)
    return h
}

func TestHarness_WriteCommitConverge(t *testing.T) {
    fc := clustertest.NewFakeCluster(3)
    defer fc.Close()
    fc.SetSoftcommit(300 * time.Millisecond)

    h := newHarness(t, fc, 50, 100*time.Millisecond)
    ctx := context.Background()

    require.NoError(t, h.WaitForPing(ctx, h.All()))

    // create through one node; the others learn about it a moment later
    first := fc.Nodes[0].Node()
    require.NoError(t, h.CreateIndex(ctx, first, "things"))
    go func() {
        time.Sleep(150 * time.Millisecond)
        for _, n := range fc.Nodes[1:] {
            n.AddIndex("things")
        }
    }()
    require.NoError(t, h.WaitForIndex(ctx, h.All(), "things"))

    require.NoError(t, h.WriteObjects(ctx, "things", "body_t", "converge", 1000))
    require.NoError(t, h.Commit(ctx, first, "things"))

    // hits stay at zero until the softcommit delay elapses, then every node
    // reports the full batch
    require.NoError(t, h.WaitForSearchCount(ctx, h.All(), "things", "body_t", "converge", 1000))
    for _, n := range fc.Nodes {
        require.NoError(t, h.SearchExpect(ctx, n.Node(), "things", "body_t", "converge", 1000))
    }
}

func TestHarness_FaultyNodeTimesOut(t *testing.T) {
    fc := clustertest.NewFakeCluster(3)
    defer fc.Close()

    h := newHarness(t, fc, 3, 20*time.Millisecond)
    ctx := context.Background()

    require.NoError(t, h.CreateIndex(ctx, fc.Nodes[0].Node(), "things"))
    require.NoError(t, h.WriteObjects(ctx, "things", "body_t", "x", 10))
    require.NoError(t, h.Commit(ctx, fc.Nodes[0].Node(), "things"))

    fc.Nodes[1].SetFaulty(true)
    err := h.WaitForSearchCount(ctx, h.All(), "things", "body_t", "x", 10)
    require.Error(t, err)
    require.ErrorIs(t, err, poll.ErrTimedOut)

    var te *poll.TimeoutError
    require.ErrorAs(t, err, &te)
    require.Equal(t, fc.Nodes[1].Node().ID, te.Node)
    require.Equal(t, 3, te.Attempts)
}

func TestHarness_SearchExpectMismatch(t *testing.T) {
    fc := clustertest.NewFakeCluster(1)
    defer fc.Close()

    h := newHarness(t, fc, 5, 20*time.Millisecond)
    ctx := context.Background()

    require.NoError(t, h.WriteObjects(ctx, "things", "body_t", "x", 4))
    require.NoError(t, h.Commit(ctx, fc.Nodes[0].Node(), "things"))
    require.NoError(t, h.WaitForSearchCount(ctx, h.All(), "things", "body_t", "x", 4))

    err := h.SearchExpect(ctx, fc.Nodes[0].Node(), "things", "body_t", "x", 5)
    var me *search.MismatchError
    require.ErrorAs(t, err, &me)
    require.Equal(t, int64(5), me.Expected)
    require.Equal(t, int64(4), me.Actual)
}

func TestHarness_FuseBlowAndReset(t *testing.T) {
    fc := clustertest.NewFakeCluster(2)
    defer fc.Close()

    h := newHarness(t, fc, 10, 20*time.Millisecond)
    ctx := context.Background()

    for _, n := range fc.Nodes {
        require.NoError(t, h.BlowFuse(ctx, n.Node(), "default", "idx_a"))
        require.NoError(t, h.BlowFuse(ctx, n.Node(), "default", "idx_b"))
    }
    require.NoError(t, h.WaitUntilFusesBlown(ctx, h.All(), "default", []string{"idx_a", "idx_b"}))

    // resetting only idx_a must not satisfy a wait for both
    for _, n := range fc.Nodes {
        require.NoError(t, h.ResetFuse(ctx, n.Node(), "default", "idx_a"))
    }
    err := h.WaitUntilFusesReset(ctx, h.All(), "default", []string{"idx_a", "idx_b"})
    require.ErrorIs(t, err, poll.ErrTimedOut)

    for _, n := range fc.Nodes {
        require.NoError(t, h.ResetFuse(ctx, n.Node(), "default", "idx_b"))
    }
    require.NoError(t, h.WaitUntilFusesReset(ctx, h.All(), "default", []string{"idx_a", "idx_b"}))
}

func TestHarness_ExchangeRound(t *testing.T) {
    fc := clustertest.NewFakeCluster(2)
    defer fc.Close()

    h := newHarness(t, fc, 5, 20*time.Millisecond)
    ctx := context.Background()

    since := time.Now()
    after := since.Add(50 * time.Millisecond)
    done := []verify.ExchangeRecord{
        {Partition: 0, Replica: 1, LastExchange: &after},
        {Partition: 1, Replica: 2, LastExchange: &after},
    }
    fc.Nodes[0].SetExchangeRecords(done)

    // node n2 still has a never-exchanged pair
    fc.Nodes[1].SetExchangeRecords([]verify.ExchangeRecord{
        {Partition: 0, Replica: 1, LastExchange: &after},
        {Partition: 1, Replica: 2, LastExchange: nil},
    })
    err := h.WaitForFullExchangeRound(ctx, h.All(), since)
    require.ErrorIs(t, err, poll.ErrTimedOut)
    var te *poll.TimeoutError
    require.ErrorAs(t, err, &te)
    require.Equal(t, fc.Nodes[1].Node().ID, te.Node)

    fc.Nodes[1].SetExchangeRecords(done)
    require.NoError(t, h.WaitForFullExchangeRound(ctx, h.All(), since))
}

func TestHarness_PingRecovery(t *testing.T) {
    fc := clustertest.NewFakeCluster(2)
    defer fc.Close()

    h := newHarness(t, fc, 20, 25*time.Millisecond)
    ctx := context.Background()

    fc.Nodes[1].SetDown(true)
    go func() {
        time.Sleep(100 * time.Millisecond)
        fc.Nodes[1].SetDown(false)
    }()
    require.NoError(t, h.WaitForPing(ctx, h.All()))
}
