package verify

import (
    "context"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/amirimatin/go-converge/pkg/cluster"
    "github.com/amirimatin/go-converge/pkg/poll"
    "github.com/amirimatin/go-converge/pkg/solrq"
)

type fakeQueueReader struct {
    statuses map[string]solrq.IndexStatus
    err      error
}

func (f fakeQueueReader) Read(ctx context.Context, n cluster.Node, w solrq.WorkerID) (map[string]solrq.IndexStatus, error) {
    if f.err != nil {
        return nil, f.err
    }
    return f.statuses, nil
}

func TestFusesInState_SubsetNotEquality(t *testing.T) {
    reader := fakeQueueReader{statuses: map[string]solrq.IndexStatus{
        "a": {FuseBlown: true, Pending: 10},
        "b": {FuseBlown: true, Pending: 3},
        "c": {FuseBlown: false},
    }}
    n := cluster.Node{ID: "n1"}
    // Other indexes' fuse state is irrelevant noise.
    assert.True(t, FusesInState(reader, "w1", []string{"a"}, true).Holds(context.Background(), n))
    assert.True(t, FusesInState(reader, "w1", []string{"a", "b"}, true).Holds(context.Background(), n))
    assert.False(t, FusesInState(reader, "w1", []string{"a", "b", "c"}, true).Holds(context.Background(), n))
    assert.True(t, FusesInState(reader, "w1", []string{"c"}, false).Holds(context.Background(), n))
    assert.False(t, FusesInState(reader, "w1", []string{"missing"}, true).Holds(context.Background(), n))
}

func TestFusesInState_MonotoneInRequiredSet(t *testing.T) {
    reader := fakeQueueReader{statuses: map[string]solrq.IndexStatus{
        "a": {FuseBlown: true},
        "b": {FuseBlown: true},
    }}
    n := cluster.Node{ID: "n1"}
    // If {a,b} converges under a snapshot, any subset converges too.
    if FusesInState(reader, "w1", []string{"a", "b"}, true).Holds(context.Background(), n) {
        assert.True(t, FusesInState(reader, "w1", []string{"a"}, true).Holds(context.Background(), n))
        assert.True(t, FusesInState(reader, "w1", []string{"b"}, true).Holds(context.Background(), n))
        assert.True(t, FusesInState(reader, "w1", nil, true).Holds(context.Background(), n))
    } else {
        t.Fatal("expected {a,b} to hold under the snapshot")
    }
}

func TestFusesInState_ReadErrorIsRetryEligible(t *testing.T) {
    reader := fakeQueueReader{err: context.DeadlineExceeded}
    n := cluster.Node{ID: "n1"}
    assert.False(t, FusesInState(reader, "w1", []string{"a"}, true).Holds(context.Background(), n))
}

func TestWaitUntilFusesBlownAndReset(t *testing.T) {
    c, err := cluster.New(cluster.Node{ID: "n1"}, cluster.Node{ID: "n2"})
    require.NoError(t, err)
    blown := fakeQueueReader{statuses: map[string]solrq.IndexStatus{
        "a": {FuseBlown: true, Pending: 42},
        "b": {FuseBlown: true, Pending: 7},
    }}
    v := Verifier{Poller: poll.Poller{Attempts: 2, Delay: time.Millisecond}}
    require.NoError(t, v.WaitUntilFusesBlown(context.Background(), cluster.All(c), blown, "w1", []string{"a", "b"}))

    err = v.WaitUntilFusesReset(context.Background(), cluster.All(c), blown, "w1", []string{"a"})
    var te *poll.TimeoutError
    require.ErrorAs(t, err, &te)
    assert.Contains(t, te.Condition, "fuses reset")
}
