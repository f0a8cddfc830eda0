// Package search verifies indexing convergence through the search surface:
// it issues a query and compares the returned hit count against an exact
// expectation. Callers are expected to precede the check with a commit and a
// convergence wait, so a mismatch is a genuine failure, not timing noise.
package search

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "log"
    "net/http"
    "net/url"

    "github.com/amirimatin/go-converge/pkg/internal/logutil"
    obsmetrics "github.com/amirimatin/go-converge/pkg/observability/metrics"
    "github.com/amirimatin/go-converge/pkg/transport"
)

// ErrMismatch reports an expected/actual count divergence. Match with
// errors.Is; the concrete *MismatchError carries both counts.
var ErrMismatch = errors.New("search: count mismatch")

// MismatchError is a hard assertion failure: the cluster converged, yet the
// count is wrong. It is never retried.
type MismatchError struct {
    Index    string
    Expected int64
    Actual   int64
}

func (e *MismatchError) Error() string {
    return fmt.Sprintf("search: index %s returned %d results, expected %d", e.Index, e.Actual, e.Expected)
}

func (e *MismatchError) Unwrap() error { return ErrMismatch }

type queryResponse struct {
    Response struct {
        NumFound int64 `json:"numFound"`
    } `json:"response"`
}

// VerifyCount decodes raw as a search result and compares its numFound field
// against expected for exact equality. A decode failure is an error, not a
// mismatch.
func VerifyCount(expected int64, raw []byte) (bool, error) {
    var qr queryResponse
    if err := json.Unmarshal(raw, &qr); err != nil {
        return false, fmt.Errorf("search: result decode: %w", err)
    }
    return qr.Response.NumFound == expected, nil
}

// Searcher issues count verifications against a node's search endpoint.
type Searcher struct {
    Client transport.HTTPClient
    // Scheme is "http" when empty.
    Scheme string
    Logger *log.Logger
}

func (s Searcher) scheme() string {
    if s.Scheme == "" { return "http" }
    return s.Scheme
}

// Query runs field:term against the index on endpoint (host:port) and returns
// the raw response body.
func (s Searcher) Query(ctx context.Context, endpoint, index, field, term string) ([]byte, error) {
    q := url.QueryEscape(fmt.Sprintf("%s:%s", field, term))
    u := fmt.Sprintf("%s://%s/solr/%s/select?q=%s&wt=json", s.scheme(), endpoint, index, q)
    resp, err := s.Client.Do(ctx, http.MethodGet, u, nil, nil)
    if err != nil { return nil, err }
    if resp.Status != http.StatusOK {
        return nil, fmt.Errorf("search: query status %d: %s", resp.Status, string(resp.Body))
    }
    return resp.Body, nil
}

// Expect queries the index and fails with *MismatchError unless the count
// equals expected exactly. There is no tolerance band.
func (s Searcher) Expect(ctx context.Context, endpoint, index, field, term string, expected int64) error {
    raw, err := s.Query(ctx, endpoint, index, field, term)
    if err != nil { return err }
    var qr queryResponse
    if err := json.Unmarshal(raw, &qr); err != nil {
        return fmt.Errorf("search: result decode: %w", err)
    }
    if qr.Response.NumFound != expected {
        obsmetrics.SearchChecksTotal.WithLabelValues("mismatch").Inc()
        logutil.Errorf(s.Logger, "search: index %s count %d != expected %d", index, qr.Response.NumFound, expected)
        return &MismatchError{Index: index, Expected: expected, Actual: qr.Response.NumFound}
    }
    obsmetrics.SearchChecksTotal.WithLabelValues("match").Inc()
    return nil
}
