package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/yourorg/valuation-api/internal/cache"
	"github.com/yourorg/valuation-api/internal/oracle"
	"github.com/yourorg/valuation-api/internal/pipeline"
	"github.com/yourorg/valuation-api/internal/redisx"
	"github.com/yourorg/valuation-api/internal/refresh"
	"github.com/yourorg/valuation-api/internal/valuation"
)

// countingValuator returns the fallback valuation and counts calls.
type countingValuator struct{ calls atomic.Int32 }

func (c *countingValuator) Run(_ context.Context, req valuation.Request) (pipeline.Result, error) {
	c.calls.Add(1)
	if strings.TrimSpace(req.Identifier) == "" {
		return pipeline.Result{}, valuation.ErrIdentifierRequired
	}
	fb := valuation.Fallback(req.Identifier)
	out := valuation.Outcome{UsedFallback: true, Composite: valuation.Composite{
		EstimatedValueCents: fb.EstimatedValueCents,
		RentEstimateCents:   fb.RentEstimateCents,
		PricePerSqftCents:   fb.PricePerSqftCents,
		ConfidenceScore:     fb.Confidence,
		DataSource:          fb.Source,
		Bedrooms:            fb.Bedrooms,
		Bathrooms:           fb.Bathrooms,
		Sqft:                fb.Sqft,
	}}
	payload, err := oracle.Encode(out.Composite)
	if err != nil {
		return pipeline.Result{}, err
	}
	return pipeline.Result{Request: req, Outcome: out, Payload: payload}, nil
}

type resolveBody struct {
	OK          bool                `json:"ok"`
	Source      string              `json:"source"`
	Stale       bool                `json:"stale"`
	InProgress  bool                `json:"in_progress"`
	PropertyKey string              `json:"property_key"`
	Valuation   valuation.Composite `json:"valuation"`
	PayloadHex  string              `json:"payload_hex"`
}

func call(t *testing.T, h http.Handler, req *http.Request) (int, resolveBody) {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var body resolveBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return rec.Code, body
}

func post(identifier string) *http.Request {
	b, _ := json.Marshal(map[string]string{"identifier": identifier})
	return httptest.NewRequest(http.MethodPost, "/v1/valuations/resolve", strings.NewReader(string(b)))
}

func newRouter(d ResolveDeps) http.Handler {
	r := chi.NewRouter()
	RegisterResolve(r, d)
	return r
}

func TestResolveFreshThenCached(t *testing.T) {
	mr := miniredis.RunT(t)
	v := &countingValuator{}
	h := newRouter(ResolveDeps{Valuator: v, Cache: cache.New(redisx.New(mr.Addr(), "", 0), time.Hour, time.Minute), Log: zaptest.NewLogger(t)})
	const addr = "123 Main St, Austin, TX 78701"

	code, body := call(t, h, post(addr))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "fresh", body.Source)
	assert.Equal(t, "123 main st|austin|tx 78701", body.PropertyKey)
	assert.True(t, mr.Exists("valuation:full:123 main st|austin|tx 78701"))
	assert.False(t, mr.Exists("lock:valuation:full:123 main st|austin|tx 78701"))

	code, cached := call(t, h, httptest.NewRequest(http.MethodGet, "/v1/valuations/resolve?identifier=123+Main+Street,+Austin,+TX+78701", nil))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "cache", cached.Source)
	assert.False(t, cached.Stale)
	assert.Equal(t, body.PayloadHex, cached.PayloadHex)
	assert.Equal(t, body.Valuation, cached.Valuation)
	assert.Equal(t, int32(1), v.calls.Load())

	payload, err := oracle.FromHex(cached.PayloadHex)
	require.NoError(t, err)
	decoded, err := oracle.Decode(payload)
	require.NoError(t, err)
	assert.Equal(t, cached.Valuation, decoded)
}

func TestResolveStaleServesCacheAndRefreshes(t *testing.T) {
	mr := miniredis.RunT(t)
	v := &countingValuator{}
	d := ResolveDeps{Valuator: v, Cache: cache.New(redisx.New(mr.Addr(), "", 0), time.Hour, time.Millisecond), Log: zaptest.NewLogger(t)}
	refreshed := make(chan string, 1)
	do := RefreshFunc(d)
	d.Refresh = refresh.New(4, 1, func(ctx context.Context, j refresh.Job) {
		do(ctx, j)
		refreshed <- j.Key
	})
	defer d.Refresh.Close()
	h := newRouter(d)

	_, _ = call(t, h, post("9 Oak Ave, Denver, CO 80202"))
	time.Sleep(5 * time.Millisecond)

	code, body := call(t, h, post("9 Oak Ave, Denver, CO 80202"))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "cache", body.Source)
	assert.True(t, body.Stale)

	select {
	case key := <-refreshed:
		assert.Equal(t, "valuation:full:9 oak ave|denver|co 80202", key)
	case <-time.After(2 * time.Second):
		t.Fatal("refresh not run")
	}
	assert.Equal(t, int32(2), v.calls.Load())
}

func TestResolveLockedMissIsAccepted(t *testing.T) {
	mr := miniredis.RunT(t)
	require.NoError(t, mr.Set("lock:valuation:full:1 elm st", "1"))
	v := &countingValuator{}
	h := newRouter(ResolveDeps{Valuator: v, Cache: cache.New(redisx.New(mr.Addr(), "", 0), time.Hour, time.Minute)})

	code, body := call(t, h, post("1 Elm St"))
	assert.Equal(t, http.StatusAccepted, code)
	assert.True(t, body.InProgress)
	assert.Equal(t, int32(0), v.calls.Load())
}

func TestResolveWithoutCacheAlwaysFresh(t *testing.T) {
	v := &countingValuator{}
	h := newRouter(ResolveDeps{Valuator: v})
	for i := 0; i < 2; i++ {
		code, body := call(t, h, post("1 Elm St"))
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "fresh", body.Source)
	}
	assert.Equal(t, int32(2), v.calls.Load())
}

func TestResolveUncacheableIdentifierSkipsCache(t *testing.T) {
	mr := miniredis.RunT(t)
	v := &countingValuator{}
	h := newRouter(ResolveDeps{Valuator: v, Cache: cache.New(redisx.New(mr.Addr(), "", 0), time.Hour, time.Minute)})

	code, body := call(t, h, post(",,"))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "fresh", body.Source)
	assert.Empty(t, mr.Keys())
}

func TestResolveRejectsInvalidInput(t *testing.T) {
	h := newRouter(ResolveDeps{Valuator: &countingValuator{}})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, post("   "))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/valuations/resolve?type=full", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
