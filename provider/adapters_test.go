package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const testAddress = "123 Main St, Austin, TX 78701"

func TestZillowSendsCredentialsAndEncodedAddress(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, zillowPath, r.URL.Path)
		assert.Equal(t, testAddress, r.URL.Query().Get("location"))
		assert.Contains(t, r.URL.RawQuery, "location=123+Main+St%2C+Austin%2C+TX+78701")
		assert.Equal(t, "zkey", r.Header.Get("X-RapidAPI-Key"))
		assert.Equal(t, zillowHost, r.Header.Get("X-RapidAPI-Host"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"props":[{"zestimate":500000,"rentZestimate":2500,"bedrooms":3,"bathrooms":2,"livingArea":2000}]}`))
	}))
	defer server.Close()

	a := NewZillow("zkey", Options{BaseURL: server.URL, Logger: zaptest.NewLogger(t)})
	res, ok := a.Estimate(context.Background(), testAddress)
	require.True(t, ok)
	assert.Equal(t, int64(50000000), res.Estimate.EstimatedValueCents)
	assert.Equal(t, int64(25000), res.Estimate.PricePerSqftCents)
	assert.Equal(t, SourceZillow, res.Raw.Provider)
	assert.NotEmpty(t, res.Raw.Payload)
}

func TestRentSpreeUsesBearerToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, rentSpreePath, r.URL.Path)
		assert.Equal(t, "Bearer rkey", r.Header.Get("Authorization"))
		assert.Equal(t, testAddress, r.URL.Query().Get("address"))
		_, _ = w.Write([]byte(`{"data":{"properties":[{"valuation":{"estimate":400000},"rent":{"estimate":2000},"beds":2,"baths":1.5,"squareFootage":1000}]}}`))
	}))
	defer server.Close()

	res, ok := NewRentSpree("rkey", Options{BaseURL: server.URL}).Estimate(context.Background(), testAddress)
	require.True(t, ok)
	assert.Equal(t, int64(15), res.Estimate.Bathrooms)
	assert.Equal(t, int64(ConfidenceRentSpree), res.Estimate.Confidence)
}

func TestAdapterNoDataOutcomes(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
		"not found": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`[{"price":1}]`))
		},
		"empty array": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`[]`))
		},
		"not json": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`upstream maintenance`))
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			var calls int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				h(w, r)
			}))
			defer server.Close()

			_, ok := NewRealtyMole("mkey", Options{BaseURL: server.URL}).Estimate(context.Background(), testAddress)
			assert.False(t, ok)
			assert.EqualValues(t, 1, atomic.LoadInt32(&calls), "adapter must not retry")
		})
	}
}

func TestAdapterTimeoutIsNoData(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	start := time.Now()
	_, ok := NewZillow("zkey", Options{BaseURL: server.URL, Timeout: 50 * time.Millisecond}).Estimate(context.Background(), testAddress)
	assert.False(t, ok)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestTransportFailureIsNoData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, ok := NewRentSpree("rkey", Options{BaseURL: url}).Estimate(context.Background(), testAddress)
	assert.False(t, ok)
}

func TestDisabledAdapterNeverCalls(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	a := NewZillow("", Options{BaseURL: server.URL})
	assert.False(t, a.Enabled())
	_, ok := a.Estimate(context.Background(), testAddress)
	assert.False(t, ok)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestNewAdaptersPriorityOrder(t *testing.T) {
	adapters := NewAdapters(Config{ZillowKey: "z", RealtyMoleKey: "m"}, nil)
	require.Len(t, adapters, 3)
	assert.Equal(t, SourceZillow, adapters[0].Name())
	assert.Equal(t, SourceRentSpree, adapters[1].Name())
	assert.Equal(t, SourceRealtyMole, adapters[2].Name())
	assert.True(t, adapters[0].Enabled())
	assert.False(t, adapters[1].Enabled())
	assert.True(t, adapters[2].Enabled())
}

func TestClientRateLimitRespectsDeadline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	c := NewClient("test", server.URL, Options{Timeout: 20 * time.Millisecond, RPS: 0.01})
	_, err := c.Get(context.Background(), "/", nil, nil)
	require.NoError(t, err)
	_, err = c.Get(context.Background(), "/", nil, nil)
	assert.Error(t, err)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("ZILLOW_API_KEY", "z")
	t.Setenv("RENTSPREE_API_KEY", "")
	t.Setenv("REALTYMOLE_BASE_URL", "http://mole.local")
	t.Setenv("PROVIDER_TIMEOUT", "3s")
	t.Setenv("PROVIDER_RPS", "1.5")

	cfg := ConfigFromEnv()
	assert.Equal(t, "z", cfg.ZillowKey)
	assert.Empty(t, cfg.RentSpreeKey)
	assert.Equal(t, "http://mole.local", cfg.RealtyMoleBaseURL)
	assert.Equal(t, 3*time.Second, cfg.Timeout)
	assert.Equal(t, 1.5, cfg.RPS)

	adapters := NewAdapters(cfg, nil)
	assert.True(t, adapters[0].Enabled())
	assert.False(t, adapters[1].Enabled())
}
