package provider

import (
	"context"
	"errors"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/yourorg/valuation-api/internal/env"
)

// Result is what an adapter hands back when it has data.
type Result struct {
	Estimate SourceEstimate
	Raw      Raw
}

// Adapter fetches one provider's view of an address. A false second return
// means "no data"; adapters never surface errors to their caller.
type Adapter interface {
	Name() string
	Enabled() bool
	Estimate(ctx context.Context, address string) (Result, bool)
}

// Config carries credentials and endpoints for all adapters. An empty key
// disables that provider.
type Config struct {
	ZillowKey     string
	RentSpreeKey  string
	RealtyMoleKey string

	ZillowBaseURL     string
	RentSpreeBaseURL  string
	RealtyMoleBaseURL string

	Timeout time.Duration
	RPS     float64
}

// ConfigFromEnv reads credentials and tuning from the environment.
func ConfigFromEnv() Config {
	return Config{
		ZillowKey:         env.Get("ZILLOW_API_KEY", ""),
		RentSpreeKey:      env.Get("RENTSPREE_API_KEY", ""),
		RealtyMoleKey:     env.Get("REALTYMOLE_API_KEY", ""),
		ZillowBaseURL:     env.Get("ZILLOW_BASE_URL", ""),
		RentSpreeBaseURL:  env.Get("RENTSPREE_BASE_URL", ""),
		RealtyMoleBaseURL: env.Get("REALTYMOLE_BASE_URL", ""),
		Timeout:           env.GetDuration("PROVIDER_TIMEOUT", DefaultTimeout),
		RPS:               env.GetFloat("PROVIDER_RPS", 0),
	}
}

const (
	zillowHost     = "zillow-com1.p.rapidapi.com"
	realtyMoleHost = "realty-mole-property-api.p.rapidapi.com"

	zillowPath     = "/propertyExtendedSearch"
	rentSpreePath  = "/v1/properties/search"
	realtyMolePath = "/properties"
)

// NewAdapters returns the adapters in priority order.
func NewAdapters(cfg Config, log *zap.Logger) []Adapter {
	opts := func(base string) Options {
		return Options{BaseURL: base, Timeout: cfg.Timeout, RPS: cfg.RPS, Logger: log}
	}
	return []Adapter{
		NewZillow(cfg.ZillowKey, opts(cfg.ZillowBaseURL)),
		NewRentSpree(cfg.RentSpreeKey, opts(cfg.RentSpreeBaseURL)),
		NewRealtyMole(cfg.RealtyMoleKey, opts(cfg.RealtyMoleBaseURL)),
	}
}

// httpAdapter is the common shape of the three providers: one GET, one mapper.
type httpAdapter struct {
	name    string
	key     string
	path    string
	param   string
	headers map[string]string
	mapper  func([]byte) (SourceEstimate, error)
	client  *Client
}

func (a *httpAdapter) Name() string  { return a.name }
func (a *httpAdapter) Enabled() bool { return a != nil && a.key != "" }

func (a *httpAdapter) Estimate(ctx context.Context, address string) (Result, bool) {
	if !a.Enabled() {
		return Result{}, false
	}
	q := url.Values{}
	q.Set(a.param, address)
	raw, err := a.client.Get(ctx, a.path, q, a.headers)
	if err != nil {
		a.client.log.Warn("provider request failed", zap.Error(err))
		return Result{}, false
	}
	est, err := a.mapper(raw)
	if err != nil {
		if errors.Is(err, errNoResults) {
			a.client.log.Info("provider returned no results")
		} else {
			a.client.log.Warn("provider payload unreadable", zap.Error(err))
		}
		return Result{}, false
	}
	return Result{
		Estimate: est,
		Raw:      Raw{Provider: a.name, Endpoint: a.path, Payload: raw},
	}, true
}

// NewZillow builds the Zillow-like adapter (RapidAPI gateway).
func NewZillow(key string, opts Options) Adapter {
	return &httpAdapter{
		name:    SourceZillow,
		key:     key,
		path:    zillowPath,
		param:   "location",
		headers: map[string]string{"X-RapidAPI-Key": key, "X-RapidAPI-Host": zillowHost},
		mapper:  mapZillow,
		client:  NewClient(SourceZillow, "https://"+zillowHost, opts),
	}
}

// NewRentSpree builds the RentSpree-like adapter (bearer token).
func NewRentSpree(key string, opts Options) Adapter {
	return &httpAdapter{
		name:    SourceRentSpree,
		key:     key,
		path:    rentSpreePath,
		param:   "address",
		headers: map[string]string{"Authorization": "Bearer " + key},
		mapper:  mapRentSpree,
		client:  NewClient(SourceRentSpree, "https://api.rentspree.com", opts),
	}
}

// NewRealtyMole builds the RealtyMole-like adapter (RapidAPI gateway).
func NewRealtyMole(key string, opts Options) Adapter {
	return &httpAdapter{
		name:    SourceRealtyMole,
		key:     key,
		path:    realtyMolePath,
		param:   "address",
		headers: map[string]string{"X-RapidAPI-Key": key, "X-RapidAPI-Host": realtyMoleHost},
		mapper:  mapRealtyMole,
		client:  NewClient(SourceRealtyMole, "https://"+realtyMoleHost, opts),
	}
}
