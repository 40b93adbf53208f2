package v1

import (
    "context"
    "encoding/json"
    "net/http"
    "strings"

    "github.com/go-chi/chi/v5"
    "github.com/go-chi/render"
    "go.uber.org/zap"

    httpapi "github.com/yourorg/valuation-api/http"
    "github.com/yourorg/valuation-api/internal/cache"
    "github.com/yourorg/valuation-api/internal/canon"
    "github.com/yourorg/valuation-api/internal/oracle"
    "github.com/yourorg/valuation-api/internal/refresh"
    "github.com/yourorg/valuation-api/internal/valuation"
)

type ResolveDeps struct {
    Valuator httpapi.Valuator
    // Cache is optional; without it every call is computed fresh.
    Cache    *cache.Cache
    Refresh  *refresh.Refresher
    Log      *zap.Logger
}

func RegisterResolve(r chi.Router, d ResolveDeps) {
    if d.Log == nil { d.Log = zap.NewNop() }
    r.Post("/v1/valuations/resolve", func(w http.ResponseWriter, req *http.Request) {
        var body httpapi.ValuationRequest
        if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
            httpapi.WriteError(w, req, http.StatusBadRequest, "invalid_json", err)
            return
        }
        resolve(w, req, d, body)
    })
    r.Get("/v1/valuations/resolve", func(w http.ResponseWriter, req *http.Request) {
        q := req.URL.Query()
        resolve(w, req, d, httpapi.ValuationRequest{Identifier: q.Get("identifier"), Type: q.Get("type")})
    })
}

func resolve(w http.ResponseWriter, req *http.Request, d ResolveDeps, body httpapi.ValuationRequest) {
    if strings.TrimSpace(body.Identifier) == "" {
        httpapi.WriteValuationError(w, req, valuation.ErrIdentifierRequired)
        return
    }
    typ := valuation.ParseRequestType(body.Type)
    vreq := valuation.Request{Identifier: body.Identifier, Type: typ}
    pk := canon.PropertyKey(body.Identifier)
    ctx := req.Context()

    key, cacheable := cache.Key(typ, body.Identifier)
    if d.Cache == nil || !cacheable {
        res, err := d.Valuator.Run(ctx, vreq)
        if err != nil {
            httpapi.WriteValuationError(w, req, err)
            return
        }
        writeResolved(w, req, "fresh", false, pk, res.Outcome.Composite, oracle.Hex(res.Payload), res.Outcome.UsedFallback)
        return
    }

    env, stale, err := d.Cache.Get(ctx, key)
    if err == nil {
        // serve cached immediately, refresh behind the response when stale
        if stale && d.Refresh != nil { d.Refresh.Enqueue(refresh.Job{Key: key, Request: vreq}) }
        writeResolved(w, req, "cache", stale, pk, env.Composite, env.PayloadHex, env.UsedFallback)
        return
    }
    if !cache.IsMiss(err) {
        d.Log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
    }

    // cache miss: a short lock keeps concurrent misses from stampeding the providers
    if !d.Cache.Lock(ctx, key) {
        render.Status(req, http.StatusAccepted)
        render.JSON(w, req, map[string]any{"ok": false, "in_progress": true, "property_key": pk})
        return
    }
    defer d.Cache.Unlock(context.WithoutCancel(ctx), key)

    res, err := d.Valuator.Run(ctx, vreq)
    if err != nil {
        httpapi.WriteValuationError(w, req, err)
        return
    }
    if _, err := d.Cache.Put(ctx, key, envelopeFor(res.Request, res.Outcome, res.Payload)); err != nil {
        d.Log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
    }
    writeResolved(w, req, "fresh", false, pk, res.Outcome.Composite, oracle.Hex(res.Payload), res.Outcome.UsedFallback)
}

func writeResolved(w http.ResponseWriter, req *http.Request, source string, stale bool, pk string, c valuation.Composite, payloadHex string, fallback bool) {
    render.JSON(w, req, map[string]any{
        "ok":            true,
        "source":        source,
        "stale":         stale,
        "property_key":  pk,
        "valuation":     c,
        "payload_hex":   payloadHex,
        "used_fallback": fallback,
    })
}

func envelopeFor(req valuation.Request, out valuation.Outcome, payload []byte) cache.Envelope {
    return cache.Envelope{
        Identifier:   req.Identifier,
        Type:         string(req.Type),
        Composite:    out.Composite,
        PayloadHex:   oracle.Hex(payload),
        UsedFallback: out.UsedFallback,
    }
}

// RefreshFunc recomputes a stale entry and writes it back; it is the
// worker body for the refresh pool.
func RefreshFunc(d ResolveDeps) func(ctx context.Context, j refresh.Job) {
    log := d.Log
    if log == nil { log = zap.NewNop() }
    return func(ctx context.Context, j refresh.Job) {
        res, err := d.Valuator.Run(ctx, j.Request)
        if err != nil {
            log.Warn("refresh failed", zap.String("key", j.Key), zap.Error(err))
            return
        }
        if d.Cache == nil { return }
        if _, err := d.Cache.Put(ctx, j.Key, envelopeFor(res.Request, res.Outcome, res.Payload)); err != nil {
            log.Warn("refresh cache write failed", zap.String("key", j.Key), zap.Error(err))
        }
    }
}
