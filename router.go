package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	httpapi "github.com/yourorg/valuation-api/http"
	httpv1 "github.com/yourorg/valuation-api/http/v1"
	"github.com/yourorg/valuation-api/internal/refresh"
)

type RouterDeps struct {
	Valuator  httpapi.Valuator
	Resolve   httpv1.ResolveDeps
	History   httpapi.HistoryReader
	Refresher *refresh.Refresher
	Log       *zap.Logger
}

func BuildRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(httprate.LimitByIP(100, 1*time.Minute)) // protect upstream quota
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`{"ok":true}`)) })
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	httpapi.RegisterOracle(r, httpapi.OracleDeps{Valuator: d.Valuator, Log: d.Log})
	httpapi.RegisterHistory(r, httpapi.HistoryDeps{Store: d.History})
	httpapi.RegisterRevalue(r, httpapi.RevalueDeps{Refresher: d.Refresher})

	// dashboard resolve endpoint with Redis + SWR
	httpv1.RegisterResolve(r, d.Resolve)

	return r
}
