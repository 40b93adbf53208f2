package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type OracleDeps struct {
	Valuator Valuator
	Log      *zap.Logger
}

// RegisterOracle mounts the binary endpoint consumed by the on-chain relayer.
// Every call recomputes; nothing is served from cache.
func RegisterOracle(r chi.Router, d OracleDeps) {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	r.Post("/oracle/valuation", func(w http.ResponseWriter, req *http.Request) {
		var body ValuationRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			WriteError(w, req, http.StatusBadRequest, "invalid_json", err)
			return
		}
		handleOracle(w, req, d, body)
	})
	r.Get("/oracle/valuation", func(w http.ResponseWriter, req *http.Request) {
		handleOracle(w, req, d, fromQuery(req))
	})
}

func handleOracle(w http.ResponseWriter, req *http.Request, d OracleDeps, body ValuationRequest) {
	res, err := d.Valuator.Run(req.Context(), body.toRequest())
	if err != nil {
		if !IsInvalidInput(err) {
			d.Log.Error("oracle valuation failed", zap.Error(err))
		}
		WriteValuationError(w, req, err)
		return
	}
	c := res.Outcome.Composite
	h := w.Header()
	h.Set("Content-Type", "application/octet-stream")
	h.Set("Content-Length", strconv.Itoa(len(res.Payload)))
	h.Set("X-Data-Source", c.DataSource)
	h.Set("X-Confidence", strconv.FormatInt(c.ConfidenceScore, 10))
	h.Set("X-Fallback", strconv.FormatBool(res.Outcome.UsedFallback))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Payload)
}
