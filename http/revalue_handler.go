package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/yourorg/valuation-api/internal/cache"
	"github.com/yourorg/valuation-api/internal/refresh"
	"github.com/yourorg/valuation-api/internal/valuation"
)

type RevalueDeps struct {
	Refresher *refresh.Refresher
}

// RegisterRevalue lets operators push a property onto the background
// refresh pool without waiting for it to go stale.
func RegisterRevalue(r chi.Router, d RevalueDeps) {
	r.Post("/v1/valuations/revalue", func(w http.ResponseWriter, req *http.Request) {
		var body ValuationRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			WriteError(w, req, http.StatusBadRequest, "invalid_json", err)
			return
		}
		if strings.TrimSpace(body.Identifier) == "" {
			WriteError(w, req, http.StatusBadRequest, "invalid_input", valuation.ErrIdentifierRequired)
			return
		}
		typ := valuation.ParseRequestType(body.Type)
		if d.Refresher == nil {
			WriteError(w, req, http.StatusServiceUnavailable, "refresh_disabled", nil)
			return
		}
		key, ok := cache.Key(typ, body.Identifier)
		if !ok {
			WriteError(w, req, http.StatusBadRequest, "uncacheable_identifier", nil)
			return
		}
		queued := d.Refresher.Enqueue(refresh.Job{Key: key, Request: valuation.Request{Identifier: body.Identifier, Type: typ}})
		render.Status(req, http.StatusAccepted)
		render.JSON(w, req, map[string]any{"ok": true, "queued": queued, "key": key})
	})
}
