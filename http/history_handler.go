package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/yourorg/valuation-api/internal/canon"
	"github.com/yourorg/valuation-api/internal/oracle"
	"github.com/yourorg/valuation-api/internal/store"
	"github.com/yourorg/valuation-api/internal/valuation"
)

type HistoryReader interface {
	History(ctx context.Context, propertyKey string, limit int) ([]store.ValuationRecord, error)
}

type HistoryDeps struct {
	Store HistoryReader
}

type historyItem struct {
	ID           string              `json:"id"`
	RequestType  string              `json:"request_type"`
	Valuation    valuation.Composite `json:"valuation"`
	UsedFallback bool                `json:"used_fallback"`
	PayloadHex   string              `json:"payload_hex"`
	CreatedAt    time.Time           `json:"created_at"`
}

// RegisterHistory serves previously recorded valuations, newest first.
func RegisterHistory(r chi.Router, d HistoryDeps) {
	r.Get("/v1/valuations/history", func(w http.ResponseWriter, req *http.Request) {
		if d.Store == nil {
			WriteError(w, req, http.StatusServiceUnavailable, "store_disabled", nil)
			return
		}
		q := req.URL.Query()
		identifier := q.Get("identifier")
		if strings.TrimSpace(identifier) == "" {
			WriteError(w, req, http.StatusBadRequest, "invalid_input", valuation.ErrIdentifierRequired)
			return
		}
		limit := 0
		if v := q.Get("limit"); v != "" {
			if i, err := strconv.Atoi(v); err == nil {
				limit = i
			}
		}
		pk := canon.PropertyKey(identifier)
		records, err := d.Store.History(req.Context(), pk, limit)
		if err != nil {
			WriteError(w, req, http.StatusInternalServerError, "store_error", err)
			return
		}
		items := make([]historyItem, 0, len(records))
		for _, rec := range records {
			items = append(items, historyItem{
				ID:          rec.ID,
				RequestType: rec.RequestType,
				Valuation: valuation.Composite{
					EstimatedValueCents: rec.EstimatedValueCents,
					RentEstimateCents:   rec.RentEstimateCents,
					PricePerSqftCents:   rec.PricePerSqftCents,
					ConfidenceScore:     rec.Confidence,
					DataSource:          rec.DataSource,
					Bedrooms:            rec.Bedrooms,
					Bathrooms:           rec.Bathrooms,
					Sqft:                rec.Sqft,
				},
				UsedFallback: rec.UsedFallback,
				PayloadHex:   oracle.Hex(rec.Payload),
				CreatedAt:    rec.CreatedAt,
			})
		}
		render.JSON(w, req, map[string]any{
			"ok":           true,
			"property_key": pk,
			"count":        len(items),
			"valuations":   items,
		})
	})
}
