package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/yourorg/valuation-api/internal/pipeline"
	"github.com/yourorg/valuation-api/internal/valuation"
)

// Valuator runs one valuation end to end.
type Valuator interface {
	Run(ctx context.Context, req valuation.Request) (pipeline.Result, error)
}

// ValuationRequest is the body (or query) shared by the valuation endpoints.
type ValuationRequest struct {
	Identifier string `json:"identifier"`
	Type       string `json:"type,omitempty"`
}

func (b ValuationRequest) toRequest() valuation.Request {
	return valuation.Request{Identifier: b.Identifier, Type: valuation.RequestType(b.Type)}
}

func fromQuery(req *http.Request) ValuationRequest {
	q := req.URL.Query()
	return ValuationRequest{Identifier: q.Get("identifier"), Type: q.Get("type")}
}

// IsInvalidInput reports errors the caller can fix by changing the request.
func IsInvalidInput(err error) bool {
	return errors.Is(err, valuation.ErrIdentifierRequired)
}

// WriteError renders {"error": code, "detail": ...} with the given status.
func WriteError(w http.ResponseWriter, req *http.Request, status int, code string, err error) {
	body := map[string]any{"error": code}
	if err != nil {
		body["detail"] = err.Error()
	}
	render.Status(req, status)
	render.JSON(w, req, body)
}

// WriteValuationError maps a pipeline error to 400 or 500.
func WriteValuationError(w http.ResponseWriter, req *http.Request, err error) {
	if IsInvalidInput(err) {
		WriteError(w, req, http.StatusBadRequest, "invalid_input", err)
		return
	}
	WriteError(w, req, http.StatusInternalServerError, "valuation_failed", err)
}
