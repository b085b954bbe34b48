package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/huangsam/cruxreport/core"
	"github.com/huangsam/cruxreport/core/agg"
	"github.com/huangsam/cruxreport/core/fetch"
	"github.com/huangsam/cruxreport/internal/contract"
	"github.com/huangsam/cruxreport/internal/outwriter"
	"github.com/huangsam/cruxreport/schema"
)

// Response messages.
const (
	msgConfigError     = "Server configuration error"
	msgInternalError   = "Internal server error"
	msgInvalidBody     = "Request body must be a JSON object"
	msgRateLimited     = "Rate limit exceeded. Please try again later"
	msgRequestTooLarge = "Request size exceeded. Please reduce the number of URLs"
)

type errorResponse struct {
	Error string   `json:"error"`
	URLs  []string `json:"urls,omitempty"`
}

type validationResponse struct {
	Errors contract.ValidationErrors `json:"errors"`
}

type healthResponse struct {
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	Environment string `json:"environment"`
}

type summaryResponse struct {
	schema.SummaryReport
	Results []schema.URLResult `json:"results"`
}

// writeJSON writes v with the given status code.
func (api *APIServer) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		api.logger.Error("failed to write response", "path", r.URL.Path, "error", err)
	}
}

func (api *APIServer) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	api.writeJSON(w, r, status, errorResponse{Error: msg})
}

// decodeRequest reads and validates the lookup request of r. It writes the
// error response itself and reports false when the request is unusable.
func (api *APIServer) decodeRequest(w http.ResponseWriter, r *http.Request) (schema.CruxRequest, bool) {
	var req schema.CruxRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.writeError(w, r, http.StatusRequestEntityTooLarge, msgRequestTooLarge)
			return req, false
		}
		api.writeError(w, r, http.StatusBadRequest, msgInvalidBody)
		return req, false
	}

	valid, err := contract.ValidateCruxRequest(req, api.cfg.MaxURLs)
	if err != nil {
		var verrs contract.ValidationErrors
		if errors.As(err, &verrs) {
			api.writeJSON(w, r, http.StatusBadRequest, validationResponse{Errors: verrs})
			return req, false
		}
		api.writeError(w, r, http.StatusBadRequest, err.Error())
		return req, false
	}
	return valid, true
}

// writeRunnerError maps a pipeline error to its HTTP response.
func (api *APIServer) writeRunnerError(w http.ResponseWriter, r *http.Request, err error) {
	var unavailable *agg.UnavailableError
	switch {
	case errors.Is(err, fetch.ErrConfig):
		api.logger.Error("missing crux api configuration", "request_id", core.RequestID(r.Context()), "error", err)
		api.writeError(w, r, http.StatusInternalServerError, msgConfigError)
	case errors.As(err, &unavailable):
		api.writeJSON(w, r, http.StatusUnprocessableEntity, errorResponse{Error: unavailable.Error(), URLs: unavailable.URLs})
	default:
		api.logger.Error("error processing request", "request_id", core.RequestID(r.Context()), "error", err)
		api.writeError(w, r, http.StatusInternalServerError, msgInternalError)
	}
}

// extendWriteDeadline lets the response outlive serverTimeout when the
// worst-case fetch of req takes longer.
func (api *APIServer) extendWriteDeadline(w http.ResponseWriter, r *http.Request, req schema.CruxRequest) {
	budget := core.FetchConfig(api.cfg).Budget(len(req.URLs))
	if budget <= 0 {
		return
	}
	deadline := time.Now().Add(budget + serverTimeout)
	if err := http.NewResponseController(w).SetWriteDeadline(deadline); err != nil {
		api.logger.Debug("write deadline not extended", "request_id", core.RequestID(r.Context()), "error", err)
	}
}

// cruxHandler returns the per-URL results of a lookup request.
func (api *APIServer) cruxHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := api.decodeRequest(w, r)
	if !ok {
		return
	}

	api.logger.Info("received crux request", "request_id", core.RequestID(r.Context()), "urls", len(req.URLs))
	api.extendWriteDeadline(w, r, req)
	results, err := api.runner.Results(r.Context(), req)
	if err != nil {
		api.writeRunnerError(w, r, err)
		return
	}
	api.writeJSON(w, r, http.StatusOK, results)
}

// summaryHandler returns the aggregated report together with the per-URL results.
func (api *APIServer) summaryHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := api.decodeRequest(w, r)
	if !ok {
		return
	}

	api.logger.Info("received summary request", "request_id", core.RequestID(r.Context()), "urls", len(req.URLs))
	api.extendWriteDeadline(w, r, req)
	report, results, err := api.runner.Summary(r.Context(), req)
	if err != nil {
		api.writeRunnerError(w, r, err)
		return
	}
	api.writeJSON(w, r, http.StatusOK, summaryResponse{SummaryReport: report, Results: results})
}

// metricsHandler returns the metric vocabulary with thresholds.
func (api *APIServer) metricsHandler(w http.ResponseWriter, r *http.Request) {
	api.writeJSON(w, r, http.StatusOK, outwriter.MetricDefinitions())
}

func (api *APIServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	api.writeJSON(w, r, http.StatusOK, healthResponse{
		Status:      "ok",
		Timestamp:   api.now().UTC().Format(time.RFC3339),
		Environment: api.cfg.Environment,
	})
}
