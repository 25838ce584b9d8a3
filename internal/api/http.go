// Package api exposes the routing core over HTTP: POST /chat/completions
// plus the read-only /providers and /routing/analytics views and the
// /simulate/failure admin toggle (§6).
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/ratnathegod/Cost-SLO-Aware-LLM-Inference-Router/internal/router"
	"github.com/ratnathegod/Cost-SLO-Aware-LLM-Inference-Router/internal/state"
)

// Handlers binds the HTTP surface to one Router instance (and, through it,
// the one Store the whole process shares).
type Handlers struct {
	Router *router.Router
}

func NewHandlers(r *router.Router) *Handlers {
	return &Handlers{Router: r}
}

// HandleChatCompletions implements POST /chat/completions.
func (h *Handlers) HandleChatCompletions(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req state.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = rw.WriteValidationError("request body must be valid JSON matching ChatRequest")
		return
	}

	resp, err := h.Router.Route(r.Context(), req)
	if err == nil {
		_ = rw.WriteJSON(http.StatusOK, resp)
		return
	}

	var ve *router.ValidationError
	var be *router.BudgetExceeded
	var npa *router.NoProvidersAvailable
	switch {
	case errors.As(err, &ve):
		_ = rw.WriteValidationError(ve.Reason)
	case errors.As(err, &be):
		log.Info().Str("user_id", be.UserID).Float64("spend", be.Spend).Msg("rejected on budget cap")
		_ = rw.WriteDetail(http.StatusPaymentRequired, "Budget exceeded")
	case errors.As(err, &npa):
		log.Warn().Int("attempted", npa.Attempted).Msg("no provider could serve the request")
		_ = rw.WriteDetail(http.StatusServiceUnavailable, "All providers unavailable")
	default:
		log.Error().Err(err).Msg("unexpected router error")
		_ = rw.WriteDetail(http.StatusServiceUnavailable, "All providers unavailable")
	}
}

// HandleListProviders implements GET /providers.
func (h *Handlers) HandleListProviders(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	_, metricsByProvider := h.Router.Store.Snapshot()

	out := make([]providerStatus, 0, len(h.Router.Store.Providers()))
	for _, spec := range h.Router.Store.Providers() {
		m := metricsByProvider[spec.Name]
		out = append(out, providerStatus{
			Spec:    spec,
			Metrics: m,
		})
	}
	_ = rw.WriteJSON(http.StatusOK, out)
}

type providerStatus struct {
	Spec    state.ProviderSpec         `json:"spec"`
	Metrics state.ProviderMetricsView `json:"metrics"`
}

// HandleRoutingAnalytics implements GET /routing/analytics.
func (h *Handlers) HandleRoutingAnalytics(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	global, providers := h.Router.Store.Snapshot()
	_ = rw.WriteJSON(http.StatusOK, analyticsResponse{Global: global, Providers: providers})
}

type analyticsResponse struct {
	Global    state.GlobalMetricsView              `json:"global"`
	Providers map[string]state.ProviderMetricsView `json:"providers"`
}

// simulateFailureRequest is the POST /simulate/failure body.
type simulateFailureRequest struct {
	Provider string `json:"provider"`
	Down     bool   `json:"down"`
}

// HandleSimulateFailure implements POST /simulate/failure.
func (h *Handlers) HandleSimulateFailure(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req simulateFailureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = rw.WriteValidationError("request body must be valid JSON with provider and down fields")
		return
	}

	if ok := h.Router.Store.SetManualDown(req.Provider, req.Down); !ok {
		_ = rw.WriteNotFound("unknown provider: " + req.Provider)
		return
	}

	log.Info().Str("provider", req.Provider).Bool("down", req.Down).Msg("manual down flag updated")
	_ = rw.WriteJSON(http.StatusOK, simulateFailureRequest{Provider: req.Provider, Down: req.Down})
}
