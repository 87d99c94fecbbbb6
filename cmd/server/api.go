package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"solana-agent-arena/internal/agents"
	"solana-agent-arena/internal/apperr"
	"solana-agent-arena/internal/domain"
	"solana-agent-arena/internal/intent"
	"solana-agent-arena/internal/store"
)

// api serves the platform's JSON surface: agent registration, intent
// submission, and lookups. Admission and execution stay asynchronous; a
// submitted intent is returned pending and settles on a worker pass.
type api struct {
	store   *store.Store
	agents  *agents.Service
	intents *intent.Service
	started time.Time
}

func newAPI(st *store.Store, agentSvc *agents.Service, intentSvc *intent.Service) *api {
	return &api{
		store:   st,
		agents:  agentSvc,
		intents: intentSvc,
		started: time.Now(),
	}
}

func (a *api) routes(mux *http.ServeMux) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /status", a.handleStatus)
	mux.HandleFunc("POST /v1/agents", a.handleRegisterAgent)
	mux.HandleFunc("GET /v1/agents/{id}", a.handleGetAgent)
	mux.HandleFunc("POST /v1/intents", a.handleSubmitIntent)
	mux.HandleFunc("GET /v1/intents/{id}", a.handleGetIntent)
}

// statusResponse is the JSON response for the /status endpoint.
type statusResponse struct {
	Status          string         `json:"status"`
	Uptime          string         `json:"uptime"`
	Agents          int            `json:"agents"`
	PendingIntents  int            `json:"pending_intents"`
	TotalIntents    int            `json:"total_intents"`
	TotalExecutions int            `json:"total_executions"`
	TreasuryFeesUsd float64        `json:"treasury_fees_usd"`
	Metrics         domain.Metrics `json:"metrics"`
}

func (a *api) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := a.store.Snapshot()

	pending := 0
	for _, it := range snap.Intents {
		if it.Status == domain.IntentStatusPending {
			pending++
		}
	}

	writeJSON(w, http.StatusOK, statusResponse{
		Status:          "running",
		Uptime:          time.Since(a.started).String(),
		Agents:          len(snap.Agents),
		PendingIntents:  pending,
		TotalIntents:    len(snap.Intents),
		TotalExecutions: len(snap.Executions),
		TreasuryFeesUsd: snap.Treasury.TotalFeesUsd,
		Metrics:         snap.Metrics,
	})
}

type registerAgentRequest struct {
	Name               string             `json:"name"`
	StrategyID         string             `json:"strategy_id,omitempty"`
	StartingCapitalUsd float64            `json:"starting_capital_usd"`
	RiskLimits         *domain.RiskLimits `json:"risk_limits,omitempty"`
}

func (a *api) handleRegisterAgent(w http.ResponseWriter, r *http.Request) {
	var req registerAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.InvalidPayload("malformed json body"))
		return
	}

	input := agents.RegisterInput{
		Name:               req.Name,
		StrategyID:         req.StrategyID,
		StartingCapitalUsd: req.StartingCapitalUsd,
	}
	if req.RiskLimits != nil {
		input.RiskLimits = *req.RiskLimits
	}

	agent, err := a.agents.Register(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}
	// The only response that ever carries the credential.
	writeJSON(w, http.StatusCreated, agent)
}

func (a *api) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	snap := a.store.Snapshot()
	agent, ok := snap.Agents[id]
	if !ok {
		writeError(w, apperr.AgentNotFound(id))
		return
	}
	agent.Credential = ""
	writeJSON(w, http.StatusOK, agent)
}

type submitIntentRequest struct {
	AgentID     string            `json:"agent_id"`
	Symbol      string            `json:"symbol"`
	Side        domain.Side       `json:"side"`
	Quantity    float64           `json:"quantity,omitempty"`
	NotionalUsd float64           `json:"notional_usd,omitempty"`
	Mode        domain.Mode       `json:"mode,omitempty"`
	Meta        map[string]string `json:"meta,omitempty"`
}

type submitIntentResponse struct {
	Intent   *domain.TradeIntent `json:"intent"`
	Replayed bool                `json:"replayed"`
}

func (a *api) handleSubmitIntent(w http.ResponseWriter, r *http.Request) {
	var req submitIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.InvalidPayload("malformed json body"))
		return
	}

	var opts *intent.CreateOptions
	if key := r.Header.Get("Idempotency-Key"); key != "" {
		opts = &intent.CreateOptions{IdempotencyKey: key}
	}

	result, err := a.intents.Create(r.Context(), intent.CreateInput{
		AgentID:       req.AgentID,
		Symbol:        req.Symbol,
		Side:          req.Side,
		Quantity:      req.Quantity,
		NotionalUsd:   req.NotionalUsd,
		RequestedMode: req.Mode,
		Meta:          req.Meta,
	}, opts)
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, submitIntentResponse{Intent: result.Intent, Replayed: result.Replayed})
}

func (a *api) handleGetIntent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	snap := a.store.Snapshot()
	it, ok := snap.Intents[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"message": "intent " + id + " not found",
		})
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps service errors onto the wire taxonomy. Unknown errors
// become opaque internal errors so upstream detail never leaks.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		appErr = apperr.Internal("internal error")
	}
	writeJSON(w, appErr.Status, appErr)
}
