package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"chrono-hq/reaper/pkg/promstore"
	"chrono-hq/reaper/pkg/retention"
	"chrono-hq/reaper/pkg/retention/store"
)

// defaultLogLimit bounds execution-log listings when the caller does
// not pass ?limit=.
const defaultLogLimit = 100

// Handler implements the management API endpoints.
type Handler struct {
	policies store.Store
	orch     *retention.Orchestrator
	sched    *retention.Scheduler
	remote   *promstore.Client
}

// NewHandler creates the API handler set.
func NewHandler(policies store.Store, orch *retention.Orchestrator, sched *retention.Scheduler, remote *promstore.Client) *Handler {
	return &Handler{
		policies: policies,
		orch:     orch,
		sched:    sched,
		remote:   remote,
	}
}

// CreatePolicy handles POST /api/v1/policies.
func (h *Handler) CreatePolicy(w http.ResponseWriter, r *http.Request) {
	var create retention.PolicyCreate
	if err := json.NewDecoder(r.Body).Decode(&create); err != nil {
		respondErrorString(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	policy, err := h.policies.CreatePolicy(r.Context(), create)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, policy)
}

// ListPolicies handles GET /api/v1/policies.
func (h *Handler) ListPolicies(w http.ResponseWriter, r *http.Request) {
	policies, err := h.policies.ListPolicies(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, policies)
}

// GetPolicy handles GET /api/v1/policies/{id}.
func (h *Handler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	policy, err := h.policies.GetPolicy(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, policy)
}

// UpdatePolicy handles PUT /api/v1/policies/{id}. Only fields present
// in the body change.
func (h *Handler) UpdatePolicy(w http.ResponseWriter, r *http.Request) {
	var update retention.PolicyUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		respondErrorString(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	policy, err := h.policies.UpdatePolicy(r.Context(), mux.Vars(r)["id"], update)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, policy)
}

// DeletePolicy handles DELETE /api/v1/policies/{id}. Execution logs
// for the policy are kept.
func (h *Handler) DeletePolicy(w http.ResponseWriter, r *http.Request) {
	if err := h.policies.DeletePolicy(r.Context(), mux.Vars(r)["id"]); err != nil {
		respondError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ExecutePolicy handles POST /api/v1/policies/{id}/execute.
func (h *Handler) ExecutePolicy(w http.ResponseWriter, r *http.Request) {
	result, err := h.orch.ExecutePolicy(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// ExecuteAll handles POST /api/v1/policies/execute-all. It always
// returns 200 with per-policy results; individual failures are
// reported inside the results, not as an HTTP error.
func (h *Handler) ExecuteAll(w http.ResponseWriter, r *http.Request) {
	results := h.orch.ExecuteAllEnabled(r.Context())
	respondJSON(w, http.StatusOK, results)
}

// DryRunPolicy handles POST /api/v1/policies/{id}/dry-run.
func (h *Handler) DryRunPolicy(w http.ResponseWriter, r *http.Request) {
	result, err := h.orch.DryRun(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// ListExecutionLogs handles GET /api/v1/policies/{id}/logs?limit=N.
func (h *Handler) ListExecutionLogs(w http.ResponseWriter, r *http.Request) {
	limit := defaultLogLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respondErrorString(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	logs, err := h.policies.ListExecutionLogs(r.Context(), mux.Vars(r)["id"], limit)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, logs)
}

// SchedulerStatus handles GET /api/v1/scheduler/status.
func (h *Handler) SchedulerStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.sched.Status())
}

// CheckConnection handles GET /api/v1/connection. It probes the remote
// store with a trivial query.
func (h *Handler) CheckConnection(w http.ResponseWriter, r *http.Request) {
	if err := h.remote.CheckConnection(r.Context()); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "connected"})
}

// Health handles GET /health. Liveness only; it does not reach out to
// the remote store.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
