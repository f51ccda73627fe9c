// Package handlers implements the HTTP handlers of the coaching control plane.
//
// Handlers decode the request, pass the caller's identity to the
// CoachingService and write its Response. Every service outcome, success or
// failure, is sent with status 200; only undecodable bodies get a 400.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/coachkit/coachplane/pkg/coacherr"
	"github.com/coachkit/coachplane/pkg/contracts"
	pkgmw "github.com/coachkit/coachplane/pkg/middleware"
	"github.com/coachkit/coachplane/pkg/models"
	"github.com/go-chi/chi/v5"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Handlers holds all handler dependencies.
type Handlers struct {
	Service contracts.CoachingService
}

// New creates a new Handlers instance.
func New(svc contracts.CoachingService) *Handlers {
	return &Handlers{Service: svc}
}

// ── Generation ──────────────────────────────────────────────

// Generate runs the generation named by the {kind} URL parameter.
func (h *Handlers) Generate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := pkgmw.GetIdentity(ctx)
	clientID := chi.URLParam(r, "clientId")

	switch chi.URLParam(r, "kind") {
	case "training":
		var opts models.TrainingOptions
		if !decodeOptional(w, r, &opts) {
			return
		}
		respondJSON(w, http.StatusOK, h.Service.GenerateTrainingProgram(ctx, id, clientID, opts))
	case "nutrition":
		respondJSON(w, http.StatusOK, h.Service.GenerateNutrition(ctx, id, clientID))
	case "weekly-review":
		respondJSON(w, http.StatusOK, h.Service.GenerateWeeklyReview(ctx, id, clientID))
	case "supplements":
		respondJSON(w, http.StatusOK, h.Service.GenerateSupplementAnalysis(ctx, id, clientID))
	case "summary":
		respondJSON(w, http.StatusOK, h.Service.GenerateClientSummary(ctx, id, clientID))
	case "intake-analysis":
		respondJSON(w, http.StatusOK, h.Service.GenerateIntakeAnalysis(ctx, id, clientID))
	default:
		respondError(w, http.StatusNotFound, "Onbekend generatietype")
	}
}

func (h *Handlers) InitialPlan(w http.ResponseWriter, r *http.Request) {
	var opts models.PlanOptions
	if !decodeOptional(w, r, &opts) {
		return
	}
	respondJSON(w, http.StatusOK, h.Service.GenerateInitialPlan(r.Context(), pkgmw.GetIdentity(r.Context()), chi.URLParam(r, "clientId"), opts))
}

// ── Commit ──────────────────────────────────────────────────

type applyRequest struct {
	Recommendation  models.ActionableRecommendation `json:"recommendation"`
	GenerationLogID string                          `json:"generationLogId,omitempty"`
}

func (h *Handlers) ApplyRecommendation(w http.ResponseWriter, r *http.Request) {
	var req applyRequest
	if !decode(w, r, &req) {
		return
	}
	respondJSON(w, http.StatusOK, h.Service.ApplyRecommendation(r.Context(), pkgmw.GetIdentity(r.Context()), chi.URLParam(r, "clientId"), req.Recommendation, req.GenerationLogID))
}

type saveProgramRequest struct {
	Program         models.TrainingProgram `json:"program"`
	GenerationLogID string                 `json:"generationLogId,omitempty"`
}

func (h *Handlers) SaveTrainingProgram(w http.ResponseWriter, r *http.Request) {
	var req saveProgramRequest
	if !decode(w, r, &req) {
		return
	}
	respondJSON(w, http.StatusOK, h.Service.SaveTrainingProgram(r.Context(), pkgmw.GetIdentity(r.Context()), chi.URLParam(r, "clientId"), req.Program, req.GenerationLogID))
}

type saveTargetsRequest struct {
	Targets models.NutritionTargets `json:"targets"`
	Source  models.Source           `json:"source,omitempty"`
}

func (h *Handlers) SaveNutritionTargets(w http.ResponseWriter, r *http.Request) {
	var req saveTargetsRequest
	if !decode(w, r, &req) {
		return
	}
	respondJSON(w, http.StatusOK, h.Service.SaveNutritionTargets(r.Context(), pkgmw.GetIdentity(r.Context()), chi.URLParam(r, "clientId"), req.Targets, req.Source))
}

// ── Generation Logs ─────────────────────────────────────────

// ListGenerationLogs accepts ?type= and ?limit= filters.
func (h *Handlers) ListGenerationLogs(w http.ResponseWriter, r *http.Request) {
	filter := models.GenerationLogFilter{Type: models.GenerationType(r.URL.Query().Get("type"))}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			respondError(w, http.StatusBadRequest, coacherr.MsgInvalidRequest)
			return
		}
		filter.Limit = limit
	}
	respondJSON(w, http.StatusOK, h.Service.ListGenerationLogs(r.Context(), pkgmw.GetIdentity(r.Context()), chi.URLParam(r, "clientId"), filter))
}

func (h *Handlers) GetGenerationLog(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.Service.GetGenerationLog(r.Context(), pkgmw.GetIdentity(r.Context()), chi.URLParam(r, "clientId"), chi.URLParam(r, "logId")))
}

func (h *Handlers) DeleteGenerationLog(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.Service.DeleteGenerationLog(r.Context(), pkgmw.GetIdentity(r.Context()), chi.URLParam(r, "clientId"), chi.URLParam(r, "logId")))
}

// ── Helpers ─────────────────────────────────────────────────

// decode reads a required JSON body into v and answers 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, coacherr.MsgInvalidRequest)
		return false
	}
	return true
}

// decodeOptional is decode for endpoints whose body may be empty.
func decodeOptional(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, coacherr.MsgInvalidRequest)
		return false
	}
	return true
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, models.Fail[struct{}](message))
}
