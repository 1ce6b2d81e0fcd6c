package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/nidhogg/skillbook/internal/dict"
	"github.com/nidhogg/skillbook/internal/domainerr"
	"github.com/nidhogg/skillbook/internal/service"
	"github.com/nidhogg/skillbook/internal/skill"
	"github.com/nidhogg/skillbook/internal/store"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	svc     *service.Service
	pingers map[string]Pinger
	logger  *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(svc *service.Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, pingers: map[string]Pinger{}, logger: logger}
}

// AddHealthCheck reports the named dependency in /api/health.
func (h *Handler) AddHealthCheck(name string, p Pinger) {
	h.pingers[name] = p
}

// Router builds the chi router with all routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.healthCheck)

		r.Get("/skills", h.listSkills)
		r.Post("/skills", h.createSkill)
		r.Get("/skills/{id}", h.getSkill)
		r.Put("/skills/{id}", h.updateSkill)
		r.Get("/skills/{id}/summary", h.getSummary)
		r.Get("/skills/{id}/commits", h.listCommits)
		r.Get("/skills/{id}/prerequisites", h.listPrerequisites)

		// Rights
		r.Get("/skills/{id}/rights", h.getRights)
		r.Post("/skills/{id}/publish", h.publishSkill)

		// Mastery
		r.Get("/mastery/{userID}/{skillID}", h.getMastery)
		r.Put("/mastery/{userID}/{skillID}", h.putMastery)
	})

	return r
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{"status": "ok"}
	status := http.StatusOK
	for name, p := range h.pingers {
		if err := p.Ping(r.Context()); err != nil {
			body[name] = err.Error()
			body["status"] = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		body[name] = "ok"
	}
	writeJSON(w, status, body)
}

func (h *Handler) listSkills(w http.ResponseWriter, r *http.Request) {
	sums, err := h.svc.ListSummaries(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]dict.Dict, 0, len(sums))
	for _, s := range sums {
		out = append(out, s.ToDict())
	}
	writeJSON(w, http.StatusOK, out)
}

type createSkillRequest struct {
	ID          string      `json:"id"`
	Description string      `json:"description"`
	Rubrics     []dict.Dict `json:"rubrics"`
	CommitterID string      `json:"committer_id"`
}

func (h *Handler) createSkill(w http.ResponseWriter, r *http.Request) {
	var req createSkillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	rubrics := make([]skill.Rubric, 0, len(req.Rubrics))
	for _, d := range req.Rubrics {
		rb, err := skill.RubricFromDict(d)
		if err != nil {
			h.writeError(w, err)
			return
		}
		rubrics = append(rubrics, rb)
	}

	sk, err := h.svc.CreateSkill(r.Context(), service.CreateRequest{
		ID:          req.ID,
		Description: req.Description,
		Rubrics:     rubrics,
		CommitterID: req.CommitterID,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sk.ToDict())
}

func (h *Handler) getSkill(w http.ResponseWriter, r *http.Request) {
	sk, err := h.svc.GetSkill(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sk.ToDict())
}

type updateSkillRequest struct {
	Version       int         `json:"version"`
	CommitterID   string      `json:"committer_id"`
	CommitMessage string      `json:"commit_message"`
	ChangeDicts   []dict.Dict `json:"change_dicts"`
}

func (h *Handler) updateSkill(w http.ResponseWriter, r *http.Request) {
	var req updateSkillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	sk, err := h.svc.UpdateSkill(r.Context(), service.UpdateRequest{
		SkillID:         chi.URLParam(r, "id"),
		ExpectedVersion: req.Version,
		CommitterID:     req.CommitterID,
		Message:         req.CommitMessage,
		Changes:         req.ChangeDicts,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sk.ToDict())
}

func (h *Handler) getSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.svc.GetSummary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum.ToDict())
}

func (h *Handler) listCommits(w http.ResponseWriter, r *http.Request) {
	commits, err := h.svc.ListCommits(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, commits)
}

func (h *Handler) listPrerequisites(w http.ResponseWriter, r *http.Request) {
	transitive := false
	if v := r.URL.Query().Get("transitive"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "transitive must be a boolean"})
			return
		}
		transitive = b
	}
	ids, err := h.svc.Prerequisites(r.Context(), chi.URLParam(r, "id"), transitive)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"skill_ids": ids, "transitive": transitive})
}

func (h *Handler) getRights(w http.ResponseWriter, r *http.Request) {
	rights, err := h.svc.GetRights(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rights.ToDict())
}

type publishRequest struct {
	CommitterID string `json:"committer_id"`
}

func (h *Handler) publishSkill(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	rights, err := h.svc.PublishSkill(r.Context(), chi.URLParam(r, "id"), req.CommitterID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rights.ToDict())
}

func (h *Handler) getMastery(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.GetMastery(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "skillID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m.ToDict())
}

type masteryRequest struct {
	DegreeOfMastery float64 `json:"degree_of_mastery"`
}

func (h *Handler) putMastery(w http.ResponseWriter, r *http.Request) {
	var req masteryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	m := skill.UserSkillMastery{
		UserID:          chi.URLParam(r, "userID"),
		SkillID:         chi.URLParam(r, "skillID"),
		DegreeOfMastery: req.DegreeOfMastery,
	}
	if err := h.svc.PutMastery(r.Context(), m); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m.ToDict())
}

// writeError maps service errors to HTTP statuses. Unexpected errors are
// logged and hidden from the client.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrCorrupt):
		// Wraps a validation error, but the caller did nothing wrong.
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrVersionConflict):
		status = http.StatusConflict
	case errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
	case domainerr.IsValidation(err), domainerr.IsOperation(err):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.Error(err))
		if !domainerr.IsMigration(err) {
			writeJSON(w, status, map[string]string{"error": "internal error"})
			return
		}
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
