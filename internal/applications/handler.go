package applications

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"recruit-backend/internal/shared/server/middleware"
	"recruit-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches application routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/applications", h.apply)
	rg.GET("/applications/:id", h.get)
	rg.GET("/applications/:id/history", h.history)
	rg.POST("/applications/:id/advance", h.advance)
	rg.POST("/applications/:id/prehire-confirmation", h.recordPreHire)
}

type applyRequest struct {
	JobID          string `json:"jobId"`
	OrganizationID string `json:"organizationId"`
}

func (h *Handler) apply(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req applyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	req.JobID = strings.TrimSpace(req.JobID)
	req.OrganizationID = strings.TrimSpace(req.OrganizationID)

	app, err := h.Svc.Apply(c.Request.Context(), req.JobID, userID, req.OrganizationID)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		case errors.Is(err, ErrAlreadyApplied):
			respond.Error(c, http.StatusConflict, "already_applied", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to create application", nil)
		}
		return
	}

	respond.Created(c, toResponse(app))
}

func (h *Handler) get(c *gin.Context) {
	app, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "application not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load application", nil)
		return
	}
	respond.OK(c, toResponse(app))
}

func (h *Handler) history(c *gin.Context) {
	rows, err := h.Svc.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "application not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load history", nil)
		return
	}

	out := make([]historyResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, toHistoryResponse(row))
	}
	respond.OK(c, gin.H{"history": out})
}

type advanceRequest struct {
	TargetStatus string `json:"targetStatus"`
	Note         string `json:"note"`
}

func (h *Handler) advance(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req advanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	app, err := h.Svc.Advance(c.Request.Context(), c.Param("id"), Status(strings.TrimSpace(req.TargetStatus)), userID, req.Note)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "application not found", nil)
		case errors.Is(err, ErrTerminalState):
			respond.Error(c, http.StatusConflict, "terminal_state", err.Error(), nil)
		case errors.Is(err, ErrInvalidTransition):
			respond.Error(c, http.StatusUnprocessableEntity, "invalid_transition", err.Error(), nil)
		case errors.Is(err, ErrPreconditionFailed):
			respond.Error(c, http.StatusPreconditionFailed, "precondition_failed", err.Error(), nil)
		case errors.Is(err, ErrConflict):
			respond.Error(c, http.StatusConflict, "conflict", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to advance application", nil)
		}
		return
	}

	c.Set("statusTransition", string(app.Status))
	respond.OK(c, toResponse(app))
}

type preHireRequest struct {
	Confirmed   bool   `json:"confirmed"`
	Text        string `json:"text"`
	TextVersion int    `json:"textVersion"`
}

func (h *Handler) recordPreHire(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req preHireRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	conf, err := h.Svc.RecordPreHireConfirmation(c.Request.Context(), c.Param("id"), userID, req.Confirmed, req.Text, req.TextVersion)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "application not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to record confirmation", nil)
		return
	}

	respond.OK(c, gin.H{
		"confirmationId": conf.ID,
		"confirmed":      conf.RightToWorkConfirmed,
		"textVersion":    conf.TextVersion,
		"recordedAt":     conf.CreatedAt.Format(time.RFC3339),
	})
}

type applicationResponse struct {
	ApplicationID  string `json:"applicationId"`
	JobID          string `json:"jobId"`
	CandidateID    string `json:"candidateId"`
	OrganizationID string `json:"organizationId"`
	Status         string `json:"status"`
	AppliedAt      string `json:"appliedAt"`
	UpdatedAt      string `json:"updatedAt"`
}

func toResponse(app Application) applicationResponse {
	return applicationResponse{
		ApplicationID:  app.ID,
		JobID:          app.JobID,
		CandidateID:    app.CandidateID,
		OrganizationID: app.OrganizationID,
		Status:         string(app.Status),
		AppliedAt:      app.AppliedAt.Format(time.RFC3339),
		UpdatedAt:      app.UpdatedAt.Format(time.RFC3339),
	}
}

type historyResponse struct {
	FromStatus string `json:"fromStatus,omitempty"`
	ToStatus   string `json:"toStatus"`
	ActorID    string `json:"actorId"`
	Note       string `json:"note,omitempty"`
	CreatedAt  string `json:"createdAt"`
}

func toHistoryResponse(h StatusHistory) historyResponse {
	out := historyResponse{
		ToStatus:  string(h.ToStatus),
		ActorID:   h.ActorID,
		Note:      h.Note,
		CreatedAt: h.CreatedAt.Format(time.RFC3339),
	}
	if h.FromStatus != nil {
		out.FromStatus = string(*h.FromStatus)
	}
	return out
}
