package messaging

import (
	"errors"
	"net/http"
	"strconv"
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

// RegisterRoutes attaches messaging routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/conversations", h.create)
	rg.POST("/conversations/:id/messages", h.send)
	rg.GET("/conversations/:id/messages", h.listMessages)
	rg.POST("/conversations/:id/participants", h.addParticipants)
	rg.DELETE("/conversations/:id/participants/:userId", h.removeParticipant)
	rg.POST("/conversations/:id/ratings", h.rate)
	rg.POST("/conversations/:id/read", h.markRead)
	rg.POST("/conversations/:id/archive", h.archive)
	rg.PATCH("/messages/:messageId", h.editMessage)
	rg.DELETE("/messages/:messageId", h.deleteMessage)
	rg.GET("/conversations/unread-count", h.unreadCount)
}

type createConversationRequest struct {
	OrganizationID string   `json:"organizationId"`
	Subject        string   `json:"subject"`
	ParticipantIDs []string `json:"participantIds"`
	ApplicationID  string   `json:"applicationId"`
}

func (h *Handler) create(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req createConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	var applicationID *string
	if trimmed := strings.TrimSpace(req.ApplicationID); trimmed != "" {
		applicationID = &trimmed
	}

	conv, err := h.Svc.CreateConversation(c.Request.Context(), req.OrganizationID, req.Subject, req.ParticipantIDs, applicationID, userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrNotEnoughParticipants):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		case errors.Is(err, ErrIneligibleApplication):
			respond.Error(c, http.StatusUnprocessableEntity, "ineligible_application", err.Error(), nil)
		case errors.Is(err, ErrParticipantNotInvolved):
			respond.Error(c, http.StatusUnprocessableEntity, "participant_not_involved", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to create conversation", nil)
		}
		return
	}

	respond.Created(c, toConversationResponse(conv))
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

func (h *Handler) send(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	c.Set("conversationId", c.Param("id"))

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	msg, err := h.Svc.SendMessage(c.Request.Context(), c.Param("id"), req.Content, userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "conversation not found", nil)
		case errors.Is(err, ErrUnauthorized):
			respond.Error(c, http.StatusForbidden, "unauthorized", err.Error(), nil)
		case errors.Is(err, ErrIneligibleApplication):
			respond.Error(c, http.StatusUnprocessableEntity, "ineligible_application", err.Error(), nil)
		case errors.Is(err, ErrRateLimited):
			respond.Error(c, http.StatusTooManyRequests, "rate_limited", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to send message", nil)
		}
		return
	}

	respond.Created(c, toMessageResponse(msg))
}

func (h *Handler) listMessages(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	msgs, err := h.Svc.ListMessages(c.Request.Context(), c.Param("id"), userID, limit, offset)
	if err != nil {
		h.respondConversationErr(c, err, "failed to list messages")
		return
	}

	out := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toMessageResponse(m))
	}
	respond.OK(c, gin.H{"messages": out})
}

type addParticipantsRequest struct {
	UserIDs []string `json:"userIds"`
}

func (h *Handler) addParticipants(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req addParticipantsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if len(req.UserIDs) == 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "userIds is required", nil)
		return
	}

	// Single adds fail strictly on ineligibility; batches skip ineligible
	// entries so the rest still land.
	if len(req.UserIDs) == 1 {
		err := h.Svc.AddParticipant(c.Request.Context(), c.Param("id"), userID, req.UserIDs[0])
		if err != nil {
			if errors.Is(err, ErrParticipantNotInvolved) {
				respond.Error(c, http.StatusUnprocessableEntity, "participant_not_involved", err.Error(), nil)
				return
			}
			h.respondConversationErr(c, err, "failed to add participant")
			return
		}
		respond.OK(c, gin.H{"added": req.UserIDs})
		return
	}

	added, err := h.Svc.AddParticipants(c.Request.Context(), c.Param("id"), userID, req.UserIDs)
	if err != nil {
		h.respondConversationErr(c, err, "failed to add participants")
		return
	}
	if added == nil {
		added = []string{}
	}
	respond.OK(c, gin.H{"added": added})
}

func (h *Handler) removeParticipant(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	err := h.Svc.RemoveParticipant(c.Request.Context(), c.Param("id"), userID, c.Param("userId"))
	if err != nil {
		h.respondConversationErr(c, err, "failed to remove participant")
		return
	}
	respond.NoContent(c)
}

type rateRequest struct {
	Score   int    `json:"score"`
	Comment string `json:"comment"`
}

func (h *Handler) rate(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req rateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	rating, err := h.Svc.RateConversation(c.Request.Context(), c.Param("id"), userID, req.Score, req.Comment)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		case errors.Is(err, ErrNoMessages):
			respond.Error(c, http.StatusPreconditionFailed, "no_messages", err.Error(), nil)
		case errors.Is(err, ErrAlreadyRated):
			respond.Error(c, http.StatusConflict, "already_rated", err.Error(), nil)
		default:
			h.respondConversationErr(c, err, "failed to rate conversation")
		}
		return
	}

	respond.Created(c, gin.H{
		"ratingId":  rating.ID,
		"score":     rating.Score,
		"createdAt": rating.CreatedAt.Format(time.RFC3339),
	})
}

func (h *Handler) markRead(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if err := h.Svc.MarkRead(c.Request.Context(), c.Param("id"), userID); err != nil {
		h.respondConversationErr(c, err, "failed to mark read")
		return
	}
	respond.NoContent(c)
}

func (h *Handler) archive(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if err := h.Svc.ArchiveConversation(c.Request.Context(), c.Param("id"), userID); err != nil {
		h.respondConversationErr(c, err, "failed to archive conversation")
		return
	}
	respond.NoContent(c)
}

type editMessageRequest struct {
	Content string `json:"content"`
}

func (h *Handler) editMessage(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req editMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	msg, err := h.Svc.EditMessage(c.Request.Context(), c.Param("messageId"), userID, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "message not found", nil)
		case errors.Is(err, ErrUnauthorized):
			respond.Error(c, http.StatusForbidden, "unauthorized", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to edit message", nil)
		}
		return
	}

	respond.OK(c, toMessageResponse(msg))
}

func (h *Handler) deleteMessage(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	err := h.Svc.DeleteMessage(c.Request.Context(), c.Param("messageId"), userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "message not found", nil)
		case errors.Is(err, ErrUnauthorized):
			respond.Error(c, http.StatusForbidden, "unauthorized", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to delete message", nil)
		}
		return
	}
	respond.NoContent(c)
}

func (h *Handler) unreadCount(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	organizationID := strings.TrimSpace(c.Query("organizationId"))
	if organizationID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "organizationId is required", nil)
		return
	}

	count, err := h.Svc.UnreadCount(c.Request.Context(), organizationID, userID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to count unread messages", nil)
		return
	}
	respond.OK(c, gin.H{"unreadCount": count})
}

func (h *Handler) respondConversationErr(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "conversation not found", nil)
	case errors.Is(err, ErrUnauthorized):
		respond.Error(c, http.StatusForbidden, "unauthorized", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}

type conversationResponse struct {
	ConversationID string `json:"conversationId"`
	OrganizationID string `json:"organizationId"`
	ApplicationID  string `json:"applicationId,omitempty"`
	Subject        string `json:"subject"`
	IsActive       bool   `json:"isActive"`
	CreatedBy      string `json:"createdBy"`
	CreatedAt      string `json:"createdAt"`
}

func toConversationResponse(conv Conversation) conversationResponse {
	out := conversationResponse{
		ConversationID: conv.ID,
		OrganizationID: conv.OrganizationID,
		Subject:        conv.Subject,
		IsActive:       conv.IsActive,
		CreatedBy:      conv.CreatedByID,
		CreatedAt:      conv.CreatedAt.Format(time.RFC3339),
	}
	if conv.ApplicationID != nil {
		out.ApplicationID = *conv.ApplicationID
	}
	return out
}

type messageResponse struct {
	MessageID      string `json:"messageId"`
	ConversationID string `json:"conversationId"`
	SenderID       string `json:"senderId"`
	Content        string `json:"content"`
	SentAt         string `json:"sentAt"`
	EditedAt       string `json:"editedAt,omitempty"`
}

func toMessageResponse(m Message) messageResponse {
	out := messageResponse{
		MessageID:      m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Content:        m.Content,
		SentAt:         m.SentAt.Format(time.RFC3339),
	}
	if m.EditedAt != nil {
		out.EditedAt = m.EditedAt.Format(time.RFC3339)
	}
	return out
}
