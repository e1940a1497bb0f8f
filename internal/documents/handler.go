package documents

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"recruit-backend/internal/shared/server/middleware"
	"recruit-backend/internal/shared/server/respond"
)

const maxUploadSize = 10 << 20 // 10MB

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches document routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents", h.upload)
	rg.GET("/documents", h.list)
	rg.GET("/documents/:id", h.get)
	rg.GET("/documents/:id/download", h.download)
	rg.DELETE("/documents/:id", h.remove)
	rg.POST("/documents/:id/grants", h.grant)
	rg.DELETE("/documents/:id/grants/:businessUserId", h.revoke)
	rg.GET("/documents/:id/access", h.access)
}

func (h *Handler) upload(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	doc, err := h.Svc.Upload(c.Request.Context(), userID, fileHeader.Filename, file)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to upload document", nil)
		}
		return
	}

	respond.Created(c, toResponse(doc))
}

func (h *Handler) list(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	docs, err := h.Svc.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list documents", nil)
		return
	}

	out := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		out = append(out, toResponse(doc))
	}
	respond.OK(c, gin.H{"documents": out})
}

func (h *Handler) get(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	c.Set("documentId", c.Param("id"))

	doc, err := h.Svc.Get(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.respondErr(c, err, "failed to load document")
		return
	}
	respond.OK(c, toResponse(doc))
}

func (h *Handler) download(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	body, doc, err := h.Svc.Open(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.respondErr(c, err, "failed to open document")
		return
	}
	defer body.Close()

	c.Header("Content-Disposition", `attachment; filename="`+doc.FileName+`"`)
	c.Header("Content-Type", doc.MimeType)
	_, _ = io.Copy(c.Writer, body)
}

func (h *Handler) remove(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	c.Set("documentId", c.Param("id"))

	if err := h.Svc.Delete(c.Request.Context(), c.Param("id"), userID); err != nil {
		h.respondErr(c, err, "failed to delete document")
		return
	}
	respond.NoContent(c)
}

type grantRequest struct {
	BusinessUserID    string `json:"businessUserId"`
	ApplicationID     string `json:"applicationId"`
	DocumentRequestID string `json:"documentRequestId"`
}

func (h *Handler) grant(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req grantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	grant, err := h.Svc.GrantAccess(c.Request.Context(), c.Param("id"), userID,
		strings.TrimSpace(req.BusinessUserID), optional(req.ApplicationID), optional(req.DocumentRequestID))
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			h.respondErr(c, err, "failed to grant access")
		}
		return
	}

	respond.Created(c, toGrantResponse(grant))
}

type revokeRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) revoke(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req revokeRequest
	_ = c.ShouldBindJSON(&req) // body is optional

	err := h.Svc.RevokeAccess(c.Request.Context(), c.Param("id"), userID, c.Param("businessUserId"), req.Reason)
	if err != nil {
		h.respondErr(c, err, "failed to revoke access")
		return
	}
	respond.NoContent(c)
}

func (h *Handler) access(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	allowed, err := h.Svc.UserHasAccess(c.Request.Context(), c.Param("id"), userID, optional(c.Query("applicationId")))
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to check access", nil)
		return
	}
	respond.OK(c, gin.H{"hasAccess": allowed})
}

func (h *Handler) respondErr(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "not found", nil)
	case errors.Is(err, ErrUnauthorized):
		respond.Error(c, http.StatusForbidden, "unauthorized", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}

func optional(s string) *string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
