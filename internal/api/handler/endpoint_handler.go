package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/simatecve/contact-pulse-engine-sub000/internal/automation"
	"github.com/simatecve/contact-pulse-engine-sub000/internal/pkg/response"
	"github.com/simatecve/contact-pulse-engine-sub000/internal/storage"
	"github.com/simatecve/contact-pulse-engine-sub000/internal/storage/model"
)

// EndpointHandler administra la tabla webhook_endpoints. Solo admins: acá
// se decide a qué URLs sale el engine.
type EndpointHandler struct {
	repo     storage.WebhookEndpointRepository
	registry *automation.Registry
	log      *zap.Logger
}

func NewEndpointHandler(repo storage.WebhookEndpointRepository, registry *automation.Registry, log *zap.Logger) *EndpointHandler {
	return &EndpointHandler{repo: repo, registry: registry, log: log}
}

func (h *EndpointHandler) Register(r *gin.RouterGroup) {
	r.GET("/endpoints", h.list)
	r.PUT("/endpoints/:name", h.upsert)
	r.DELETE("/endpoints/:name", h.delete)
}

func (h *EndpointHandler) list(c *gin.Context) {
	endpoints, err := h.repo.List(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err)
		return
	}
	response.Success(c, http.StatusOK, endpoints)
}

type upsertEndpointRequest struct {
	URL         string `json:"url" binding:"required,url"`
	Description string `json:"description"`
}

func (h *EndpointHandler) upsert(c *gin.Context) {
	name := strings.TrimSpace(c.Param("name"))
	if !automation.EndpointAllowed(name) {
		response.ErrorWithDetails(c, http.StatusBadRequest, "nombre de endpoint no permitido", gin.H{
			"allowed": automation.AllowedEndpoints(),
		})
		return
	}

	var req upsertEndpointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, err)
		return
	}

	endpoint, err := h.repo.Upsert(c.Request.Context(), model.WebhookEndpoint{
		Name:        name,
		URL:         req.URL,
		Description: req.Description,
	})
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err)
		return
	}

	h.registry.Invalidate()
	h.log.Info("endpoints: registro actualizado", zap.String("name", name), zap.String("url", req.URL))

	response.Success(c, http.StatusOK, endpoint)
}

func (h *EndpointHandler) delete(c *gin.Context) {
	name := c.Param("name")
	if err := h.repo.Delete(c.Request.Context(), name); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			response.ErrorWithMessage(c, http.StatusNotFound, "endpoint no encontrado")
			return
		}
		response.Error(c, http.StatusInternalServerError, err)
		return
	}

	h.registry.Invalidate()
	response.Success(c, http.StatusOK, gin.H{"message": "endpoint eliminado"})
}
