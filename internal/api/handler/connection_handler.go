package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/simatecve/contact-pulse-engine-sub000/internal/automation"
	"github.com/simatecve/contact-pulse-engine-sub000/internal/pkg/breaker"
	"github.com/simatecve/contact-pulse-engine-sub000/internal/pkg/response"
	"github.com/simatecve/contact-pulse-engine-sub000/internal/qr"
	connectionSvc "github.com/simatecve/contact-pulse-engine-sub000/internal/service/connection"
	"github.com/simatecve/contact-pulse-engine-sub000/internal/storage"
)

type ConnectionHandler struct {
	service *connectionSvc.Service
	log     *zap.Logger
}

func NewConnectionHandler(service *connectionSvc.Service, log *zap.Logger) *ConnectionHandler {
	return &ConnectionHandler{service: service, log: log}
}

func (h *ConnectionHandler) Register(r *gin.RouterGroup) {
	r.GET("/connections", h.list)
	r.GET("/connections/:id", h.get)
	r.POST("/connections", h.create)
	r.DELETE("/connections/:id", h.delete)
	r.POST("/connections/:id/qr", h.requestQR)
	r.POST("/connections/:id/qr/refresh", h.requestQR)
	r.GET("/connections/:id/qr", h.cachedQR)
	r.POST("/connections/:id/connected", h.markConnected)
	r.GET("/connections/:id/status", h.checkStatus)
}

type createConnectionRequest struct {
	Name         string `json:"name" binding:"required,min=2"`
	Color        string `json:"color"`
	NotifyURL    string `json:"notify_url"`
	NotifySecret string `json:"notify_secret"`
}

func (h *ConnectionHandler) create(c *gin.Context) {
	var req createConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, err)
		return
	}

	conn, err := h.service.Create(c.Request.Context(), connectionSvc.CreateInput{
		Name:         req.Name,
		Color:        req.Color,
		NotifyURL:    req.NotifyURL,
		NotifySecret: req.NotifySecret,
		OwnerUserID:  c.GetString("userID"),
	})
	if err != nil {
		h.automationError(c, err, "no se pudo crear la instancia")
		return
	}

	response.Success(c, http.StatusCreated, conn)
}

func (h *ConnectionHandler) list(c *gin.Context) {
	conns, err := h.service.List(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err)
		return
	}
	response.Success(c, http.StatusOK, conns)
}

func (h *ConnectionHandler) get(c *gin.Context) {
	conn, err := h.service.Get(c.Request.Context(), c.Param("id"), c.GetString("userID"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			response.ErrorWithMessage(c, http.StatusNotFound, "conexión no encontrada")
			return
		}
		response.Error(c, http.StatusInternalServerError, err)
		return
	}
	response.Success(c, http.StatusOK, conn)
}

func (h *ConnectionHandler) delete(c *gin.Context) {
	err := h.service.Delete(c.Request.Context(), c.Param("id"), c.GetString("userID"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			response.ErrorWithMessage(c, http.StatusNotFound, "conexión no encontrada")
			return
		}
		response.Error(c, http.StatusInternalServerError, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "conexión eliminada"})
}

// requestQR atiende tanto el pedido inicial como el refresh: la operación
// remota es la misma.
func (h *ConnectionHandler) requestQR(c *gin.Context) {
	uri, err := h.service.RequestQR(c.Request.Context(), c.Param("id"), c.GetString("userID"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			response.ErrorWithMessage(c, http.StatusNotFound, "conexión no encontrada")
			return
		}
		h.automationError(c, err, "no se pudo obtener el código QR")
		return
	}

	if uri == "" {
		// sin QR todavía, o ya hay un pedido en vuelo
		response.Success(c, http.StatusAccepted, gin.H{
			"qr":      nil,
			"loading": h.service.IsLoading(c.Param("id")),
		})
		return
	}

	response.Success(c, http.StatusOK, gin.H{"qr": uri})
}

func (h *ConnectionHandler) cachedQR(c *gin.Context) {
	if _, err := h.service.Get(c.Request.Context(), c.Param("id"), c.GetString("userID")); err != nil {
		response.ErrorWithMessage(c, http.StatusNotFound, "conexión no encontrada")
		return
	}

	uri, ok := h.service.CachedQR(c.Param("id"))
	if !ok {
		response.Success(c, http.StatusOK, gin.H{"qr": nil})
		return
	}
	response.Success(c, http.StatusOK, gin.H{"qr": uri})
}

func (h *ConnectionHandler) markConnected(c *gin.Context) {
	err := h.service.MarkConnected(c.Request.Context(), c.Param("id"), c.GetString("userID"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			response.ErrorWithMessage(c, http.StatusNotFound, "conexión no encontrada")
			return
		}
		response.Error(c, http.StatusInternalServerError, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"status": "connected"})
}

func (h *ConnectionHandler) checkStatus(c *gin.Context) {
	raw, err := h.service.CheckStatus(c.Request.Context(), c.Param("id"), c.GetString("userID"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			response.ErrorWithMessage(c, http.StatusNotFound, "conexión no encontrada")
			return
		}
		h.automationError(c, err, "no se pudo consultar el estado")
		return
	}
	response.Success(c, http.StatusOK, raw)
}

// automationError traduce la taxonomía de errores del ejecutor a respuestas
// HTTP con mensajes distinguibles, para que la UI pueda explicar qué pasó.
func (h *ConnectionHandler) automationError(c *gin.Context, err error, fallback string) {
	var openErr *breaker.OpenError
	if errors.As(err, &openErr) {
		c.Header("Retry-After", openErr.RetryAfter.String())
		response.ErrorWithMessage(c, http.StatusServiceUnavailable,
			"el servicio de automatización está temporalmente suspendido por fallas repetidas, reintentá en unos segundos")
		return
	}

	if errors.Is(err, automation.ErrTimeout) {
		response.ErrorWithMessage(c, http.StatusGatewayTimeout,
			"el servicio de automatización no respondió a tiempo")
		return
	}

	if errors.Is(err, automation.ErrEndpointNotConfigured) {
		response.ErrorWithMessage(c, http.StatusBadGateway,
			"el endpoint de automatización no está configurado")
		return
	}

	if errors.Is(err, qr.ErrImageDecode) {
		response.ErrorWithMessage(c, http.StatusBadGateway,
			"la automatización devolvió una imagen de QR inválida")
		return
	}

	if errors.Is(err, automation.ErrMalformedResponse) {
		response.ErrorWithMessage(c, http.StatusBadGateway,
			"respuesta inesperada del servicio de automatización")
		return
	}

	var callErr *automation.CallError
	if errors.As(err, &callErr) {
		h.log.Error("automatización: llamada fallida",
			zap.String("endpoint", callErr.Endpoint),
			zap.Int("status", callErr.Status),
		)
		response.ErrorWithDetails(c, http.StatusBadGateway, fallback, gin.H{
			"endpoint": callErr.Endpoint,
			"status":   callErr.Status,
		})
		return
	}

	response.Error(c, http.StatusInternalServerError, err)
}
