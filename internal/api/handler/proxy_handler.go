package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/simatecve/contact-pulse-engine-sub000/internal/automation"
	"github.com/simatecve/contact-pulse-engine-sub000/internal/pkg/breaker"
)

// ProxyHandler expone la pasarela genérica hacia la automatización: el
// navegador nunca habla con n8n directo, siempre pasa por acá con un nombre
// de endpoint de la lista permitida.
type ProxyHandler struct {
	exec *automation.Executor
	log  *zap.Logger
}

func NewProxyHandler(exec *automation.Executor, log *zap.Logger) *ProxyHandler {
	return &ProxyHandler{exec: exec, log: log}
}

func (h *ProxyHandler) Register(r *gin.RouterGroup) {
	r.POST("/automation/proxy", h.proxy)
}

type proxyRequest struct {
	Endpoint string          `json:"endpoint" binding:"required"`
	Data     json.RawMessage `json:"data"`
}

func (h *ProxyHandler) proxy(c *gin.Context) {
	var req proxyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	if !automation.EndpointAllowed(req.Endpoint) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "endpoint no permitido",
			"details": gin.H{"allowed": automation.AllowedEndpoints()},
		})
		return
	}

	data := req.Data
	if len(data) == 0 {
		data = json.RawMessage(`{}`)
	}

	raw, err := h.exec.Call(c.Request.Context(), req.Endpoint, data)
	if err != nil {
		h.proxyError(c, req.Endpoint, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": raw})
}

func (h *ProxyHandler) proxyError(c *gin.Context, endpoint string, err error) {
	status := http.StatusBadGateway
	message := "la llamada a la automatización falló"
	var details any

	var openErr *breaker.OpenError
	var callErr *automation.CallError
	switch {
	case errors.As(err, &openErr):
		status = http.StatusServiceUnavailable
		message = "servicio suspendido por fallas repetidas"
		details = gin.H{"retryAfter": openErr.RetryAfter.String()}
	case errors.Is(err, automation.ErrTimeout):
		status = http.StatusGatewayTimeout
		message = "la automatización no respondió a tiempo"
	case errors.Is(err, automation.ErrEndpointNotConfigured):
		message = "el endpoint no tiene URL configurada"
	case errors.As(err, &callErr):
		details = gin.H{"status": callErr.Status, "endpoint": callErr.Endpoint}
	}

	h.log.Warn("proxy: llamada fallida", zap.String("endpoint", endpoint), zap.Error(err))

	body := gin.H{"success": false, "error": message}
	if details != nil {
		body["details"] = details
	}
	c.JSON(status, body)
}
