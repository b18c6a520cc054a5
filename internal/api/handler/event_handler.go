package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/simatecve/contact-pulse-engine-sub000/internal/pkg/response"
	"github.com/simatecve/contact-pulse-engine-sub000/internal/storage"
)

// EventHandler sirve el historial de eventos de ciclo de vida del tenant.
type EventHandler struct {
	events storage.EventLogRepository
}

func NewEventHandler(events storage.EventLogRepository) *EventHandler {
	return &EventHandler{events: events}
}

func (h *EventHandler) Register(r *gin.RouterGroup) {
	r.GET("/events", h.list)
}

func (h *EventHandler) list(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	events, err := h.events.ListByOwner(c.Request.Context(), c.GetString("userID"), limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err)
		return
	}
	response.Success(c, http.StatusOK, events)
}
