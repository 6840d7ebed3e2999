package handlers

import (
	"net/http"

	"busticket/internal/domain/models"

	"github.com/gin-gonic/gin"
)

// GET /api/schedules/search?from=&to=&date=
func (h Handler) SearchSchedules(c *gin.Context) {
	list, err := h.Schedules.Search(c.Request.Context(), models.ScheduleQuery{
		From: c.Query("from"),
		To:   c.Query("to"),
		Date: c.Query("date"),
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	out := make([]scheduleDTO, 0, len(list))
	for _, s := range list {
		out = append(out, toScheduleDTO(s))
	}
	c.JSON(http.StatusOK, gin.H{"schedules": out})
}

// GET /api/schedules/:id
func (h Handler) GetSchedule(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	s, err := h.Schedules.Get(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toScheduleDTO(s))
}
