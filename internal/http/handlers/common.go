package handlers

import (
	"net/http"

	"busticket/internal/domain"
	"busticket/internal/http/middleware"
	"busticket/internal/utils"

	"github.com/gin-gonic/gin"
)

// BindJSONOrError ensures body is present and parsable.
func BindJSONOrError[T any](c *gin.Context, dst *T) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		respondError(c, http.StatusBadRequest, "validation_error", "request body is empty", nil)
		return false
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", "invalid payload", gin.H{"_": err.Error()})
		return false
	}
	return true
}

// pathID parses a positive id path parameter or writes a 400.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, ok := utils.ParseID(c.Param(name))
	if !ok {
		respondError(c, http.StatusBadRequest, "validation_error", "invalid "+name, gin.H{name: "must be a positive integer"})
		return 0, false
	}
	return id, true
}

// actingUser resolves the user a request acts for. A body userId is only
// honoured when no verified identity exists and the deployment trusts it;
// when both are present they must agree.
func (h Handler) actingUser(c *gin.Context, bodyUserID int64) (int64, bool) {
	rc, ok := middleware.CurrentUser(c)
	switch {
	case ok && bodyUserID != 0 && bodyUserID != int64(rc.UserID):
		RespondDomainError(c, domain.ForbiddenError{Msg: "userId does not match the authenticated user"})
		return 0, false
	case ok:
		return int64(rc.UserID), true
	case bodyUserID > 0 && h.TrustBodyUserID:
		return bodyUserID, true
	}
	respondError(c, http.StatusUnauthorized, "unauthorized", "authentication required", nil)
	return 0, false
}

// viewerID is the optional identity used to render a seat map.
func viewerID(c *gin.Context) int64 {
	if rc, ok := middleware.CurrentUser(c); ok {
		return int64(rc.UserID)
	}
	return 0
}
