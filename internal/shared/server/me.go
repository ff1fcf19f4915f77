package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"templatefill-backend/internal/shared/server/middleware"
	"templatefill-backend/internal/shared/server/respond"
)

// registerMeRoutes attaches the /me endpoint.
func registerMeRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", meHandler)
}

func meHandler(c *gin.Context) {
	p := middleware.PrincipalFromContext(c)
	if !p.Valid() {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
		return
	}

	response := gin.H{
		"userId":  p.UserID,
		"isGuest": p.IsGuest,
	}
	if email := middleware.UserEmailFromContext(c); email != "" {
		response["email"] = email
	}

	respond.JSON(c, http.StatusOK, response)
}
