package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lms-ai-backend/services"
	"lms-ai-backend/utils"
)

func SetupProgressRoutes(protected *gin.RouterGroup, progress *services.ProgressService) {
	protected.GET("/progress/dashboard", func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()

		dashboard, err := progress.Dashboard(ctx, userID)
		if err != nil {
			c.Error(err)
			return
		}
		utils.RespondWithData(c, http.StatusOK, dashboard, "")
	})
}
