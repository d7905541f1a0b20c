package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lms-ai-backend/models"
	"lms-ai-backend/services"
	"lms-ai-backend/utils"
)

// SetupQuizRoutes registers quiz routes. GET /:id lists the quizzes of a
// document; every other :id is a quiz.
func SetupQuizRoutes(protected *gin.RouterGroup, quizzes *services.QuizService) {
	group := protected.Group("/quizzes")

	group.GET("/quiz/:id", func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()

		quiz, err := quizzes.Get(ctx, userID, id)
		if err != nil {
			c.Error(err)
			return
		}
		utils.RespondWithData(c, http.StatusOK, quiz, "")
	})

	group.GET("/:id", func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		documentID, ok := pathID(c, "id")
		if !ok {
			return
		}
		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()

		list, err := quizzes.ListByDocument(ctx, userID, documentID)
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "count": len(list), "data": list})
	})

	group.POST("/:id/submit", func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		var req models.SubmitQuizRequest
		if !bindJSON(c, &req) {
			return
		}
		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()

		result, err := quizzes.Submit(ctx, userID, id, req.Answers)
		if err != nil {
			c.Error(err)
			return
		}
		utils.RespondWithData(c, http.StatusOK, result, "Quiz submitted successfully")
	})

	group.GET("/:id/results", func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()

		results, err := quizzes.Results(ctx, userID, id)
		if err != nil {
			c.Error(err)
			return
		}
		utils.RespondWithData(c, http.StatusOK, results, "")
	})

	group.GET("/:id/export", func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()

		name, data, err := quizzes.ExportResults(ctx, userID, id)
		if err != nil {
			c.Error(err)
			return
		}
		services.StreamXLSX(c, name, data)
	})

	group.DELETE("/:id", func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()

		if err := quizzes.Delete(ctx, userID, id); err != nil {
			c.Error(err)
			return
		}
		utils.RespondWithData(c, http.StatusOK, nil, "Quiz deleted successfully")
	})
}
