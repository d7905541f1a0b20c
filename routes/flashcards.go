package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lms-ai-backend/services"
	"lms-ai-backend/utils"
)

// SetupFlashcardRoutes registers flashcard routes. Gin requires one wildcard
// name per segment, so :id is a document, card or set ID depending on the route.
func SetupFlashcardRoutes(protected *gin.RouterGroup, flashcards *services.FlashcardService) {
	group := protected.Group("/flashcards")

	group.GET("", func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()

		sets, err := flashcards.List(ctx, userID)
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "count": len(sets), "data": sets})
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

		sets, err := flashcards.ByDocument(ctx, userID, documentID)
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "count": len(sets), "data": sets})
	})

	group.POST("/:id/review", func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		cardID, ok := pathID(c, "id")
		if !ok {
			return
		}
		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()

		card, err := flashcards.Review(ctx, userID, cardID)
		if err != nil {
			c.Error(err)
			return
		}
		utils.RespondWithData(c, http.StatusOK, card, "Flashcard reviewed")
	})

	group.PUT("/:id/star", func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		cardID, ok := pathID(c, "id")
		if !ok {
			return
		}
		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()

		card, err := flashcards.ToggleStar(ctx, userID, cardID)
		if err != nil {
			c.Error(err)
			return
		}
		message := "Flashcard unstarred"
		if card.IsStarred {
			message = "Flashcard starred"
		}
		utils.RespondWithData(c, http.StatusOK, card, message)
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

		name, data, err := flashcards.Export(ctx, userID, id)
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

		if err := flashcards.Delete(ctx, userID, id); err != nil {
			c.Error(err)
			return
		}
		utils.RespondWithData(c, http.StatusOK, nil, "Flashcard set deleted successfully")
	})
}
