package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lms-ai-backend/models"
	"lms-ai-backend/services"
	"lms-ai-backend/utils"
)

func SetupAIRoutes(protected *gin.RouterGroup, aiService *services.AIService) {
	ai := protected.Group("/ai")

	ai.POST("/generate-flashcards", func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		var req models.GenerateFlashcardsRequest
		if !bindJSON(c, &req) {
			return
		}
		documentID, ok := bodyID(c, req.DocumentID, "documentId")
		if !ok {
			return
		}

		set, err := aiService.GenerateFlashcardSet(c.Request.Context(), userID, documentID, req.Count)
		if err != nil {
			c.Error(err)
			return
		}
		utils.RespondWithData(c, http.StatusCreated, set, "Flashcards generated successfully")
	})

	ai.POST("/generate-quiz", func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		var req models.GenerateQuizRequest
		if !bindJSON(c, &req) {
			return
		}
		documentID, ok := bodyID(c, req.DocumentID, "documentId")
		if !ok {
			return
		}

		quiz, err := aiService.GenerateQuiz(c.Request.Context(), userID, documentID, req.NumQuestions, req.Title)
		if err != nil {
			c.Error(err)
			return
		}
		utils.RespondWithData(c, http.StatusCreated, quiz, "Quiz generated successfully")
	})

	ai.POST("/generate-summary", func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		var req models.DocumentRequest
		if !bindJSON(c, &req) {
			return
		}
		documentID, ok := bodyID(c, req.DocumentID, "documentId")
		if !ok {
			return
		}

		summary, err := aiService.GenerateSummary(c.Request.Context(), userID, documentID)
		if err != nil {
			c.Error(err)
			return
		}
		utils.RespondWithData(c, http.StatusOK, summary, "Summary generated successfully")
	})

	ai.POST("/chat", func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		var req models.ChatRequest
		if !bindJSON(c, &req) {
			return
		}
		documentID, ok := bodyID(c, req.DocumentID, "documentId")
		if !ok {
			return
		}

		resp, err := aiService.Chat(c.Request.Context(), userID, documentID, req.Question)
		if err != nil {
			c.Error(err)
			return
		}
		utils.RespondWithData(c, http.StatusOK, resp, "Response generated successfully")
	})

	ai.POST("/explain-concept", func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		var req models.ExplainConceptRequest
		if !bindJSON(c, &req) {
			return
		}
		documentID, ok := bodyID(c, req.DocumentID, "documentId")
		if !ok {
			return
		}

		result, err := aiService.ExplainConcept(c.Request.Context(), userID, documentID, req.Concept)
		if err != nil {
			c.Error(err)
			return
		}
		utils.RespondWithData(c, http.StatusOK, result, "Explanation generated successfully")
	})

	ai.GET("/chat-history/:documentId", func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		documentID, ok := pathID(c, "documentId")
		if !ok {
			return
		}
		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()

		messages, err := aiService.ChatHistory(ctx, userID, documentID)
		if err != nil {
			c.Error(err)
			return
		}
		utils.RespondWithData(c, http.StatusOK, messages, "")
	})
}
