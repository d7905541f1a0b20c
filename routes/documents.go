package routes

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"lms-ai-backend/models"
	"lms-ai-backend/services"
	"lms-ai-backend/utils"
)

// SetupDocumentRoutes registers document routes. Uploads larger than
// maxFileSize are rejected.
func SetupDocumentRoutes(protected *gin.RouterGroup, documents *services.DocumentService, maxFileSize int64) {
	docs := protected.Group("/documents")

	docs.POST("/upload", func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		file, header, err := c.Request.FormFile("file")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) || errors.Is(err, multipart.ErrMessageTooLarge) {
				c.Error(err)
				return
			}
			c.Error(utils.NewBadRequest("Please upload a PDF file"))
			return
		}
		defer file.Close()
		if header.Size > maxFileSize {
			c.Error(&http.MaxBytesError{Limit: maxFileSize})
			return
		}

		title := strings.TrimSpace(c.PostForm("title"))
		if title == "" {
			c.Error(utils.NewBadRequest("Please provide a document title"))
			return
		}

		ctx, cancel := utils.WithLongTimeout(c.Request.Context())
		defer cancel()

		doc, err := documents.Upload(ctx, userID, title, header.Filename, file)
		if err != nil {
			c.Error(err)
			return
		}
		utils.RespondWithData(c, http.StatusCreated, doc, "Document uploaded successfully. Processing in progress...")
	})

	docs.POST("/import-url", func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		var req models.ImportURLRequest
		if !bindJSON(c, &req) {
			return
		}
		ctx, cancel := utils.WithLongTimeout(c.Request.Context())
		defer cancel()

		doc, err := documents.ImportURL(ctx, userID, req.URL, req.Title)
		if err != nil {
			c.Error(err)
			return
		}
		utils.RespondWithData(c, http.StatusCreated, doc, "Page imported successfully. Processing in progress...")
	})

	docs.GET("", func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()

		list, err := documents.ListDocuments(ctx, userID)
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "count": len(list), "data": list})
	})

	docs.GET("/search", func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		hits, err := documents.Search(userID, c.Query("q"), queryInt(c, "limit", 20, 1, 50))
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "count": len(hits), "data": hits})
	})

	docs.GET("/:id", func(c *gin.Context) {
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

		doc, err := documents.GetDocument(ctx, userID, id)
		if err != nil {
			c.Error(err)
			return
		}
		utils.RespondWithData(c, http.StatusOK, doc, "")
	})

	docs.PUT("/:id", func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		var req models.UpdateDocumentRequest
		if !bindJSON(c, &req) {
			return
		}
		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()

		doc, err := documents.UpdateTitle(ctx, userID, id, req.Title)
		if err != nil {
			c.Error(err)
			return
		}
		utils.RespondWithData(c, http.StatusOK, doc, "Document updated successfully")
	})

	docs.DELETE("/:id", func(c *gin.Context) {
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

		if err := documents.DeleteDocument(ctx, userID, id); err != nil {
			c.Error(err)
			return
		}
		utils.RespondWithData(c, http.StatusOK, nil, "Document deleted successfully")
	})

	docs.POST("/:id/reprocess", func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		var req models.ReprocessRequest
		if !bindOptionalJSON(c, &req) {
			return
		}
		ctx, cancel := utils.WithProcessingTimeout(c.Request.Context())
		defer cancel()

		doc, err := documents.Reprocess(ctx, userID, id, req.ChunkSize, req.ChunkOverlap)
		if err != nil {
			c.Error(err)
			return
		}
		utils.RespondWithData(c, http.StatusOK, doc, "Document reprocessed successfully")
	})
}
