package routes

import (
	"github.com/gin-gonic/gin"

	"notesync/internal/document"
	"notesync/internal/handler"
)

func SetupRoutes(fetcher *document.Fetcher) *gin.Engine {
	documentHandler := handler.NewDocumentHandler(fetcher)

	router := gin.Default()

	router.GET("/api/documents/:id", documentHandler.GetDocumentById)
	router.POST("/api/documents/batch-get", documentHandler.BatchGetDocuments)
	router.DELETE("/api/documents/:id/pending", documentHandler.CancelPendingFetch)

	return router
}
