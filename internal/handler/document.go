package handler

import (
	"errors"
	"log"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"notesync/internal/batch"
	"notesync/internal/document"
	"notesync/pkg/model"
)

type DocumentHandler struct {
	fetcher *document.Fetcher
}

func NewDocumentHandler(fetcher *document.Fetcher) *DocumentHandler {
	return &DocumentHandler{fetcher: fetcher}
}

func (h *DocumentHandler) GetDocumentById(c *gin.Context) {
	id, ok := c.Params.Get("id")
	if !ok {
		log.Println("Id not specified in request params")
		c.JSON(500, BuildHttpResponse(false, 500, "ID Not Specified", []interface{}{}))
		return
	}

	doc, err := h.fetcher.Get(c.Request.Context(), id)
	if err != nil {
		code := HttpStatusFromError(err)
		c.JSON(code, BuildHttpResponse(false, code, ExtractErrorMessage(err), []interface{}{}))
		return
	}

	c.JSON(200, BuildHttpResponse(true, 200, "Document found", []interface{}{doc}))
}

func (h *DocumentHandler) BatchGetDocuments(c *gin.Context) {
	var body struct {
		Ids []string `json:"ids" binding:"required"`
	}
	if err := c.BindJSON(&body); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request body"})
		return
	}

	docs, err := h.fetcher.GetMany(c.Request.Context(), body.Ids)
	if err != nil {
		code := HttpStatusFromError(err)
		c.JSON(code, BuildHttpResponse(false, code, ExtractErrorMessage(err), []interface{}{}))
		return
	}

	c.JSON(200, BuildHttpResponse(true, 200, "Documents retrieved successfully", []interface{}{docs}))
}

func (h *DocumentHandler) CancelPendingFetch(c *gin.Context) {
	id, ok := c.Params.Get("id")
	if !ok {
		log.Println("Id not specified in request params")
		c.JSON(500, BuildHttpResponse(false, 500, "ID Not Specified", []interface{}{}))
		return
	}

	h.fetcher.Cancel(id)
	c.JSON(200, BuildHttpResponse(true, 200, "Pending fetch canceled", []interface{}{}))
}

// HttpStatusFromError maps fetch outcomes onto HTTP status codes.
func HttpStatusFromError(err error) int {
	switch {
	case errors.Is(err, batch.ErrNotFound):
		return 404
	case errors.Is(err, batch.ErrCanceled):
		return 409
	}

	switch status.Code(err) {
	case codes.NotFound:
		return 404
	case codes.Canceled, codes.DeadlineExceeded:
		return 504
	case codes.Unavailable:
		return 502
	default:
		return 500
	}
}

func BuildHttpResponse(success bool, code int, message string, data []interface{}) model.HttpResponse {
	return model.HttpResponse{
		Success: success,
		Code:    code,
		Message: message,
		Data:    data,
	}
}

func ExtractErrorMessage(err error) string {
	st, ok := status.FromError(err)
	if !ok {
		return err.Error()
	}
	return st.Message()
}
