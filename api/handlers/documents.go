package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/coursefetch/db/docstore"
	"github.com/meghashyamc/coursefetch/logger"
	"github.com/meghashyamc/coursefetch/validation"
	"go.mongodb.org/mongo-driver/bson"
)

const (
	defaultDocumentsLimit = 20
	storeRequestTimeout   = 10 * time.Second
)

type DocumentReader interface {
	FindOne(ctx context.Context, filter bson.M) (bson.M, error)
	FindMany(ctx context.Context, filter bson.M, limit int64) ([]bson.M, error)
}

type ListDocumentsRequest struct {
	Limit int    `form:"limit" json:"limit" validate:"min=0,max=100"`
	Tag   string `form:"tag" json:"tag" validate:"max=200"`
}

type GetDocumentRequest struct {
	ID string `uri:"id" json:"id" validate:"valid_document_id"`
}

// DocumentSummary is a stored document without its extracted content.
type DocumentSummary struct {
	ID         string            `json:"id"`
	FileName   string            `json:"file_name"`
	FileType   string            `json:"file_type"`
	Metadata   docstore.Metadata `json:"metadata"`
	Tags       []string          `json:"tags,omitempty"`
	HasText    bool              `json:"has_text"`
	UploadDate time.Time         `json:"upload_date"`
}

func SetupDocuments(router gin.IRouter, logger logger.Logger, store DocumentReader, validator *validation.Validator) {
	router.GET("/documents", handleListDocuments(store, logger, validator))
	router.GET("/documents/:id", handleGetDocument(store, logger, validator))
}

func handleListDocuments(store DocumentReader, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		request := ListDocumentsRequest{}
		if err := c.ShouldBindQuery(&request); err != nil {
			logger.Warn("could not extract expected params from list documents request", "err", err.Error())
			c.Abort()
			writeError(c, http.StatusUnprocessableEntity, "failed to extract request parameters")
			return
		}

		if err := validator.Validate(request); err != nil {
			logger.Warn("could not validate list documents request", "err", err.Error())
			c.Abort()
			writeError(c, http.StatusNotAcceptable, err.Error())
			return
		}
		if request.Limit == 0 {
			request.Limit = defaultDocumentsLimit
		}

		filter := bson.M{}
		if len(request.Tag) > 0 {
			filter[docstore.FieldTags] = request.Tag
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), storeRequestTimeout)
		defer cancel()

		raw, err := store.FindMany(ctx, filter, int64(request.Limit))
		if err != nil {
			logger.Error("could not list documents", "err", err.Error())
			c.Abort()
			writeError(c, http.StatusInternalServerError, "could not list documents")
			return
		}

		summaries := make([]DocumentSummary, 0, len(raw))
		for _, item := range raw {
			doc, err := docstore.DecodeCourseDocument(item)
			if err != nil {
				logger.Warn("skipping document that could not be decoded", "id", item[docstore.FieldID], "err", err.Error())
				continue
			}
			summaries = append(summaries, summarize(doc))
		}

		writeResponse(c, summaries, http.StatusOK, nil)
	}
}

func handleGetDocument(store DocumentReader, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		request := GetDocumentRequest{}
		if err := c.ShouldBindUri(&request); err != nil {
			logger.Warn("could not extract document id", "err", err.Error())
			c.Abort()
			writeError(c, http.StatusUnprocessableEntity, "failed to extract request parameters")
			return
		}

		if err := validator.Validate(request); err != nil {
			logger.Warn("could not validate get document request", "err", err.Error())
			c.Abort()
			writeError(c, http.StatusNotAcceptable, err.Error())
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), storeRequestTimeout)
		defer cancel()

		raw, err := store.FindOne(ctx, bson.M{docstore.FieldID: request.ID})
		if err != nil {
			c.Abort()
			if errors.Is(err, docstore.ErrNotFound) {
				writeError(c, http.StatusNotFound, "document not found")
				return
			}
			logger.Error("could not get document", "id", request.ID, "err", err.Error())
			writeError(c, http.StatusInternalServerError, "could not get document")
			return
		}

		doc, err := docstore.DecodeCourseDocument(raw)
		if err != nil {
			logger.Error("could not decode document", "id", request.ID, "err", err.Error())
			c.Abort()
			writeError(c, http.StatusInternalServerError, "could not get document")
			return
		}

		writeResponse(c, doc, http.StatusOK, nil)
	}
}

func summarize(doc *docstore.CourseDocument) DocumentSummary {
	return DocumentSummary{
		ID:         doc.ID,
		FileName:   doc.FileName,
		FileType:   doc.FileType,
		Metadata:   doc.Metadata,
		Tags:       doc.Tags,
		HasText:    doc.Content != nil && len(doc.Content.Text) > 0,
		UploadDate: doc.UploadDate,
	}
}
