package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/meghashyamc/coursefetch/logger"
	"github.com/meghashyamc/coursefetch/services/index"
	"github.com/meghashyamc/coursefetch/validation"
)

const (
	indexStateInProgress = "in_progress"
	indexStateComplete   = "complete"
	indexStateFailed     = "failed"
)

type IndexBuilder interface {
	Build(requestID string) error
	GetStatus(requestID string) (int, error)
}

type IndexResponse struct {
	ID string `json:"request_id"`
}

type IndexStatusRequest struct {
	ID string `uri:"id" json:"id" validate:"required,uuid"`
}

type IndexStatusResponse struct {
	ID       string `json:"request_id"`
	Progress int    `json:"progress"`
	State    string `json:"state"`
}

func SetupIndex(router gin.IRouter, logger logger.Logger, builder IndexBuilder, validator *validation.Validator) {
	router.POST("/index", handleCreateIndex(builder, logger))
	router.GET("/index/:id", handleGetIndexStatus(builder, logger, validator))
}

func handleCreateIndex(builder IndexBuilder, logger logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.NewString()

		if err := builder.Build(requestID); err != nil {
			logger.Warn("could not start index build", "err", err.Error())
			c.Abort()
			statusCode := http.StatusInternalServerError
			if errors.Is(err, index.ErrIndexingInProgress) {
				statusCode = http.StatusConflict
			}
			writeError(c, statusCode, err.Error())
			return
		}

		writeResponse(c, IndexResponse{ID: requestID}, http.StatusAccepted, nil)
	}
}

func handleGetIndexStatus(builder IndexBuilder, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		request := IndexStatusRequest{}
		if err := c.ShouldBindUri(&request); err != nil {
			logger.Warn("could not extract request id", "err", err.Error())
			c.Abort()
			writeError(c, http.StatusUnprocessableEntity, "failed to extract request parameters")
			return
		}

		if err := validator.Validate(request); err != nil {
			logger.Warn("could not validate index status request", "err", err.Error())
			c.Abort()
			writeError(c, http.StatusNotAcceptable, err.Error())
			return
		}

		progress, err := builder.GetStatus(request.ID)
		if err != nil {
			logger.Warn("could not get index status", "request_id", request.ID, "err", err.Error())
			c.Abort()
			writeError(c, http.StatusNotFound, "index request not found")
			return
		}

		writeResponse(c, IndexStatusResponse{ID: request.ID, Progress: progress, State: indexState(progress)}, http.StatusOK, nil)
	}
}

func indexState(progress int) string {
	switch {
	case progress == index.ProgressStatusFailed:
		return indexStateFailed
	case progress >= index.ProgressStatusComplete:
		return indexStateComplete
	default:
		return indexStateInProgress
	}
}
