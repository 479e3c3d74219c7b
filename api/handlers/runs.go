package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/coursefetch/db/kvdb"
	"github.com/meghashyamc/coursefetch/logger"
	"github.com/meghashyamc/coursefetch/validation"
)

type RunReader interface {
	GetRun(runID string) (*kvdb.RunStatus, error)
}

type GetRunRequest struct {
	ID string `uri:"id" json:"id" validate:"required,uuid"`
}

func SetupRuns(router gin.IRouter, logger logger.Logger, runs RunReader, validator *validation.Validator) {
	router.GET("/runs/:id", handleGetRun(runs, logger, validator))
}

func handleGetRun(runs RunReader, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		request := GetRunRequest{}
		if err := c.ShouldBindUri(&request); err != nil {
			logger.Warn("could not extract run id", "err", err.Error())
			c.Abort()
			writeError(c, http.StatusUnprocessableEntity, "failed to extract request parameters")
			return
		}

		if err := validator.Validate(request); err != nil {
			logger.Warn("could not validate get run request", "err", err.Error())
			c.Abort()
			writeError(c, http.StatusNotAcceptable, err.Error())
			return
		}

		run, err := runs.GetRun(request.ID)
		if err != nil {
			c.Abort()
			if errors.Is(err, kvdb.ErrNotFound) {
				writeError(c, http.StatusNotFound, "run not found")
				return
			}
			logger.Error("could not get run", "run_id", request.ID, "err", err.Error())
			writeError(c, http.StatusInternalServerError, "could not get run")
			return
		}

		writeResponse(c, run, http.StatusOK, nil)
	}
}
