package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/coursefetch/db/searchdb"
	"github.com/meghashyamc/coursefetch/logger"
	"github.com/meghashyamc/coursefetch/services/search"
	"github.com/meghashyamc/coursefetch/validation"
)

const defaultResultsPerPage = 20

const HeaderPaginationTotalCount = "X-Pagination-Total-Count"

type SearchRequest struct {
	Query   string `form:"query" json:"query" validate:"required,valid_query,min=1,max=1000"`
	PerPage int    `form:"per_page" json:"per_page" validate:"min=0,max=100"`
	Page    int    `form:"page" json:"page" validate:"min=0"`
}

func (r *SearchRequest) setDefaults() {
	if r.PerPage == 0 {
		r.PerPage = defaultResultsPerPage
	}

	if r.Page == 0 {
		r.Page = 1
	}
}

type SearchResponse struct {
	Results     []searchdb.Result `json:"results"`
	PageDetails Pagination        `json:"page_details"`
}

func SetupSearch(router gin.IRouter, logger logger.Logger, searcher search.Searcher, validator *validation.Validator) {
	service := search.New(logger, searcher)
	router.GET("/search", handleSearch(service, logger, validator))
}

func handleSearch(service *search.Service, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		request := SearchRequest{}
		if err := c.ShouldBindQuery(&request); err != nil {
			logger.Warn("could not extract expected params from search request", "err", err.Error())
			c.Abort()
			writeError(c, http.StatusUnprocessableEntity, "failed to extract request parameters")
			return
		}

		if err := validator.Validate(request); err != nil {
			logger.Warn("could not validate search request", "err", err.Error())
			c.Abort()
			writeError(c, http.StatusNotAcceptable, err.Error())
			return
		}
		request.setDefaults()

		limit := request.PerPage
		offset := (request.Page - 1) * request.PerPage
		results, err := service.Search(request.Query, limit, offset)
		if err != nil {
			logger.Error("search failed", "err", err.Error())
			c.Abort()
			writeError(c, http.StatusInternalServerError, err.Error())
			return
		}

		c.Header(HeaderPaginationTotalCount, strconv.FormatUint(results.Total, 10))
		searchResponse := SearchResponse{
			Results: results.Results,
			PageDetails: calculatePagination(
				int(results.Total),
				limit,
				offset),
		}

		writeResponse(c, searchResponse, http.StatusOK, nil)
	}
}
