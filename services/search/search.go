package search

import (
	"github.com/meghashyamc/coursefetch/db/searchdb"
	"github.com/meghashyamc/coursefetch/logger"
)

type Searcher interface {
	Search(queryString string, limit int, offset int) (*searchdb.Response, error)
}

type Service struct {
	logger logger.Logger
	db     Searcher
}

func New(logger logger.Logger, db Searcher) *Service {
	return &Service{
		logger: logger,
		db:     db,
	}
}

// Search runs queryString against the extracted course text.
func (s *Service) Search(queryString string, limit int, offset int) (*searchdb.Response, error) {
	response, err := s.db.Search(queryString, limit, offset)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("search completed", "query", queryString, "total", response.Total, "took", response.SearchTime)
	return response, nil
}
