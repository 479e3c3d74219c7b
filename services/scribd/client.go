package scribd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/meghashyamc/coursefetch/config"
	"github.com/meghashyamc/coursefetch/logger"
)

const (
	requestTimeout = 30 * time.Second
	userAgent      = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

type SearchParams struct {
	Term       string   `json:"term" validate:"required"`
	Languages  []string `json:"languages"`
	FileTypes  []string `json:"file_types"`
	FileLength string   `json:"file_length" validate:"omitempty,oneof=1-3 4-100 100+"`
	// MaxPages caps how many result pages are requested. 0 means no cap.
	MaxPages int `json:"max_pages" validate:"gte=0"`
}

type Client struct {
	http   *resty.Client
	logger logger.Logger
	now    func() time.Time
}

func NewClient(logger logger.Logger, cfg *config.Config) *Client {
	return NewClientWithBaseURL(logger, cfg.GetSearchBaseURL())
}

func NewClientWithBaseURL(logger logger.Logger, baseURL string) *Client {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(requestTimeout)
	client.SetHeader("user-agent", userAgent)
	client.SetHeader("accept", "application/json")

	return &Client{http: client, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

func ParamsFromConfig(cfg *config.Config) SearchParams {
	return SearchParams{
		Term:       cfg.GetSearchTerm(),
		Languages:  cfg.GetLangs(),
		FileTypes:  cfg.GetFileTypes(),
		FileLength: cfg.GetPreferredFileLength(),
		MaxPages:   cfg.GetMaxParsablePages(),
	}
}

// Paginate requests page 1 and keeps following current_page+1 until either the reported page count
// or params.MaxPages is exceeded. Any failed page aborts the whole pagination.
func (c *Client) Paginate(ctx context.Context, params SearchParams) ([]SearchResult, error) {
	var results []SearchResult

	page := 1
	for {
		start := time.Now()
		c.logger.Info("fetching search page", "term", params.Term, "page", page)

		response, err := c.searchPage(ctx, params, page)
		if err != nil {
			return nil, err
		}

		createdAt := c.now()
		for _, doc := range response.Results.Documents.Content.Documents {
			results = append(results, doc.toSearchResult(createdAt))
		}

		current := response.CurrentPage
		if current < page {
			current = page
		}
		c.logger.Info("fetched search page", "page", current, "page_count", response.PageCount,
			"documents", len(response.Results.Documents.Content.Documents), "elapsed", time.Since(start).String())

		next := current + 1
		if next > response.PageCount || (params.MaxPages > 0 && next > params.MaxPages) {
			break
		}
		page = next
	}

	return results, nil
}

func (c *Client) searchPage(ctx context.Context, params SearchParams, page int) (*searchResponse, error) {
	query := url.Values{}
	query.Set("query", params.Term)
	if len(params.FileLength) > 0 {
		query.Set("num_pages", params.FileLength)
	}
	for _, language := range params.Languages {
		query.Add("language", language)
	}
	for _, fileType := range params.FileTypes {
		query.Add("filetype", fileType)
	}
	query.Set("page", strconv.Itoa(page))

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParamsFromValues(query).
		Get("")
	if err != nil {
		c.logger.Error("search request failed", "page", page, "err", err.Error())
		return nil, fmt.Errorf("search page %d: %w", page, err)
	}
	if !resp.IsSuccess() {
		c.logger.Error("search request returned an error status", "page", page, "status", resp.StatusCode())
		return nil, fmt.Errorf("search page %d: unexpected status %d", page, resp.StatusCode())
	}

	var response searchResponse
	if err := json.Unmarshal(resp.Body(), &response); err != nil {
		c.logger.Error("could not parse search response", "page", page, "err", err.Error())
		return nil, fmt.Errorf("search page %d: malformed response: %w", page, err)
	}

	return &response, nil
}
