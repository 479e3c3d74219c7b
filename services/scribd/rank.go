package scribd

import "sort"

type RankOptions struct {
	MinPages   int `json:"min_pages" validate:"gte=0"`
	MaxPages   int `json:"max_pages" validate:"gte=0,valid_page_bounds"`
	MaxResults int `json:"max_results" validate:"gte=0"`
}

// Rank orders results by page count (largest first, ties keep their order), keeps those within
// [MinPages, MaxPages] and caps the list at MaxResults. A MaxResults of 0 means no cap.
func Rank(results []SearchResult, opts RankOptions) []SearchResult {
	sorted := make([]SearchResult, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Pages > sorted[j].Pages
	})

	ranked := make([]SearchResult, 0, len(sorted))
	for _, result := range sorted {
		if result.Pages < opts.MinPages || result.Pages > opts.MaxPages {
			continue
		}
		ranked = append(ranked, result)
	}

	if opts.MaxResults > 0 && len(ranked) > opts.MaxResults {
		ranked = ranked[:opts.MaxResults]
	}
	return ranked
}
