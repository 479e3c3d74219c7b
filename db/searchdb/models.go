package searchdb

type Document struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Name    string   `json:"name"`
	Content string   `json:"content"`
	Source  string   `json:"source"`
	Tags    []string `json:"tags"`
	Pages   int      `json:"pages"`
}

type Result struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Name    string   `json:"file_name"`
	Source  string   `json:"source"`
	Tags    []string `json:"tags"`
	Pages   int      `json:"pages"`
	Score   float64  `json:"score"`
	Snippet string   `json:"snippet,omitempty"`
}

type Response struct {
	Results    []Result `json:"results"`
	Total      uint64   `json:"total"`
	MaxScore   float64  `json:"max_score"`
	SearchTime string   `json:"search_time"`
}
