package knowledge

type SearchRequest struct {
	Query string `json:"query" validate:"required"`
	Scope string `json:"scope"`
	TopK  int    `json:"top_k"`
}

type SearchResult struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
	Text  string  `json:"text"`
}

type SearchResponse struct {
	Results      []SearchResult `json:"results"`
	ContextBlock string         `json:"context_block"`
}

type ReloadResponse struct {
	ItemCount int `json:"item_count"`
}
