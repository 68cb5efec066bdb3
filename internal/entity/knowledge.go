package entity

import "time"

type KnowledgeItem struct {
	ID        string    `json:"id"`
	Scope     string    `json:"scope"`
	Tags      []string  `json:"tags"`
	Languages []string  `json:"languages"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}
