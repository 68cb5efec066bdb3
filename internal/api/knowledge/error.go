package knowledge

import "VoiceBridge/pkg/response"

var (
	ErrEmptyQuery           = response.NewError(400, "query must not be empty")
	ErrEmbeddingUnavailable = response.NewError(502, "embedding service unavailable")
)
