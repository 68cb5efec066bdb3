package knowledgeRepository

const (
	queryGetAllItems = `
		SELECT
			id, scope, tags, languages, text, embedding, updated_at
		FROM knowledge_items
		ORDER BY id ASC
	`
)
