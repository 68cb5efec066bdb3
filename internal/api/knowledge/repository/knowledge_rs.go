package knowledgeRepository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"VoiceBridge/internal/entity"
	contextPkg "VoiceBridge/pkg/context"

	"github.com/sirupsen/logrus"
)

type knowledgeItemDB struct {
	ID        sql.NullString `db:"id"`
	Scope     sql.NullString `db:"scope"`
	Tags      sql.NullString `db:"tags"`
	Languages sql.NullString `db:"languages"`
	Text      sql.NullString `db:"text"`
	Embedding sql.NullString `db:"embedding"`
	UpdatedAt time.Time      `db:"updated_at"`
}

func (r *itemRepository) GetAllItems(ctx context.Context) ([]entity.KnowledgeItem, error) {
	requestID := contextPkg.GetRequestID(ctx)

	var rows []knowledgeItemDB
	query := r.q.Rebind(queryGetAllItems)
	if err := r.q.SelectContext(ctx, &rows, query); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetAllItems execution err")
		return nil, err
	}

	items := make([]entity.KnowledgeItem, 0, len(rows))
	for _, row := range rows {
		item := entity.KnowledgeItem{
			ID:        row.ID.String,
			Scope:     row.Scope.String,
			Text:      row.Text.String,
			UpdatedAt: row.UpdatedAt,
		}

		// tags, languages and embedding are JSON array columns
		if row.Tags.Valid && row.Tags.String != "" {
			_ = json.Unmarshal([]byte(row.Tags.String), &item.Tags)
		}
		if row.Languages.Valid && row.Languages.String != "" {
			_ = json.Unmarshal([]byte(row.Languages.String), &item.Languages)
		}
		if row.Embedding.Valid && row.Embedding.String != "" {
			if err := json.Unmarshal([]byte(row.Embedding.String), &item.Embedding); err != nil {
				r.log.WithFields(logrus.Fields{
					"request_id": requestID,
					"item_id":    item.ID,
					"error":      err.Error(),
				}).Warn("Skipping knowledge item with malformed embedding column")
				continue
			}
		}

		items = append(items, item)
	}

	return items, nil
}
