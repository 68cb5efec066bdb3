package bridgeRepository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"VoiceBridge/internal/api/bridge"
	"VoiceBridge/internal/entity"
	contextPkg "VoiceBridge/pkg/context"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type conversationDB struct {
	ID           sql.NullString `db:"id"`
	UserID       sql.NullString `db:"user_id"`
	AssistantID  sql.NullString `db:"assistant_id"`
	Title        sql.NullString `db:"title"`
	Summary      sql.NullString `db:"summary"`
	LastActivity time.Time      `db:"last_activity"`
	CreatedAt    time.Time      `db:"created_at"`
}

func (r *conversationRepository) CreateConversation(ctx context.Context, conv entity.Conversation) error {
	requestID := contextPkg.GetRequestID(ctx)

	argsKV := map[string]interface{}{
		"id":            conv.ID,
		"user_id":       conv.UserID,
		"assistant_id":  conv.AssistantID,
		"title":         conv.Title,
		"summary":       conv.Summary,
		"last_activity": conv.LastActivity,
		"created_at":    conv.CreatedAt,
	}

	query, args, err := sqlx.Named(queryCreateConversation, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("CreateConversation named query preparation err")
		return err
	}
	query = r.q.Rebind(query)

	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when creating conversation")
		return err
	}

	return nil
}

func (r *conversationRepository) GetConversationByID(ctx context.Context, id string) (entity.Conversation, error) {
	requestID := contextPkg.GetRequestID(ctx)
	var convDB conversationDB

	query, args, err := sqlx.Named(queryGetConversationByID, map[string]interface{}{"id": id})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetConversationByID named query preparation err")
		return entity.Conversation{}, err
	}
	query = r.q.Rebind(query)

	if err := r.q.QueryRowxContext(ctx, query, args...).StructScan(&convDB); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.Conversation{}, bridge.ErrConversationNotFound
		}
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetConversationByID execution err")
		return entity.Conversation{}, err
	}

	return entity.Conversation{
		ID:           convDB.ID.String,
		UserID:       convDB.UserID.String,
		AssistantID:  convDB.AssistantID.String,
		Title:        convDB.Title.String,
		Summary:      convDB.Summary.String,
		LastActivity: convDB.LastActivity,
		CreatedAt:    convDB.CreatedAt,
	}, nil
}

func (r *conversationRepository) TouchConversation(ctx context.Context, id string) error {
	requestID := contextPkg.GetRequestID(ctx)

	query, args, err := sqlx.Named(queryTouchConversation, map[string]interface{}{
		"id":            id,
		"last_activity": time.Now(),
	})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("TouchConversation named query preparation err")
		return err
	}
	query = r.q.Rebind(query)

	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("TouchConversation execution err")
		return err
	}

	return nil
}

func (r *conversationRepository) UpdateSummary(ctx context.Context, id, summary string) error {
	requestID := contextPkg.GetRequestID(ctx)

	query, args, err := sqlx.Named(queryUpdateConversationSummary, map[string]interface{}{
		"id":            id,
		"summary":       summary,
		"last_activity": time.Now(),
	})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("UpdateSummary named query preparation err")
		return err
	}
	query = r.q.Rebind(query)

	result, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("UpdateSummary execution err")
		return err
	}

	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return bridge.ErrConversationNotFound
	}

	return nil
}

type messageDB struct {
	ID             sql.NullString `db:"id"`
	ConversationID sql.NullString `db:"conversation_id"`
	Sequence       int            `db:"sequence"`
	Role           sql.NullString `db:"role"`
	Content        sql.NullString `db:"content"`
	ToolCallID     sql.NullString `db:"tool_call_id"`
	CreatedAt      time.Time      `db:"created_at"`
}

func (r *messageRepository) AppendMessage(ctx context.Context, msg entity.ConversationMessage) error {
	requestID := contextPkg.GetRequestID(ctx)

	argsKV := map[string]interface{}{
		"id":              msg.ID,
		"conversation_id": msg.ConversationID,
		"role":            msg.Role,
		"content":         msg.Content,
		"tool_call_id":    msg.ToolCallID,
		"created_at":      msg.CreatedAt,
	}

	query, args, err := sqlx.Named(queryAppendMessage, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("AppendMessage named query preparation err")
		return err
	}
	query = r.q.Rebind(query)

	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when appending message")
		return err
	}

	return nil
}

func (r *messageRepository) GetMessagesByConversationID(ctx context.Context, conversationID string, limit int) ([]entity.ConversationMessage, error) {
	requestID := contextPkg.GetRequestID(ctx)

	if limit <= 0 {
		limit = 200
	}

	query, args, err := sqlx.Named(queryGetMessagesByConversationID, map[string]interface{}{
		"conversation_id": conversationID,
		"limit":           limit,
	})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetMessagesByConversationID named query preparation err")
		return nil, err
	}
	query = r.q.Rebind(query)

	var rows []messageDB
	if err := r.q.SelectContext(ctx, &rows, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetMessagesByConversationID execution err")
		return nil, err
	}

	messages := make([]entity.ConversationMessage, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, entity.ConversationMessage{
			ID:             row.ID.String,
			ConversationID: row.ConversationID.String,
			Sequence:       row.Sequence,
			Role:           row.Role.String,
			Content:        row.Content.String,
			ToolCallID:     row.ToolCallID.String,
			CreatedAt:      row.CreatedAt,
		})
	}

	return messages, nil
}
