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

type toolCallDB struct {
	ID             sql.NullString `db:"id"`
	ConversationID sql.NullString `db:"conversation_id"`
	Name           sql.NullString `db:"name"`
	Status         sql.NullString `db:"status"`
	InputJSON      sql.NullString `db:"input_json"`
	ResultJSON     sql.NullString `db:"result_json"`
	Error          sql.NullString `db:"error"`
	CreatedAt      time.Time      `db:"created_at"`
	CompletedAt    sql.NullTime   `db:"completed_at"`
}

func (r *toolCallRepository) CreateToolCall(ctx context.Context, record entity.ToolCallRecord) error {
	requestID := contextPkg.GetRequestID(ctx)

	argsKV := map[string]interface{}{
		"id":              record.ID,
		"conversation_id": record.ConversationID,
		"name":            record.Name,
		"status":          string(record.Status),
		"input_json":      record.InputJSON,
		"created_at":      record.CreatedAt,
	}

	query, args, err := sqlx.Named(queryCreateToolCall, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("CreateToolCall named query preparation err")
		return err
	}
	query = r.q.Rebind(query)

	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"tool_call":  record.Name,
			"error":      err.Error(),
		}).Error("Database error when creating tool call")
		return err
	}

	return nil
}

// CompleteToolCall moves a record into a terminal status. The status guard
// in the query makes a second completion for the same id a no-op, reported
// as ErrToolCallCompleted.
func (r *toolCallRepository) CompleteToolCall(ctx context.Context, id string, status entity.ToolCallStatus, resultJSON, errMsg string) error {
	requestID := contextPkg.GetRequestID(ctx)

	query, args, err := sqlx.Named(queryCompleteToolCall, map[string]interface{}{
		"id":           id,
		"status":       string(status),
		"result_json":  resultJSON,
		"error":        errMsg,
		"completed_at": time.Now(),
	})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("CompleteToolCall named query preparation err")
		return err
	}
	query = r.q.Rebind(query)

	result, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("CompleteToolCall execution err")
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		r.log.WithFields(logrus.Fields{
			"request_id":   requestID,
			"tool_call_id": id,
		}).Warn("CompleteToolCall skipped, record missing or already terminal")
		return bridge.ErrToolCallCompleted
	}

	return nil
}

func (r *toolCallRepository) GetToolCallByID(ctx context.Context, id string) (entity.ToolCallRecord, error) {
	requestID := contextPkg.GetRequestID(ctx)
	var row toolCallDB

	query, args, err := sqlx.Named(queryGetToolCallByID, map[string]interface{}{"id": id})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetToolCallByID named query preparation err")
		return entity.ToolCallRecord{}, err
	}
	query = r.q.Rebind(query)

	if err := r.q.QueryRowxContext(ctx, query, args...).StructScan(&row); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.ToolCallRecord{}, bridge.ErrToolCallNotFound
		}
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetToolCallByID execution err")
		return entity.ToolCallRecord{}, err
	}

	record := entity.ToolCallRecord{
		ID:             row.ID.String,
		ConversationID: row.ConversationID.String,
		Name:           row.Name.String,
		Status:         entity.ToolCallStatus(row.Status.String),
		InputJSON:      row.InputJSON.String,
		ResultJSON:     row.ResultJSON.String,
		Error:          row.Error.String,
		CreatedAt:      row.CreatedAt,
	}
	if row.CompletedAt.Valid {
		t := row.CompletedAt.Time
		record.CompletedAt = &t
	}

	return record, nil
}
