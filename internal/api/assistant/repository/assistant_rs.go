package assistantRepository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"VoiceBridge/internal/api/assistant"
	"VoiceBridge/internal/entity"
	contextPkg "VoiceBridge/pkg/context"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type assistantDB struct {
	ID           sql.NullString  `db:"id"`
	Name         sql.NullString  `db:"name"`
	Voice        sql.NullString  `db:"voice"`
	PlaybackRate sql.NullFloat64 `db:"playback_rate"`
	IsActive     bool            `db:"is_active"`
	CreatedAt    time.Time       `db:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at"`
}

func (row assistantDB) toEntity() entity.Assistant {
	return entity.Assistant{
		ID:           row.ID.String,
		Name:         row.Name.String,
		Voice:        row.Voice.String,
		PlaybackRate: row.PlaybackRate.Float64,
		IsActive:     row.IsActive,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}

func (r *assistantRepository) GetAssistantByID(ctx context.Context, id string) (entity.Assistant, error) {
	requestID := contextPkg.GetRequestID(ctx)
	var row assistantDB

	query, args, err := sqlx.Named(queryGetAssistantByID, map[string]interface{}{"id": id})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetAssistantByID named query preparation err")
		return entity.Assistant{}, err
	}
	query = r.q.Rebind(query)

	if err := r.q.QueryRowxContext(ctx, query, args...).StructScan(&row); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.Assistant{}, assistant.ErrAssistantNotFound
		}
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetAssistantByID execution err")
		return entity.Assistant{}, err
	}

	return row.toEntity(), nil
}

func (r *assistantRepository) GetDefaultAssistant(ctx context.Context) (entity.Assistant, error) {
	requestID := contextPkg.GetRequestID(ctx)
	var row assistantDB

	query := r.q.Rebind(queryGetDefaultAssistant)
	if err := r.q.QueryRowxContext(ctx, query).StructScan(&row); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.Assistant{}, assistant.ErrNoActiveAssistant
		}
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetDefaultAssistant execution err")
		return entity.Assistant{}, err
	}

	return row.toEntity(), nil
}

func (r *assistantRepository) GetAllAssistants(ctx context.Context) ([]entity.Assistant, error) {
	requestID := contextPkg.GetRequestID(ctx)

	var rows []assistantDB
	query := r.q.Rebind(queryGetAllAssistants)
	if err := r.q.SelectContext(ctx, &rows, query); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetAllAssistants execution err")
		return nil, err
	}

	assistants := make([]entity.Assistant, 0, len(rows))
	for _, row := range rows {
		assistants = append(assistants, row.toEntity())
	}

	return assistants, nil
}

type instructionBlockDB struct {
	ID          sql.NullString `db:"id"`
	AssistantID sql.NullString `db:"assistant_id"`
	Key         sql.NullString `db:"key"`
	Lines       sql.NullString `db:"lines"`
	SortOrder   int            `db:"sort_order"`
	IsActive    bool           `db:"is_active"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func (r *instructionRepository) GetBlocksForAssistant(ctx context.Context, assistantID string) ([]entity.InstructionBlock, error) {
	requestID := contextPkg.GetRequestID(ctx)

	query, args, err := sqlx.Named(queryGetBlocksForAssistant, map[string]interface{}{
		"assistant_id": assistantID,
	})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetBlocksForAssistant named query preparation err")
		return nil, err
	}
	query = r.q.Rebind(query)

	var rows []instructionBlockDB
	if err := r.q.SelectContext(ctx, &rows, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetBlocksForAssistant execution err")
		return nil, err
	}

	blocks := make([]entity.InstructionBlock, 0, len(rows))
	for _, row := range rows {
		block := entity.InstructionBlock{
			ID:          row.ID.String,
			AssistantID: row.AssistantID.String,
			Key:         row.Key.String,
			SortOrder:   row.SortOrder,
			IsActive:    row.IsActive,
			UpdatedAt:   row.UpdatedAt,
		}

		// lines is a JSON array column
		if row.Lines.Valid && row.Lines.String != "" {
			if err := json.Unmarshal([]byte(row.Lines.String), &block.Lines); err != nil {
				r.log.WithFields(logrus.Fields{
					"request_id": requestID,
					"block_key":  block.Key,
					"error":      err.Error(),
				}).Warn("Skipping instruction block with malformed lines column")
				continue
			}
		}

		blocks = append(blocks, block)
	}

	return blocks, nil
}

type toolDefinitionDB struct {
	Name          sql.NullString `db:"name"`
	Kind          sql.NullString `db:"kind"`
	Description   sql.NullString `db:"description"`
	Parameters    sql.NullString `db:"parameters"`
	RouteMethod   sql.NullString `db:"route_method"`
	RoutePath     sql.NullString `db:"route_path"`
	UICommand     sql.NullString `db:"ui_command"`
	SessionParam  sql.NullString `db:"session_param"`
	SimulatedJSON sql.NullString `db:"simulated_json"`
	IsActive      bool           `db:"is_active"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

func (r *toolRepository) GetToolsForAssistant(ctx context.Context, assistantID string) ([]entity.ToolDefinition, error) {
	requestID := contextPkg.GetRequestID(ctx)

	query, args, err := sqlx.Named(queryGetToolsForAssistant, map[string]interface{}{
		"assistant_id": assistantID,
	})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetToolsForAssistant named query preparation err")
		return nil, err
	}
	query = r.q.Rebind(query)

	var rows []toolDefinitionDB
	if err := r.q.SelectContext(ctx, &rows, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetToolsForAssistant execution err")
		return nil, err
	}

	tools := make([]entity.ToolDefinition, 0, len(rows))
	for _, row := range rows {
		tool := entity.ToolDefinition{
			Name:          row.Name.String,
			Kind:          entity.ToolKind(row.Kind.String),
			Description:   row.Description.String,
			UICommand:     row.UICommand.String,
			SessionParam:  row.SessionParam.String,
			SimulatedJSON: row.SimulatedJSON.String,
			IsActive:      row.IsActive,
			UpdatedAt:     row.UpdatedAt,
		}

		if row.Parameters.Valid && row.Parameters.String != "" {
			tool.Parameters = json.RawMessage(row.Parameters.String)
		}

		if row.RouteMethod.Valid && row.RouteMethod.String != "" {
			tool.Route = &entity.ToolRoute{
				Method: row.RouteMethod.String,
				Path:   row.RoutePath.String,
			}
		}

		tools = append(tools, tool)
	}

	return tools, nil
}

type sanitizationRuleDB struct {
	ID          sql.NullString `db:"id"`
	Pattern     sql.NullString `db:"pattern"`
	Flags       sql.NullString `db:"flags"`
	Replacement sql.NullString `db:"replacement"`
	Direction   sql.NullString `db:"direction"`
	IsActive    bool           `db:"is_active"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func (r *ruleRepository) GetActiveRules(ctx context.Context) ([]entity.SanitizationRule, error) {
	requestID := contextPkg.GetRequestID(ctx)

	var rows []sanitizationRuleDB
	query := r.q.Rebind(queryGetActiveRules)
	if err := r.q.SelectContext(ctx, &rows, query); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetActiveRules execution err")
		return nil, err
	}

	rules := make([]entity.SanitizationRule, 0, len(rows))
	for _, row := range rows {
		rules = append(rules, entity.SanitizationRule{
			ID:          row.ID.String,
			Pattern:     row.Pattern.String,
			Flags:       row.Flags.String,
			Replacement: row.Replacement.String,
			Direction:   row.Direction.String,
			IsActive:    row.IsActive,
			UpdatedAt:   row.UpdatedAt,
		})
	}

	return rules, nil
}
