package bridgeRepository

import (
	"VoiceBridge/internal/entity"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type SQLExecutor interface {
	sqlx.ExtContext
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row
	Rebind(query string) string
}

func New(db *sqlx.DB, log *logrus.Logger) Repository {
	return &repository{
		DB:  db,
		log: log,
	}
}

type repository struct {
	DB  *sqlx.DB
	log *logrus.Logger
}

type Repository interface {
	NewClient(tx bool) (Client, error)
}

func (r *repository) NewClient(tx bool) (Client, error) {
	var sqlExecutor SQLExecutor
	var commitFunc, rollbackFunc func() error

	sqlExecutor = r.DB

	if tx {
		txx, err := r.DB.Beginx()
		if err != nil {
			return Client{}, err
		}

		sqlExecutor = txx
		commitFunc = txx.Commit
		rollbackFunc = txx.Rollback
	} else {
		commitFunc = func() error { return nil }
		rollbackFunc = func() error { return nil }
	}

	return Client{
		Conversations: &conversationRepository{q: sqlExecutor, log: r.log},
		Messages:      &messageRepository{q: sqlExecutor, log: r.log},
		ToolCalls:     &toolCallRepository{q: sqlExecutor, log: r.log},
		Commit:        commitFunc,
		Rollback:      rollbackFunc,
	}, nil
}

type Client struct {
	Conversations interface {
		CreateConversation(ctx context.Context, conv entity.Conversation) error
		GetConversationByID(ctx context.Context, id string) (entity.Conversation, error)
		TouchConversation(ctx context.Context, id string) error
		UpdateSummary(ctx context.Context, id, summary string) error
	}

	Messages interface {
		AppendMessage(ctx context.Context, msg entity.ConversationMessage) error
		GetMessagesByConversationID(ctx context.Context, conversationID string, limit int) ([]entity.ConversationMessage, error)
	}

	ToolCalls interface {
		CreateToolCall(ctx context.Context, record entity.ToolCallRecord) error
		CompleteToolCall(ctx context.Context, id string, status entity.ToolCallStatus, resultJSON, errMsg string) error
		GetToolCallByID(ctx context.Context, id string) (entity.ToolCallRecord, error)
	}

	Commit   func() error
	Rollback func() error
}

type conversationRepository struct {
	q   SQLExecutor
	log *logrus.Logger
}

type messageRepository struct {
	q   SQLExecutor
	log *logrus.Logger
}

type toolCallRepository struct {
	q   SQLExecutor
	log *logrus.Logger
}
