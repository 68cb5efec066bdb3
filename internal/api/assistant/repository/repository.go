package assistantRepository

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
		Assistants:   &assistantRepository{q: sqlExecutor, log: r.log},
		Instructions: &instructionRepository{q: sqlExecutor, log: r.log},
		Tools:        &toolRepository{q: sqlExecutor, log: r.log},
		Rules:        &ruleRepository{q: sqlExecutor, log: r.log},
		Commit:       commitFunc,
		Rollback:     rollbackFunc,
	}, nil
}

type Client struct {
	Assistants interface {
		GetAssistantByID(ctx context.Context, id string) (entity.Assistant, error)
		GetDefaultAssistant(ctx context.Context) (entity.Assistant, error)
		GetAllAssistants(ctx context.Context) ([]entity.Assistant, error)
	}

	Instructions interface {
		GetBlocksForAssistant(ctx context.Context, assistantID string) ([]entity.InstructionBlock, error)
	}

	Tools interface {
		GetToolsForAssistant(ctx context.Context, assistantID string) ([]entity.ToolDefinition, error)
	}

	Rules interface {
		GetActiveRules(ctx context.Context) ([]entity.SanitizationRule, error)
	}

	Commit   func() error
	Rollback func() error
}

type assistantRepository struct {
	q   SQLExecutor
	log *logrus.Logger
}

type instructionRepository struct {
	q   SQLExecutor
	log *logrus.Logger
}

type toolRepository struct {
	q   SQLExecutor
	log *logrus.Logger
}

type ruleRepository struct {
	q   SQLExecutor
	log *logrus.Logger
}
