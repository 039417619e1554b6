package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"bistro/internal/amqp"
	"bistro/internal/sheets"
	gsheet "bistro/internal/sheets/google"
	"bistro/internal/sheets/memory"
	"bistro/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend opens the configured store and, when AMQP_URL is set, the
// event publisher. A broker that cannot be reached is only fatal when
// config.RequireAMQP is set.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store storage.Store
		err   error
	)
	switch config.Type {
	case SQLiteBackend:
		store, err = storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case MemoryBackend:
		store = storage.NewMemoryStore()
		f.logger.InfoContext(ctx, "Initialized memory backend")
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	res := &BackendResult{Store: store, Cleanup: store.Close}
	if config.AMQPURL == "" {
		return res, nil
	}

	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		if config.RequireAMQP {
			_ = store.Close()
			return nil, fmt.Errorf("failed to initialize AMQP client: %w", err)
		}
		f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", "error", err)
		return res, nil
	}
	f.logger.InfoContext(ctx, "Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)

	res.Events = client
	res.Publisher = client
	res.Cleanup = func() error {
		return errors.Join(client.Close(), store.Close())
	}
	return res, nil
}

// CreateSheetsWriter returns the Google Sheets client when a spreadsheet is
// configured and an in-memory table store otherwise.
func (f *DefaultFactory) CreateSheetsWriter(ctx context.Context, config Config) (sheets.TableWriter, error) {
	if config.GoogleSpreadsheetID == "" {
		f.logger.WarnContext(ctx, "GOOGLE_SPREADSHEET_ID not set, sheet sync writes to memory only")
		return memory.New(), nil
	}
	client, err := gsheet.NewFromEnv(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.InfoContext(ctx, "Initialized Google Sheets writer")
	return client, nil
}
