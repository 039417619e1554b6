// Package backend builds the storage, event and sheet backends a process
// needs from configuration.
package backend

import (
	"context"

	"bistro/internal/amqp"
	"bistro/internal/services"
	"bistro/internal/sheets"
	"bistro/internal/storage"
)

type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (t BackendType) IsValid() bool {
	return t == SQLiteBackend || t == MemoryBackend
}

func (t BackendType) String() string { return string(t) }

// CleanupFunc releases whatever a backend holds open.
type CleanupFunc func() error

// BackendResult is a ready store plus the optional AMQP client. Publisher
// is a nil interface when AMQP is not configured.
type BackendResult struct {
	Store     storage.Store
	Events    *amqp.Client
	Publisher services.EventPublisher
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	CreateSheetsWriter(ctx context.Context, config Config) (sheets.TableWriter, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type         BackendType
	SQLiteDBPath string

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
	// RequireAMQP turns a failed broker connection into an error instead of
	// a warning.
	RequireAMQP bool

	GoogleSpreadsheetID string
}
