package backend

import (
	"context"

	"coinkeeper/internal/amqp"
	"coinkeeper/internal/services"
	"coinkeeper/internal/storage"
)

// BackendResult contains the ledger store, the service built on it and the
// cleanup function releasing both.
type BackendResult struct {
	Store  storage.Store
	Ledger *services.LedgerService
	// Publisher is nil when AMQP is disabled or unreachable.
	Publisher *amqp.Client
	Cleanup   func() error
}

type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

type Config struct {
	Type         BackendType
	SQLiteDBPath string
	DatabaseURL  string

	// Events are published only when AMQPURL is set.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType selects the ledger store implementation.
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}
