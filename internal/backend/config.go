package backend

import (
	"errors"
	"fmt"

	"coinkeeper/internal/config"
)

// FromAppConfig picks the storage and event settings out of cfg.
func FromAppConfig(cfg *config.Config) (Config, error) {
	if cfg == nil {
		return Config{}, errors.New("app config is nil")
	}
	t := BackendType(cfg.DataBackend)
	if !t.IsValid() {
		return Config{}, fmt.Errorf("unknown data backend %q", cfg.DataBackend)
	}
	return Config{
		Type:         t,
		SQLiteDBPath: cfg.SQLiteDBPath,
		DatabaseURL:  cfg.DatabaseURL,
		AMQPURL:      cfg.AMQPURL,
		AMQPExchange: cfg.AMQPExchange,
		AMQPQueue:    cfg.AMQPQueue,
	}, nil
}

// WithoutEvents returns a copy of c that never publishes, for consumers
// that only read the ledger.
func (c Config) WithoutEvents() Config {
	c.AMQPURL = ""
	return c
}

func (c Config) Validate() error {
	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return errors.New("sqlite backend needs a database path")
		}
	case PostgresBackend:
		if c.DatabaseURL == "" {
			return errors.New("postgres backend needs a database URL")
		}
	case MemoryBackend:
	default:
		return fmt.Errorf("unknown data backend %q", c.Type)
	}

	if c.AMQPURL != "" && (c.AMQPExchange == "" || c.AMQPQueue == "") {
		return errors.New("event publishing needs both an AMQP exchange and queue")
	}
	return nil
}
