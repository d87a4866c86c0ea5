package backend

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"coinkeeper/internal/config"
	"coinkeeper/internal/core"
	"coinkeeper/internal/log"
)

func quietLogger() *log.Logger {
	return log.New(log.Config{Output: io.Discard})
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "memory", cfg: Config{Type: MemoryBackend}},
		{name: "sqlite", cfg: Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}},
		{name: "sqlite without path", cfg: Config{Type: SQLiteBackend}, wantErr: "database path"},
		{name: "postgres without url", cfg: Config{Type: PostgresBackend}, wantErr: "database URL"},
		{name: "unknown type", cfg: Config{Type: "sheets"}, wantErr: "unknown data backend"},
		{
			name:    "amqp without queue",
			cfg:     Config{Type: MemoryBackend, AMQPURL: "amqp://localhost", AMQPExchange: "coinkeeper"},
			wantErr: "AMQP exchange and queue",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestFromAppConfig(t *testing.T) {
	app := &config.Config{
		DataBackend:  "postgres",
		DatabaseURL:  "postgres://localhost/coinkeeper",
		AMQPURL:      "amqp://localhost",
		AMQPExchange: "coinkeeper",
		AMQPQueue:    "export_transactions",
	}

	cfg, err := FromAppConfig(app)
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if cfg.Type != PostgresBackend || cfg.DatabaseURL != app.DatabaseURL || cfg.AMQPQueue != app.AMQPQueue {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.WithoutEvents().AMQPURL != "" {
		t.Error("WithoutEvents kept the AMQP URL")
	}

	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Error("expected error for unknown backend")
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
}

func TestCreateBackend(t *testing.T) {
	tests := []struct {
		name string
		cfg  func(t *testing.T) Config
	}{
		{"memory", func(*testing.T) Config { return Config{Type: MemoryBackend} }},
		{"sqlite", func(t *testing.T) Config {
			return Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "ledger.db")}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			res, err := NewFactory(quietLogger()).CreateBackend(ctx, tt.cfg(t))
			if err != nil {
				t.Fatalf("CreateBackend: %v", err)
			}
			defer func() {
				if err := res.Cleanup(); err != nil {
					t.Errorf("Cleanup: %v", err)
				}
			}()

			if res.Publisher != nil {
				t.Error("publisher should be nil without AMQP_URL")
			}

			cats, err := res.Store.ListCategories(ctx, core.KindExpense)
			if err != nil || len(cats) == 0 {
				t.Fatalf("categories = %v, %v", cats, err)
			}

			u, err := res.Ledger.Register(ctx, 42, "Ann", "+15551234567")
			if err != nil {
				t.Fatalf("Register: %v", err)
			}
			tx, updated, err := res.Ledger.Commit(ctx, u, core.Transaction{
				Kind:        core.KindExpense,
				CategoryID:  cats[0].ID,
				Amount:      core.Money{Cents: 500},
				Date:        core.NewDate(2025, 2, 3),
				Description: "coffee",
			})
			if err != nil {
				t.Fatalf("Commit: %v", err)
			}
			if tx.ID == 0 || updated.Balance.Cents != -500 {
				t.Errorf("tx = %+v, user = %+v", tx, updated)
			}

			if _, err := res.Ledger.Register(ctx, 42, "Ann", "+15551234567"); !errors.Is(err, core.ErrAlreadyExists) {
				t.Errorf("second Register err = %v, want ErrAlreadyExists", err)
			}
		})
	}
}
