package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"coinkeeper/internal/amqp"
	"coinkeeper/internal/core"
	"coinkeeper/internal/log"
	"coinkeeper/internal/storage"
)

// EventPublisher announces committed transactions to other processes.
type EventPublisher interface {
	PublishTransactionCommitted(ctx context.Context, msg *amqp.TransactionCommittedMessage) error
}

// LedgerService orchestrates ledger writes across the store and the broker.
// The store is the source of truth; publishing is best-effort.
type LedgerService struct {
	store     storage.Store
	publisher EventPublisher
	logger    *log.Logger
}

// NewLedgerService wires store and an optional publisher (nil disables events).
func NewLedgerService(store storage.Store, publisher EventPublisher, logger *log.Logger) *LedgerService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &LedgerService{
		store:     store,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentLedger),
	}
}

// FindUser returns core.ErrNotFound for unregistered users.
func (s *LedgerService) FindUser(ctx context.Context, externalID int64) (core.User, error) {
	return s.store.FindUser(ctx, externalID)
}

// Register creates a user with a zero balance.
func (s *LedgerService) Register(ctx context.Context, externalID int64, name, contact string) (core.User, error) {
	u := core.User{
		ExternalID: externalID,
		Name:       strings.TrimSpace(name),
		Contact:    strings.TrimSpace(contact),
	}
	if err := s.store.CreateUser(ctx, &u); err != nil {
		if !errors.Is(err, core.ErrAlreadyExists) {
			s.logger.ErrorContext(ctx, "Failed to register user",
				log.FieldUserID, externalID,
				log.FieldOperation, log.OpRegister,
				log.FieldError, err)
		}
		return core.User{}, err
	}
	return u, nil
}

// Commit persists tx for user and moves the balance atomically, then
// publishes a TransactionCommitted event. It returns the stored transaction
// and the user with the updated balance.
func (s *LedgerService) Commit(ctx context.Context, user core.User, tx core.Transaction) (core.Transaction, core.User, error) {
	tx.UserID = user.ID
	updated, err := s.store.CreateTransaction(ctx, &tx)
	if err != nil {
		return core.Transaction{}, core.User{}, fmt.Errorf("commit %s: %w", tx.Kind, err)
	}

	s.logger.InfoContext(ctx, "Transaction committed",
		log.NewFields().
			WithUser(user.ExternalID).
			WithOperation(log.OpCommit).
			WithTransaction(tx.Kind.String(), tx.ID, tx.Amount.Cents, tx.CategoryName).
			ToSlice()...)

	if err := s.publish(ctx, tx, user); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish transaction event",
			log.FieldKind, tx.Kind,
			log.FieldTxID, tx.ID,
			log.FieldError, err)
	}

	return tx, updated, nil
}

func (s *LedgerService) publish(ctx context.Context, tx core.Transaction, user core.User) error {
	if s.publisher == nil {
		return nil
	}
	msg := amqp.NewTransactionCommittedMessage(tx.Kind, tx.ID, user.ExternalID)
	return s.publisher.PublishTransactionCommitted(ctx, msg)
}

// Close closes both the store and, when it is closable, the publisher.
func (s *LedgerService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if closer, ok := s.publisher.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %w", errors.Join(errs...))
	}
	return nil
}
