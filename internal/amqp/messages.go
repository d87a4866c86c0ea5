package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"coinkeeper/internal/core"

	"github.com/google/uuid"
)

// TransactionCommittedMessage announces a committed ledger entry. It carries
// only identifiers; consumers load the transaction from the store.
type TransactionCommittedMessage struct {
	EventID        uuid.UUID `json:"event_id"`
	Kind           core.Kind `json:"kind"`
	ID             int64     `json:"id"`
	UserExternalID int64     `json:"user_external_id"`
	Timestamp      time.Time `json:"timestamp"`
}

func NewTransactionCommittedMessage(kind core.Kind, id, userExternalID int64) *TransactionCommittedMessage {
	return &TransactionCommittedMessage{
		EventID:        uuid.New(),
		Kind:           kind,
		ID:             id,
		UserExternalID: userExternalID,
		Timestamp:      time.Now().UTC(),
	}
}

func (m *TransactionCommittedMessage) Validate() error {
	if m.EventID == uuid.Nil {
		return errors.New("missing event id")
	}
	if !m.Kind.Valid() {
		return fmt.Errorf("%w: %q", core.ErrInvalidKind, m.Kind)
	}
	if m.ID <= 0 {
		return fmt.Errorf("invalid transaction id %d", m.ID)
	}
	return nil
}

func (m *TransactionCommittedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionCommittedMessageFromJSON decodes and validates a message body.
func TransactionCommittedMessageFromJSON(data []byte) (*TransactionCommittedMessage, error) {
	var msg TransactionCommittedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
