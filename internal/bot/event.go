// Package bot routes platform-neutral chat events through the conversation
// state machine, the ledger and the statistics aggregator.
package bot

import "context"

type EventKind int

const (
	EventText EventKind = iota
	EventSelection
	EventCommand
	EventCancel
)

func (k EventKind) String() string {
	switch k {
	case EventSelection:
		return "selection"
	case EventCommand:
		return "command"
	case EventCancel:
		return "cancel"
	}
	return "text"
}

type (
	// Event is one inbound interaction from a user.
	Event struct {
		UserID      int64 // Chat platform user handle
		DisplayName string
		Kind        EventKind
		Payload     string
	}

	// Option is one inline button; Payload comes back as an EventSelection.
	Option struct {
		Label   string
		Payload string
	}

	// Message is one outbound reply.
	Message struct {
		Text    string
		Options [][]Option
		// Menu replaces the persistent reply keyboard when non-empty.
		Menu [][]string
		// RemoveMenu hides the reply keyboard.
		RemoveMenu bool
		// RequestContact renders a share-contact button in place of Menu.
		RequestContact bool
	}
)

// Channel delivers messages to a user on the chat platform.
type Channel interface {
	Send(ctx context.Context, userID int64, msg Message) error
}
