package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldUserID      = "user_id"
	FieldEventKind   = "event_kind"
	FieldState       = "state"
	FieldFlow        = "flow"
	FieldResult      = "result"
	FieldKind        = "kind"
	FieldPeriod      = "period"
	FieldTxID        = "tx_id"
	FieldAmountCents = "amount_cents"
	FieldCategory    = "category"
	FieldDuration    = "duration_ms"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldMessageID   = "message_id"
	FieldSheetsRef   = "sheets_ref"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentBot      = "bot"
	ComponentFlow     = "flow"
	ComponentStats    = "stats"
	ComponentLedger   = "ledger"
	ComponentStorage  = "storage"
	ComponentSession  = "session"
	ComponentTelegram = "telegram"
	ComponentAMQP     = "amqp"
	ComponentWorker   = "worker"
	ComponentSheets   = "sheets"
	ComponentCache    = "cache"
	ComponentBackend  = "backend"
	ComponentHTTP     = "http"
)

// Operations defines standard operation names
const (
	OpCommit   = "commit"
	OpRegister = "register"
	OpReport   = "report"
	OpPublish  = "publish"
	OpExport   = "export"
	OpSend     = "send"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithUser(userID int64) LogFields {
	f[FieldUserID] = userID
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithTransaction adds the fields identifying a committed transaction.
func (f LogFields) WithTransaction(kind string, id, amountCents int64, category string) LogFields {
	f[FieldKind] = kind
	f[FieldTxID] = id
	f[FieldAmountCents] = amountCents
	f[FieldCategory] = category
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
