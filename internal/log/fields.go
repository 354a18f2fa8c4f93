package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldOperation  = "operation"
	FieldError      = "error"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"

	FieldSource         = "source"
	FieldSchema         = "schema"
	FieldReferenceMonth = "reference_month"
	FieldMembers        = "members"
	FieldLedgerEntries  = "ledger_entries"
	FieldAssets         = "assets"
	FieldIssues         = "issues"
	FieldView           = "view"
	FieldMemberID       = "member_id"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentReport    = "report"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentExport    = "export"
	ComponentMemory    = "memory"
	ComponentCache     = "cache"
	ComponentSchema    = "schema"
	ComponentRateLimit = "rate_limit"
	ComponentBackend   = "backend"
)

// Operations defines standard operation names
const (
	OpRead      = "read"
	OpReplace   = "replace"
	OpSync      = "sync"
	OpReconcile = "reconcile"
	OpDecode    = "decode"
	OpPublish   = "publish"
	OpConsume   = "consume"
	OpRender    = "render"
	OpShutdown  = "shutdown"
	OpStartup   = "startup"
	OpMigrate   = "migrate"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithRequestID adds request ID field
func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithSnapshotCounts adds the table sizes of a snapshot.
func (f LogFields) WithSnapshotCounts(members, ledger, assets int) LogFields {
	f[FieldMembers] = members
	f[FieldLedgerEntries] = ledger
	f[FieldAssets] = assets
	return f
}

// WithHTTPRequest adds HTTP request fields
func (f LogFields) WithHTTPRequest(method, path, clientIP, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldClientIP] = clientIP
	f[FieldUserAgent] = userAgent
	return f
}

// WithHTTPResponse adds HTTP response fields
func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
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
