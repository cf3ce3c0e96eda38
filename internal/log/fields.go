package log

// Common field names for structured logging.
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldUserAgent   = "user_agent"
	FieldError       = "error"
	FieldYear        = "year"
	FieldEntryID     = "entry_id"
	FieldReceiptID   = "receipt_id"
	FieldAmountCents = "amount_cents"
	FieldFilename    = "filename"
	FieldStatus      = "status"
)

// Standard component names.
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentStorage = "storage"
	ComponentReceipt = "receipt"
	ComponentExport  = "export"
)
