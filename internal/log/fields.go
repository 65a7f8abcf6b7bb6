package log

import (
	"maps"
	"slices"
	"strings"
)

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldQuery         = "query"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldDurationHuman = "duration_human"
	FieldUserAgent     = "user_agent"
	FieldReferer       = "referer"
	FieldSuccess       = "success"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldCurrency      = "currency"
	FieldCurrencies    = "currencies"
	FieldBaseCurrency  = "base_currency"
	FieldYearMonth     = "year_month"
	FieldRunID         = "run_id"
	FieldSource        = "source"
	FieldRows          = "rows"
	FieldInserted      = "inserted"
	FieldUpdated       = "updated"
	FieldSkipped       = "skipped"
	FieldFiltered      = "filtered"
	FieldSheetTab      = "sheet_tab"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentImport    = "import"
	ComponentSummary   = "summary"
	ComponentExport    = "export"
	ComponentECB       = "ecb"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentCache     = "cache"
	ComponentSecurity  = "security"
	ComponentRateLimit = "rate_limit"
	ComponentTrace     = "trace"
	ComponentBackend   = "backend"
	ComponentTemplate  = "template"
)

// Operations defines standard operation names
const (
	OpRead      = "read"
	OpList      = "list"
	OpImport    = "import"
	OpSummarize = "summarize"
	OpExport    = "export"
	OpPublish   = "publish"
	OpValidate  = "validate"
	OpParse     = "parse"
	OpRender    = "render"
	OpShutdown  = "shutdown"
	OpStartup   = "startup"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeDatabase      = "database_error"
	ErrorTypeNetwork       = "network_error"
	ErrorTypeAuth          = "auth_error"
	ErrorTypeTimeout       = "timeout_error"
	ErrorTypeNotFound      = "not_found_error"
	ErrorTypeConflict      = "conflict_error"
	ErrorTypeInternal      = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithRequestID adds request ID field
func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

// WithClientIP adds client IP field
func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithSelection adds the reporting selection of a summary request.
func (f LogFields) WithSelection(yearMonth, base string, currencies []string) LogFields {
	if yearMonth != "" {
		f[FieldYearMonth] = yearMonth
	}
	f[FieldBaseCurrency] = base
	f[FieldCurrencies] = strings.Join(currencies, ",")
	return f
}

// WithCurrency adds a single currency code.
func (f LogFields) WithCurrency(code string) LogFields {
	f[FieldCurrency] = code
	return f
}

// WithImportCounts adds the row outcome counts of an import run.
func (f LogFields) WithImportCounts(runID, source string, inserted, updated, skipped, filtered int) LogFields {
	f[FieldRunID] = runID
	f[FieldSource] = source
	f[FieldInserted] = inserted
	f[FieldUpdated] = updated
	f[FieldSkipped] = skipped
	f[FieldFiltered] = filtered
	return f
}

// WithHTTPRequest adds HTTP request fields
func (f LogFields) WithHTTPRequest(method, path, query, userAgent, referer string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	f[FieldUserAgent] = userAgent
	f[FieldReferer] = referer
	return f
}

// WithHTTPResponse adds HTTP response fields
func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

// ToSlice converts LogFields to a slice for slog, keys in sorted order.
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for _, k := range slices.Sorted(maps.Keys(f)) {
		slice = append(slice, k, f[k])
	}
	return slice
}
