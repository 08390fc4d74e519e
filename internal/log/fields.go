package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldSuccess       = "success"
	FieldError         = "error"
	FieldErrorType     = "error_type"
	FieldOperation     = "operation"
	FieldDuration      = "duration_ms"
	FieldTransactionID = "transaction_id"
	FieldTitle         = "title"
	FieldValue         = "value"
	FieldType          = "type"
	FieldCategory      = "category"
	FieldCategoryID    = "category_id"
	FieldFile          = "file"
	FieldLine          = "line"
	FieldReason        = "reason"
	FieldCount         = "count"
	FieldSkipped       = "skipped"
	FieldCreated       = "created_categories"
)

// Components defines standard component names
const (
	ComponentApp         = "app"
	ComponentTransaction = "transaction"
	ComponentImport      = "import"
	ComponentStorage     = "storage"
	ComponentAMQP        = "amqp"
	ComponentBackend     = "backend"
	ComponentCLI         = "cli"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpDelete   = "delete"
	OpImport   = "import"
	OpList     = "list"
	OpBalance  = "balance"
	OpValidate = "validate"
	OpParse    = "parse"
	OpPublish  = "publish"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeDatabase      = "database_error"
	ErrorTypeNetwork       = "network_error"
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

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithErrorType adds the error category
func (f LogFields) WithErrorType(errorType string) LogFields {
	f[FieldErrorType] = errorType
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithTransaction adds transaction-related fields
func (f LogFields) WithTransaction(id, title, value, txType, categoryID string) LogFields {
	f[FieldTransactionID] = id
	f[FieldTitle] = title
	f[FieldValue] = value
	f[FieldType] = txType
	f[FieldCategoryID] = categoryID
	return f
}

// WithImport adds bulk import counters
func (f LogFields) WithImport(file string, count, skipped, created int) LogFields {
	f[FieldFile] = file
	f[FieldCount] = count
	f[FieldSkipped] = skipped
	f[FieldCreated] = created
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
