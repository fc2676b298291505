package log

// Field names shared by every component. Keys are snake_case.
const (
	FieldComponent  = "component"
	FieldOperation  = "operation"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldQuery      = "query"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldErrorType  = "error_type"

	FieldUserID    = "user_id"
	FieldOwnerID   = "owner_id"
	FieldCatchID   = "catch_id"
	FieldSpecies   = "species"
	FieldCount     = "count"
	FieldIsPublic  = "is_public"
	FieldRowRef    = "row_ref"
	FieldMessageID = "message_id"
	FieldKind      = "kind"
)

const (
	ComponentApp         = "app"
	ComponentHTTP        = "http"
	ComponentCatchStore  = "catch_store"
	ComponentSessions    = "sessions"
	ComponentSocial      = "social"
	ComponentEnrich      = "enrich"
	ComponentStorage     = "storage"
	ComponentObjectStore = "objectstore"
	ComponentAMQP        = "amqp"
	ComponentWorker      = "worker"
	ComponentSheets      = "sheets"
	ComponentCache       = "cache"
	ComponentRateLimit   = "rate_limit"
	ComponentTrace       = "trace"
	ComponentBackend     = "backend"
)

const (
	OpLoad     = "load"
	OpCreate   = "create"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpNotify   = "notify"
	OpExport   = "export"
	OpEnrich   = "enrich"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)

const (
	ErrorTypeValidation  = "validation_error"
	ErrorTypeNotFound    = "not_found_error"
	ErrorTypeConflict    = "conflict_error"
	ErrorTypePersistence = "persistence_error"
	ErrorTypeFetch       = "fetch_error"
	ErrorTypeInternal    = "internal_error"
)

// Fields builds slog key/value pairs in insertion order.
type Fields []any

func NewFields() Fields {
	return Fields{}
}

func (f Fields) Component(name string) Fields {
	return append(f, FieldComponent, name)
}

func (f Fields) Operation(op string) Fields {
	return append(f, FieldOperation, op)
}

func (f Fields) Err(err error) Fields {
	if err == nil {
		return f
	}
	return append(f, FieldError, err.Error())
}

// Catch adds the identifying fields of a catch. Loggers scoped to an owner
// already carry owner_id, so it is not repeated here.
func (f Fields) Catch(id, species string) Fields {
	f = append(f, FieldCatchID, id)
	if species != "" {
		f = append(f, FieldSpecies, species)
	}
	return f
}
