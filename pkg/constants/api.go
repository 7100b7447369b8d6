package constants

// HTTP and API constants
const (
	// HTTP Headers
	HeaderAuthorization = "Authorization"
	HeaderAPIVersion    = "X-API-Version"

	// Auth
	BearerPrefix = "Bearer "

	// Context keys set by the middleware
	ContextKeyUser       = "user"
	ContextKeyToken      = "token"
	ContextKeyAPIVersion = "api_version"

	// Response Keys
	ResponseError = "error"
	ResponseData  = "data"
	FieldMessage  = "message"
	FieldCode     = "code"
)

// Query parameter constants for GET /api/data/:table
const (
	ParamFilter = "filter"
	ParamWhere  = "where"
	ParamTerm   = "q"
)
