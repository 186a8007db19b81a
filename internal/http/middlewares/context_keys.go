package middlewares

// gin context keys shared by middlewares and handlers.
const (
	CtxRequestID = "request_id"
	CtxCaller    = "auth.caller"
)
