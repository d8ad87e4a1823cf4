package httputil

// Machine-readable error codes returned in the "code" field.
const (
	CodeInvalidRequestBody = "INVALID_REQUEST_BODY"
	CodeInternalError      = "INTERNAL_ERROR"
	CodeTooManyRequests    = "TOO_MANY_REQUESTS"
	CodeCooldownActive     = "COOLDOWN_ACTIVE"
	CodeRouteNotFound      = "ROUTE_NOT_FOUND"
	CodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"

	CodeNameRequired       = "NAME_REQUIRED"
	CodeEmailRequired      = "EMAIL_REQUIRED"
	CodeInvalidEmail       = "INVALID_EMAIL_FORMAT"
	CodePasswordRequired   = "PASSWORD_REQUIRED"
	CodePasswordTooShort   = "PASSWORD_TOO_SHORT"
	CodePasswordMismatch   = "PASSWORD_MISMATCH"
	CodePasswordNotHere    = "PASSWORD_UPDATE_NOT_ALLOWED"
	CodeInvalidRole        = "INVALID_ROLE"
	CodeInvalidUserID      = "INVALID_USER_ID"
	CodeEmailAlreadyExists = "EMAIL_ALREADY_EXISTS"

	CodeMissingCredentials   = "MISSING_CREDENTIALS"
	CodeInvalidCredentials   = "INVALID_CREDENTIALS"
	CodeMissingAuth          = "MISSING_AUTH"
	CodeInvalidAuthHeader    = "INVALID_AUTH_HEADER"
	CodeInvalidSession       = "INVALID_SESSION"
	CodeUserGone             = "USER_GONE"
	CodePasswordChanged      = "PASSWORD_CHANGED"
	CodeWrongCurrentPassword = "WRONG_CURRENT_PASSWORD"
	CodeForbidden            = "FORBIDDEN"

	CodeUserNotFound        = "USER_NOT_FOUND"
	CodeInvalidResetToken   = "INVALID_OR_EXPIRED_TOKEN"
	CodeEmailDeliveryFailed = "EMAIL_DELIVERY_FAILED"
)
