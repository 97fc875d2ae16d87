package constants

// Context keys
const (
	ContextKeyUserID       = "user_id"
	ContextKeyOrganization = "organization"
	ContextKeyCurrentUser  = "current_user"
)

// SessionCookieName is the name of the session cookie.
const SessionCookieName = "group_session"

// Pagination limits
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// MinPasswordLength is the minimum accepted password length for signup.
const MinPasswordLength = 8
