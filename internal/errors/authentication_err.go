package errors

// AuthError indicates that a usable credential could not be derived from the
// inbound request. It never carries the credential value itself.
type AuthError struct {
	message string
}

func NewAuthError(msg string) *AuthError {
	return &AuthError{
		message: msg,
	}
}

func (ae *AuthError) Error() string {
	return ae.message
}

func (ae *AuthError) Authenticated() {}
