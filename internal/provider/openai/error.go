package openai

type Error struct {
	message   string
	errorType string
	code      int
}

func NewError(message string, errorType string, code int) *Error {
	return &Error{
		message:   message,
		errorType: errorType,
		code:      code,
	}
}

func (e *Error) Error() string {
	return e.message
}

func (e *Error) Type() string {
	return e.errorType
}

func (e *Error) StatusCode() int {
	return e.code
}
