package evaldto

// Error codes carried by DomainError.
const (
	CodeValidation   = "validation"
	CodeInvalidState = "invalid_state"
	CodeNotFound     = "not_found"
	CodeBadRequest   = "bad_request"
	CodeUnavailable  = "unavailable"
	CodeInternal     = "internal"
)

type DomainError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "analysis service error"
}

// ErrorResponse is the body of every non-2xx API reply.
type ErrorResponse struct {
	Error DomainError `json:"error"`
}
