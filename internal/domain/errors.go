package domain

import "fmt"

// Error types for domain-specific errors
type ErrorType string

const (
	// ErrorTypeCredentials: the cookie file is missing or malformed. Fatal at
	// session construction, never retried.
	ErrorTypeCredentials ErrorType = "credentials"
	// ErrorTypeAuth: no organization handle is resolved; processing calls fail
	// fast without touching the network.
	ErrorTypeAuth ErrorType = "auth"
	// ErrorTypeUpload, ErrorTypeConversation, ErrorTypeStream: transient
	// per-attempt failures, retryable inside the bounded attempt loop.
	ErrorTypeUpload       ErrorType = "upload"
	ErrorTypeConversation ErrorType = "conversation"
	ErrorTypeStream       ErrorType = "stream"
	// ErrorTypeExhausted: all attempts failed; surfaced to the caller with the
	// last failure cause.
	ErrorTypeExhausted  ErrorType = "exhausted"
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeLogin      ErrorType = "login"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeStorage    ErrorType = "storage"
)

// DomainError represents a domain-specific error with context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewError creates a new domain error
func NewError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// Common error constructors
func CredentialsError(message string, err error) *DomainError {
	return NewError(ErrorTypeCredentials, message, err)
}

func AuthError(message string, err error) *DomainError {
	return NewError(ErrorTypeAuth, message, err)
}

func UploadError(message string, err error) *DomainError {
	return NewError(ErrorTypeUpload, message, err)
}

func ConversationError(message string, err error) *DomainError {
	return NewError(ErrorTypeConversation, message, err)
}

func StreamError(message string, err error) *DomainError {
	return NewError(ErrorTypeStream, message, err)
}

func ExhaustedError(message string, err error) *DomainError {
	return NewError(ErrorTypeExhausted, message, err)
}

func ValidationError(message string, err error) *DomainError {
	return NewError(ErrorTypeValidation, message, err)
}

func LoginError(message string, err error) *DomainError {
	return NewError(ErrorTypeLogin, message, err)
}

func ConfigError(message string, err error) *DomainError {
	return NewError(ErrorTypeConfig, message, err)
}

func StorageError(message string, err error) *DomainError {
	return NewError(ErrorTypeStorage, message, err)
}

// IsType reports whether err (or anything it wraps) is a DomainError of the
// given type.
func IsType(err error, t ErrorType) bool {
	for err != nil {
		if de, ok := err.(*DomainError); ok && de.Type == t {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
