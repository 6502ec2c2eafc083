package client

import "fmt"

// AuthError is returned for 401 and 403 responses. Status carries the account state
// ("pending", "rejected") when the server reports one.
type AuthError struct {
	StatusCode int
	Message    string
	Status     string
}

func (e *AuthError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("authentication failed (%d, %s): %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("authentication failed (%d): %s", e.StatusCode, e.Message)
}

// ValidationError is returned when the server rejects the request body.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "invalid request: " + e.Message
}

// NetworkError wraps transport failures: the server was not reached or did not answer.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ServerError covers every other non-2xx response.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server returned status %d: %s", e.StatusCode, e.Message)
}
