package ibmq

import "fmt"

// APIError is the generic error returned for failed interactions with the
// Quantum Experience API. It carries the user/developer message pair used by
// the service and the qiskit SDKs.
type APIError struct {
	UserMsg string
	DevMsg  string
	Err     error
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("usr_msg: %s", e.UserMsg)
	if e.DevMsg != "" {
		msg += fmt.Sprintf("\ndev_msg: %s", e.DevMsg)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *APIError) Unwrap() error { return e.Err }

// CredentialsError represents bad server credentials: a missing or rejected
// API token, or login info the service refused.
type CredentialsError struct {
	APIError
}

func (e *CredentialsError) Unwrap() error { return &e.APIError }

func newCredentialsError(usrMsg string, err error) *CredentialsError {
	return &CredentialsError{APIError{UserMsg: usrMsg, Err: err}}
}

// BadBackendError reports a backend name the platform does not recognize.
type BadBackendError struct {
	APIError
	Backend string
}

func (e *BadBackendError) Unwrap() error { return &e.APIError }

func newBadBackendError(backend string) *BadBackendError {
	return &BadBackendError{
		APIError: APIError{
			UserMsg: fmt.Sprintf("Could not find backend %q available", backend),
			DevMsg:  fmt.Sprintf("Backend %q does not exist. Please use AvailableBackends to see options", backend),
		},
		Backend: backend,
	}
}

// RegisterSizeError reports exceeding the maximum number of qubits allowed by
// a device. Limit is the qubit count reported by the service.
type RegisterSizeError struct {
	APIError
	Limit int
}

func (e *RegisterSizeError) Unwrap() error { return &e.APIError }

func newRegisterSizeError(limit int) *RegisterSizeError {
	return &RegisterSizeError{
		APIError: APIError{UserMsg: fmt.Sprintf("device register size must be <= %d", limit)},
		Limit:    limit,
	}
}

// httpErr is the error document the service embeds in JSON response bodies:
//
//	{"error": {"status": 400, "code": "GENERIC_ERROR", "message": "..."}}
type httpErr struct {
	Status  int    `json:"status,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Name    string `json:"name,omitempty"`
}

func (e *httpErr) Error() string {
	return fmt.Sprintf("%s (status %d, code %s)", e.Message, e.Status, e.Code)
}

// asAPIError promotes an embedded service error into an *APIError so callers
// see the usual taxonomy no matter which endpoint produced it.
func (e *httpErr) asAPIError() *APIError {
	return &APIError{UserMsg: e.Message, DevMsg: fmt.Sprintf("status %d, code %s", e.Status, e.Code)}
}
