package ibmq

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAPIError_Message(t *testing.T) {
	t.Parallel()

	err := &APIError{UserMsg: "user facing", DevMsg: "developer facing"}
	require.Contains(t, err.Error(), "usr_msg: user facing")
	require.Contains(t, err.Error(), "dev_msg: developer facing")
}

func TestAPIError_Unwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection reset")
	err := &APIError{UserMsg: "failed to reach the backend", Err: cause}
	require.ErrorIs(t, err, cause)
}

func TestCredentialsError_IsAPIError(t *testing.T) {
	t.Parallel()

	err := newCredentialsError("invalid token", nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "invalid token", apiErr.UserMsg)
}

func TestBadBackendError(t *testing.T) {
	t.Parallel()

	err := newBadBackendError("ibmqx9000")
	require.Equal(t, "ibmqx9000", err.Backend)
	require.ErrorContains(t, err, "ibmqx9000")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
}

func TestRegisterSizeError(t *testing.T) {
	t.Parallel()

	err := newRegisterSizeError(5)
	require.Equal(t, 5, err.Limit)
	require.ErrorContains(t, err, "must be <= 5")
}

func TestHTTPErr_AsAPIError(t *testing.T) {
	t.Parallel()

	wire := &httpErr{Status: 400, Code: "GENERIC_ERROR", Message: "Backend not available"}
	apiErr := wire.asAPIError()
	require.Equal(t, "Backend not available", apiErr.UserMsg)
	require.Contains(t, apiErr.DevMsg, "GENERIC_ERROR")
}
