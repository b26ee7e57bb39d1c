package ibmq

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

const (
	// DefaultBackend is the backend used when a submission names none
	DefaultBackend = "ibmq_qasm_simulator"
	// DefaultShots is the default number of runs per experiment
	DefaultShots = 1
	// DefaultMaxCredits is the default credit ceiling for a job
	DefaultMaxCredits = 3
)

// MaxShots is the largest number of shots a backend accepts
const MaxShots = 8192

// MaxSeed is the maximum simulator seed value
const MaxSeed int64 = 9999999999

// Client represents a concurrent-safe IBM QX API client.
// It implements the same methods as the python client so transferring
// shouldn't be difficult.
type Client struct {
	opts clientOptions
	conn *Conn

	mu       sync.Mutex
	backends map[string]*Backend
}

// NewClient returns a IBM Quantum Experience API Client on top of conn
func NewClient(conn *Conn, options ...ClientOption) *Client {
	opts := clientOptions{
		backend:    DefaultBackend,
		shots:      DefaultShots,
		maxCredits: DefaultMaxCredits,
	}
	for _, option := range options {
		option(&opts)
	}

	// Create client
	return &Client{
		opts:     opts,
		conn:     conn,
		backends: make(map[string]*Backend),
	}
}

// callOpts merges per-call options over the client defaults
func (c *Client) callOpts(options ...ClientOption) clientOptions {
	opts := c.opts
	for _, option := range options {
		option(&opts)
	}
	return opts
}

// CheckCredentials reports whether the underlying connection holds an access token
func (c *Client) CheckCredentials() bool {
	return c.conn.CheckCredentials()
}

// APIVersion retrieves the current API version, e.g. "4.3.2".
// Older deployments report a bare number instead of a dotted string.
func (c *Client) APIVersion(ctx context.Context) (string, error) {
	data, err := c.conn.get(ctx, "version", nil)
	if err != nil {
		return "", err
	}

	raw := strings.TrimSpace(string(data))

	var v interface{}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		// the endpoint has answered with a bare text body before
		return raw, nil
	}
	switch version := v.(type) {
	case string:
		return version, nil
	case float64:
		return strconv.FormatFloat(version, 'f', -1, 64), nil
	default:
		return "", &APIError{UserMsg: "device server returned unexpected http response", DevMsg: raw}
	}
}

// Credit represents the users credits information
type Credit struct {
	MaxUserType float64 `json:"maxUserType,omitempty"`
	Promotional float64 `json:"promotional,omitempty"`
	Remaining   float64 `json:"remaining,omitempty"`
}

type creditsResp struct {
	Err  *httpErr `json:"error,omitempty"`
	Cred Credit   `json:"credit,omitempty"`
}

// GetMyCredits returns the credits information associated with the given client
func (c *Client) GetMyCredits(ctx context.Context) (Credit, error) {
	data, err := c.conn.get(ctx, fmt.Sprintf("users/%s", c.conn.UserID()), nil)
	if err != nil {
		return Credit{}, err
	}

	var cResp creditsResp
	if err := c.conn.decode(data, &cResp); err != nil {
		return Credit{}, err
	}
	if cResp.Err != nil {
		return Credit{}, cResp.Err.asAPIError()
	}
	return cResp.Cred, nil
}
