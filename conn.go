package ibmq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultUrl is the default IBM QX API Endpoint URL
	DefaultUrl = "https://quantumexperience.ng.bluemix.net/api"
	// DefaultClientAppl identifies this client to the platform
	DefaultClientAppl = "qiskit-sdk-go"
	// DefaultRetries is the default number of attempts every request gets
	DefaultRetries = 5
	// DefaultTimeout is the default timeout for each request
	DefaultTimeout = 30 * time.Second
	// DefaultRetryInterval is the default pause between request attempts
	DefaultRetryInterval = time.Second
)

const clientApplicationHeader = "x-qx-client-application"

// Responses with these codes fail the call right away instead of being
// retried.
var noRetryStatuses = map[int]bool{
	http.StatusUnauthorized:          true,
	http.StatusForbidden:             true,
	http.StatusRequestEntityTooLarge: true,
}

var registerSizeRe = regexp.MustCompile(`register exceed the number of qubits, it can'?t be greater than (\d+)`)

type dialOptions struct {
	// Login Info
	apiToken string
	email    string
	password string

	accessToken string
	userId      string

	// API Endpoint Info
	url        string
	proxyUrls  map[string]string
	clientAppl string

	// API Request Info
	retries       int
	timeout       time.Duration
	retryInterval time.Duration
}

// DialOption configures how the connection works
type DialOption func(*dialOptions)

// WithApiToken configures the connection to obtain your access token by using your API token
func WithApiToken(token string) DialOption {
	return func(options *dialOptions) {
		options.apiToken = token
	}
}

// WithAccessInfo configures the connection already with an API Access Token and a User ID.
// Connections dialed this way cannot refresh an expired token on their own.
func WithAccessInfo(token, userId string) DialOption {
	return func(options *dialOptions) {
		options.accessToken = token
		options.userId = userId
	}
}

// WithLoginInfo configures the connection to obtain your access token by using your login info
func WithLoginInfo(email, password string) DialOption {
	return func(options *dialOptions) {
		options.email = email
		options.password = password
	}
}

// WithApiUrl configures the connection to use the provided url for the API endpoints
func WithApiUrl(url string) DialOption {
	return func(options *dialOptions) {
		options.url = strings.TrimSuffix(url, "/")
	}
}

// WithProxies configures the conn proxy information
// urls should be a map of:
//
//	http: URL
//	https: URL
func WithProxies(urls map[string]string) DialOption {
	return func(options *dialOptions) {
		options.proxyUrls = urls
	}
}

// WithClientApplication appends an application name to the client
// identifier sent with every request
func WithClientApplication(appl string) DialOption {
	return func(options *dialOptions) {
		options.clientAppl = DefaultClientAppl + ":" + appl
	}
}

// WithRetries configures the number of attempts performed for any request
func WithRetries(retries int) DialOption {
	return func(options *dialOptions) {
		options.retries = retries
	}
}

// WithTimeout configures the timeout for each request
func WithTimeout(timeout time.Duration) DialOption {
	return func(options *dialOptions) {
		options.timeout = timeout
	}
}

// WithRetryInterval configures the pause between request attempts
func WithRetryInterval(interval time.Duration) DialOption {
	return func(options *dialOptions) {
		options.retryInterval = interval
	}
}

// Conn is a representation of a connection to the IBM QX API.
// It is safe for concurrent use by multiple goroutines.
type Conn struct {
	dopts dialOptions
	c     *http.Client

	mu          sync.Mutex
	accessToken string
	userId      string
}

// Dial takes a list of DialOptions and returns a connection to the IBM QX API.
// It obtains an access token with the given credentials and returns a
// *CredentialsError if the platform rejects them.
func Dial(options ...DialOption) (*Conn, error) {
	c := &Conn{
		c: &http.Client{},
	}

	for _, option := range options {
		option(&c.dopts)
	}

	// Check API Login info; otherwise, error
	if c.dopts.apiToken == "" && c.dopts.email == "" && c.dopts.accessToken == "" {
		return nil, newCredentialsError("missing credentials to obtain access token. please provide either, api token or email/password", nil)
	}

	// Set defaults
	if c.dopts.url == "" {
		c.dopts.url = DefaultUrl
	}

	if c.dopts.clientAppl == "" {
		c.dopts.clientAppl = DefaultClientAppl
	}

	if c.dopts.retries <= 0 {
		c.dopts.retries = DefaultRetries
	}

	if c.dopts.timeout == 0 {
		c.dopts.timeout = DefaultTimeout
	}
	c.c.Timeout = c.dopts.timeout

	if c.dopts.retryInterval == 0 {
		c.dopts.retryInterval = DefaultRetryInterval
	}

	if len(c.dopts.proxyUrls) > 0 {
		proxies := c.dopts.proxyUrls
		c.c.Transport = &http.Transport{
			Proxy: func(req *http.Request) (*url.URL, error) {
				raw, ok := proxies[req.URL.Scheme]
				if !ok {
					return nil, nil
				}
				return url.Parse(raw)
			},
		}
	}

	// Lastly, obtain access token
	if c.dopts.accessToken != "" {
		c.accessToken = c.dopts.accessToken
		c.userId = c.dopts.userId
		return c, nil
	}
	if err := c.obtainToken(context.Background()); err != nil {
		return nil, err
	}
	return c, nil
}

// loginReq is an internal type for making obtainToken requests
type loginReq struct {
	Token    string `json:"apiToken,omitempty"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
}

type loginResp struct {
	Created string  `json:"created"`
	UserId  string  `json:"userId"`
	Id      string  `json:"id"`
	Ttl     float64 `json:"ttl"`
}

func (c *Conn) obtainToken(ctx context.Context) error {
	// Construct request
	loginReq := loginReq{}
	switch {
	case c.dopts.apiToken != "":
		loginReq.Token = c.dopts.apiToken
	case c.dopts.email != "" && c.dopts.password != "":
		loginReq.Email = c.dopts.email
		loginReq.Password = c.dopts.password
	default:
		return newCredentialsError("invalid credentials, please provide either API token or user email and password", nil)
	}

	// Encode JSON request body
	var b bytes.Buffer
	err := json.NewEncoder(&b).Encode(loginReq)
	if err != nil {
		return err
	}

	// Construct request URL
	url := c.dopts.url + "/users/login"
	if loginReq.Token != "" {
		url += "WithToken"
	}

	// Create request and execute it
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &b)
	if err != nil {
		return &APIError{UserMsg: "error during login", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(clientApplicationHeader, c.dopts.clientAppl)

	resp, err := c.c.Do(req)
	if err != nil {
		return &APIError{UserMsg: "error during login: connection error", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{UserMsg: "error during login", Err: err}
	}

	// Handle response
	if resp.StatusCode == http.StatusUnauthorized {
		// The 401 body can carry a descriptive message, e.g. when the
		// platform license has not been accepted yet.
		var e struct {
			Err *httpErr `json:"error,omitempty"`
		}
		if err := json.Unmarshal(data, &e); err == nil && e.Err != nil && e.Err.Message != "" {
			return newCredentialsError("error during login: "+e.Err.Message, nil)
		}
		return newCredentialsError("invalid token", nil)
	}
	if resp.StatusCode != http.StatusOK {
		return &APIError{
			UserMsg: fmt.Sprintf("error during login: got a %d code response to %s", resp.StatusCode, url),
			DevMsg:  string(data),
		}
	}

	var r loginResp
	if err := json.Unmarshal(data, &r); err != nil {
		return &APIError{UserMsg: "error during login", DevMsg: string(data), Err: err}
	}
	if r.Id == "" {
		return newCredentialsError("invalid token", nil)
	}

	// Set fields
	c.mu.Lock()
	c.accessToken = r.Id
	c.userId = r.UserId
	c.mu.Unlock()

	logger.WithField("userId", r.UserId).Debug("obtained access token")
	return nil
}

// CheckCredentials reports whether the connection holds an access token.
func (c *Conn) CheckCredentials() bool {
	return c.token() != ""
}

// AccessToken returns the current access token, e.g. for persisting it
// and reconnecting later via WithAccessInfo.
func (c *Conn) AccessToken() string {
	return c.token()
}

// UserID returns the platform user id associated with the access token.
func (c *Conn) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userId
}

func (c *Conn) token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken
}

func (c *Conn) canRelogin() bool {
	return c.dopts.apiToken != "" || (c.dopts.email != "" && c.dopts.password != "")
}

// request runs an API call, replaying it up to the configured number of
// attempts, and returns the raw body of the first good response. An expired
// access token is refreshed at most once per call.
// Note: This shouldn't be used by clients but it is here to expose a little lower API if they want to
func (c *Conn) request(ctx context.Context, method, path string, params url.Values, body []byte, withToken bool) ([]byte, error) {
	relogin := true
	for attempt := 0; attempt < c.dopts.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, &APIError{UserMsg: "request cancelled", Err: ctx.Err()}
			case <-time.After(c.dopts.retryInterval):
			}
		}

		resp, data, err := c.doOnce(ctx, method, path, params, body, withToken)
		if err != nil {
			return nil, err
		}

		// Check for 401 and get new token
		if resp.StatusCode == http.StatusUnauthorized && withToken && relogin && c.canRelogin() {
			relogin = false
			logger.Debug("access token expired, logging in again")
			if err := c.obtainToken(ctx); err != nil {
				return nil, err
			}
			resp, data, err = c.doOnce(ctx, method, path, params, body, withToken)
			if err != nil {
				return nil, err
			}
		}

		good, err := c.responseGood(resp, data)
		if err != nil {
			return nil, err
		}
		if good {
			return data, nil
		}
	}
	return nil, &APIError{UserMsg: "Failed to get proper response from backend."}
}

// doOnce builds and performs a single HTTP request.
func (c *Conn) doOnce(ctx context.Context, method, path string, params url.Values, body []byte, withToken bool) (*http.Response, []byte, error) {
	q := url.Values{}
	if withToken {
		q.Set("access_token", c.token())
	}
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}

	u := c.dopts.url + "/" + path
	if enc := q.Encode(); enc != "" {
		u += "?" + enc
	}

	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, r)
	if err != nil {
		return nil, nil, &APIError{UserMsg: "could not build request", Err: err}
	}
	req.Header.Set(clientApplicationHeader, c.dopts.clientAppl)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	logger.WithFields(logrus.Fields{
		"method": method,
		"url":    redactToken(u),
	}).Debug("api request")

	resp, err := c.c.Do(req)
	if err != nil {
		return nil, nil, &APIError{UserMsg: "failed to reach the backend", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, &APIError{UserMsg: "failed reading backend response", Err: err}
	}
	return resp, data, nil
}

// responseGood decides whether a response completes the call, fails it, or
// counts as a failed attempt to be retried.
func (c *Conn) responseGood(resp *http.Response, data []byte) (bool, error) {
	reqURL := redactToken(resp.Request.URL.String())

	if resp.StatusCode != http.StatusOK {
		logger.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"url":    reqURL,
		}).Warn("got a non 200 code response")

		if noRetryStatuses[resp.StatusCode] {
			return false, &APIError{
				UserMsg: fmt.Sprintf("Got a %d code response to %s", resp.StatusCode, reqURL),
				DevMsg:  string(data),
			}
		}
		if m := registerSizeRe.FindSubmatch(data); m != nil {
			limit, _ := strconv.Atoi(string(m[1]))
			return false, newRegisterSizeError(limit)
		}
		return false, nil
	}

	// The version endpoint answers with a bare text body.
	ct := resp.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "text/html") || strings.HasPrefix(ct, "text/plain") {
		return true, nil
	}

	if !json.Valid(data) {
		return false, &APIError{
			UserMsg: "device server returned unexpected http response",
			DevMsg:  string(data),
		}
	}

	// A 200 response can still carry {"error": {"status": 400}} in its body.
	// Those count as failed attempts.
	var e struct {
		Err *httpErr `json:"error,omitempty"`
	}
	if err := json.Unmarshal(data, &e); err == nil && e.Err != nil && e.Err.Status == http.StatusBadRequest {
		logger.WithField("url", reqURL).Warn("got a 400 code JSON response")
		return false, nil
	}
	return true, nil
}

// post is a convenience wrapper around a POST request
func (c *Conn) post(ctx context.Context, path string, params url.Values, body any) ([]byte, error) {
	var data []byte
	if body != nil {
		var err error
		data, err = json.Marshal(body)
		if err != nil {
			return nil, &APIError{UserMsg: "could not encode request body", Err: err}
		}
	}
	return c.request(ctx, http.MethodPost, path, params, data, true)
}

// get is a convenience wrapper around a GET request
func (c *Conn) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	return c.request(ctx, http.MethodGet, path, params, nil, true)
}

// getNoAuth fetches public endpoints that must be queried without an access token
func (c *Conn) getNoAuth(ctx context.Context, path string, params url.Values) ([]byte, error) {
	return c.request(ctx, http.MethodGet, path, params, nil, false)
}

// decode is simply a helper for decoding json
func (c *Conn) decode(data []byte, i interface{}) error {
	if err := json.Unmarshal(data, i); err != nil {
		return &APIError{
			UserMsg: "device server returned unexpected http response",
			DevMsg:  string(data),
			Err:     err,
		}
	}
	return nil
}
