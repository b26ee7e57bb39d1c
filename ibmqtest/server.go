// Package ibmqtest provides an in-memory stand-in for the IBM QX Platform
// API, for exercising clients against realistic responses without touching
// the real service.
package ibmqtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const (
	// DefaultToken is the api token the server accepts
	DefaultToken = "qx-test-token"
	// DefaultUserID identifies the test account
	DefaultUserID = "test-user-0000"
	// DefaultVersion is the api version the server reports
	DefaultVersion = "4.3.2"
)

// DefaultJobScript is the status sequence a submitted job walks through,
// advancing one step per status read.
var DefaultJobScript = []string{"CREATING", "VALIDATING", "RUNNING", "COMPLETED"}

// JobDoc is a job as the server stores and serves it
type JobDoc struct {
	Id            string                 `json:"id"`
	Kind          string                 `json:"kind,omitempty"`
	Status        string                 `json:"status"`
	CreationDate  string                 `json:"creationDate"`
	Deleted       bool                   `json:"deleted"`
	UserId        string                 `json:"userId,omitempty"`
	Backend       map[string]string      `json:"backend,omitempty"`
	Shots         int                    `json:"shots,omitempty"`
	QObject       map[string]interface{} `json:"qObject,omitempty"`
	QObjectResult map[string]interface{} `json:"qObjectResult,omitempty"`
	InfoQueue     map[string]interface{} `json:"infoQueue,omitempty"`
}

// CodeDoc is a stored code on the legacy pipeline
type CodeDoc struct {
	Id           string `json:"id"`
	Name         string `json:"name,omitempty"`
	Qasm         string `json:"qasm,omitempty"`
	CodeType     string `json:"codeType,omitempty"`
	UserId       string `json:"userId,omitempty"`
	CreationDate string `json:"creationDate,omitempty"`
	Active       bool   `json:"active"`
}

// ExecutionDoc is a legacy execution document
type ExecutionDoc struct {
	Id     string                 `json:"id"`
	CodeId string                 `json:"codeId,omitempty"`
	Status map[string]string      `json:"status"`
	Result map[string]interface{} `json:"result,omitempty"`

	script []string
	pos    int
	seed   *float64
}

// Server fakes the QX Platform API on a local listener
type Server struct {
	Server *httptest.Server

	apiToken   string
	userID     string
	version    string
	jobScript  []string
	execScript []string

	mu          sync.Mutex
	accessToken string
	devices     []Device
	queues      map[string]*QueueInfo
	jobs        map[string]*JobDoc
	jobOrder    []string
	jobPos      map[string]int
	executions  map[string]*ExecutionDoc
	codes       map[string]*CodeDoc
	credits     CreditInfo

	failNext    int
	failStatus  int
	errBodyNext int

	loginCount   atomic.Int32
	requestCount atomic.Int32
}

// Option configures the server before it starts listening
type Option func(*Server)

// WithToken changes the api token the server accepts
func WithToken(token string) Option {
	return func(s *Server) {
		s.apiToken = token
	}
}

// WithVersion changes the api version the server reports
func WithVersion(version string) Option {
	return func(s *Server) {
		s.version = version
	}
}

// WithDevices replaces the seeded device table
func WithDevices(devices ...Device) Option {
	return func(s *Server) {
		s.devices = devices
		s.queues = defaultQueues(devices)
	}
}

// WithJobScript replaces the status sequence submitted jobs walk through
func WithJobScript(statuses ...string) Option {
	return func(s *Server) {
		s.jobScript = statuses
	}
}

// WithExecutionScript makes legacy executions walk the given states instead
// of finishing right away, advancing one step per read.
func WithExecutionScript(statuses ...string) Option {
	return func(s *Server) {
		s.execScript = statuses
	}
}

// NewServer starts a fake QX Platform. Callers own the returned server and
// must Close it.
func NewServer(options ...Option) *Server {
	s := &Server{
		apiToken:   DefaultToken,
		userID:     DefaultUserID,
		version:    DefaultVersion,
		jobScript:  DefaultJobScript,
		execScript: []string{"DONE"},
		devices:    DefaultDevices(),
		jobs:       make(map[string]*JobDoc),
		jobPos:     make(map[string]int),
		executions: make(map[string]*ExecutionDoc),
		codes:      make(map[string]*CodeDoc),
		credits:    CreditInfo{MaxUserType: 150, Remaining: 142},
	}
	for _, option := range options {
		option(s)
	}
	if s.queues == nil {
		s.queues = defaultQueues(s.devices)
	}

	s.Server = httptest.NewServer(s.router())
	return s
}

// Close shuts the listener down
func (s *Server) Close() {
	if s == nil || s.Server == nil {
		return
	}
	s.Server.Close()
}

// URL returns the base url clients should dial
func (s *Server) URL() string {
	return s.Server.URL + "/api"
}

// Token returns the api token the server accepts
func (s *Server) Token() string {
	return s.apiToken
}

// UserID returns the user id issued on login
func (s *Server) UserID() string {
	return s.userID
}

// LoginCount reports how many logins the server has seen
func (s *Server) LoginCount() int {
	return int(s.loginCount.Load())
}

// RequestCount reports how many api calls the server has seen, logins
// excluded
func (s *Server) RequestCount() int {
	return int(s.requestCount.Load())
}

// ExpireToken invalidates the current access token, forcing clients to log
// in again on their next call.
func (s *Server) ExpireToken() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = ""
}

// FailNext makes the next n api calls answer with the given http status
func (s *Server) FailNext(n, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = n
	s.failStatus = status
}

// ErrorBodyNext makes the next n api calls answer 200 with a LoopBack
// error body, which clients treat as a failed attempt.
func (s *Server) ErrorBodyNext(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errBodyNext = n
}

// Job returns a copy of the stored job document, or nil
func (s *Server) Job(id string) *JobDoc {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil
	}
	copied := *job
	return &copied
}

// SetQueue overrides the queue status of a device
func (s *Server) SetQueue(device string, queue QueueInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := queue
	s.queues[device] = &q
}

func (s *Server) router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.inject)

		r.Post("/users/loginWithToken", s.handleLoginWithToken)
		r.Post("/users/login", s.handleLogin)
		r.Get("/version", s.handleVersion)

		r.Get("/Backends/v/1", s.auth(s.handleDevices))
		r.Get("/Backends/{backend}/queue/status", s.handleQueueStatus)
		r.Get("/Backends/{backend}/properties", s.auth(s.handleProperties))
		r.Get("/Backends/{backend}/calibration", s.auth(s.handleCalibration))
		r.Get("/Backends/{backend}/parameters", s.auth(s.handleParameters))

		r.Post("/Jobs", s.auth(s.handleSubmitJob))
		r.Get("/Jobs", s.auth(s.handleListJobs))
		r.Get("/Jobs/status", s.auth(s.handleListJobStatuses))
		r.Get("/Jobs/{jobID}", s.auth(s.handleGetJob))
		r.Get("/Jobs/{jobID}/status", s.auth(s.handleJobStatus))
		r.Post("/Jobs/{jobID}/cancel", s.auth(s.handleCancelJob))

		r.Get("/users/{userID}", s.auth(s.handleUser))
		r.Get("/users/{userID}/codes/latest", s.auth(s.handleLastCodes))
		r.Post("/codes/execute", s.auth(s.handleExecute))
		r.Get("/Executions/{execID}", s.auth(s.handleExecution))
		r.Get("/Codes/{codeID}", s.auth(s.handleCode))
		r.Get("/Codes/{codeID}/export/png/url", s.auth(s.handleCodeImage))

		// the network scoped job routes spell jobs in lowercase, as the
		// real service did
		r.Route("/Network/{hub}/Groups/{group}/Projects/{project}", func(r chi.Router) {
			r.Get("/devices/v/1", s.auth(s.handleDevices))
			r.Post("/jobs", s.auth(s.handleSubmitJob))
			r.Get("/jobs", s.auth(s.handleListJobs))
			r.Get("/jobs/status", s.auth(s.handleListJobStatuses))
			r.Get("/jobs/{jobID}", s.auth(s.handleGetJob))
			r.Get("/jobs/{jobID}/status", s.auth(s.handleJobStatus))
			r.Post("/jobs/{jobID}/cancel", s.auth(s.handleCancelJob))
		})
		r.Get("/Network/{hub}/devices/{backend}/properties", s.auth(s.handleProperties))
		r.Get("/Network/{hub}/devices/{backend}/calibration", s.auth(s.handleCalibration))
		r.Get("/Network/{hub}/devices/{backend}/parameters", s.auth(s.handleParameters))
	})
	return r
}

// inject serves the configured canned failures before real handlers run.
// Login endpoints are exempt so clients can always obtain a token.
func (s *Server) inject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/users/login") {
			next.ServeHTTP(w, r)
			return
		}
		s.requestCount.Add(1)

		s.mu.Lock()
		if s.failNext > 0 {
			s.failNext--
			status := s.failStatus
			s.mu.Unlock()
			writeErr(w, status, "injected failure")
			return
		}
		if s.errBodyNext > 0 {
			s.errBodyNext--
			s.mu.Unlock()
			writeErr(w, http.StatusOK, "injected error body")
			return
		}
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

// auth enforces the access_token query parameter
func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("access_token")

		s.mu.Lock()
		valid := s.accessToken != "" && token == s.accessToken
		s.mu.Unlock()

		if !valid {
			writeErr(w, http.StatusUnauthorized, "Authorization Required")
			return
		}
		next(w, r)
	}
}

func (s *Server) issueToken() string {
	token := uuid.NewString()
	s.mu.Lock()
	s.accessToken = token
	s.mu.Unlock()
	return token
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr answers with a LoopBack style error body. A 200 status yields
// the error-in-body shape the platform is known for.
func writeErr(w http.ResponseWriter, status int, message string) {
	errStatus := status
	if status == http.StatusOK {
		errStatus = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"status":  errStatus,
			"code":    "GENERIC_ERROR",
			"message": message,
		},
	})
}
