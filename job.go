package ibmq

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultJobsLimit is how many jobs a listing returns when no limit is set
	DefaultJobsLimit = 10
	// DefaultWaitInterval is the default pause between job status polls
	DefaultWaitInterval = 5 * time.Second
)

// JobStatus is the lifecycle state of a job on the platform
type JobStatus string

const (
	JobStatusCreating           JobStatus = "CREATING"
	JobStatusCreated            JobStatus = "CREATED"
	JobStatusValidating         JobStatus = "VALIDATING"
	JobStatusValidated          JobStatus = "VALIDATED"
	JobStatusRunning            JobStatus = "RUNNING"
	JobStatusCompleted          JobStatus = "COMPLETED"
	JobStatusCancelled          JobStatus = "CANCELLED"
	JobStatusErrorCreatingJob   JobStatus = "ERROR_CREATING_JOB"
	JobStatusErrorValidatingJob JobStatus = "ERROR_VALIDATING_JOB"
	JobStatusErrorRunningJob    JobStatus = "ERROR_RUNNING_JOB"
)

// Terminal reports whether the status is final and the job will not move again
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusCancelled,
		JobStatusErrorCreatingJob, JobStatusErrorValidatingJob, JobStatusErrorRunningJob:
		return true
	}
	return false
}

// Failed reports whether the status is one of the error states
func (s JobStatus) Failed() bool {
	switch s {
	case JobStatusErrorCreatingJob, JobStatusErrorValidatingJob, JobStatusErrorRunningJob:
		return true
	}
	return false
}

// JobBackend names the backend a job runs on
type JobBackend struct {
	Id   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// InfoQueue reports the queue position of a pending job
type InfoQueue struct {
	Status                string `json:"status,omitempty"`
	Position              int64  `json:"position,omitempty"`
	EstimatedStartTime    string `json:"estimatedStartTime,omitempty"`
	EstimatedCompleteTime string `json:"estimatedCompleteTime,omitempty"`
}

// JobQasm is one circuit of an old style qasms job
type JobQasm struct {
	Qasm        string                 `json:"qasm,omitempty"`
	Status      string                 `json:"status,omitempty"`
	ExecutionId string                 `json:"executionId,omitempty"`
	Result      map[string]interface{} `json:"result,omitempty"`
}

// Job represents a submitted execution on a backend, as the platform
// stores it
type Job struct {
	Id            string                 `json:"id,omitempty"`
	Kind          string                 `json:"kind,omitempty"`
	Status        JobStatus              `json:"status,omitempty"`
	CreationDate  string                 `json:"creationDate,omitempty"`
	EndDate       string                 `json:"endDate,omitempty"`
	Deleted       bool                   `json:"deleted,omitempty"`
	UserId        string                 `json:"userId,omitempty"`
	TimePerStep   map[string]string      `json:"timePerStep,omitempty"`
	InfoQueue     *InfoQueue             `json:"infoQueue,omitempty"`
	Backend       *JobBackend            `json:"backend,omitempty"`
	Shots         int                    `json:"shots,omitempty"`
	QObject       *Qobj                  `json:"qObject,omitempty"`
	QObjectResult map[string]interface{} `json:"qObjectResult,omitempty"`
	Qasms         []JobQasm              `json:"qasms,omitempty"`
}

type jobResp struct {
	Err *httpErr `json:"error,omitempty"`
	Job
}

// jobSubmitReq is the wire form of a job submission
type jobSubmitReq struct {
	QObject *Qobj      `json:"qObject"`
	Backend JobBackend `json:"backend"`
	HPC     *HPCParams `json:"hpc,omitempty"`
}

// RunJob submits a Qobj for execution and returns the stored job document.
// Fresh jobs typically come back as CREATING with no result attached yet.
func (c *Client) RunJob(ctx context.Context, qobj *Qobj, options ...ClientOption) (*Job, error) {
	opts := c.callOpts(options...)

	backendType, err := c.checkBackend(ctx, opts.backend, "job")
	if err != nil {
		return nil, err
	}

	req := jobSubmitReq{
		QObject: qobj,
		Backend: JobBackend{Name: backendType},
		HPC:     opts.hpc,
	}

	data, err := c.conn.post(ctx, opts.jobsPath(), nil, req)
	if err != nil {
		return nil, err
	}

	var r jobResp
	if err := c.conn.decode(data, &r); err != nil {
		return nil, err
	}
	if r.Err != nil {
		return nil, r.Err.asAPIError()
	}

	logger.WithFields(logrus.Fields{
		"job":     r.Job.Id,
		"backend": backendType,
	}).Debug("submitted job")
	return &r.Job, nil
}

// FieldFilter selects which fields of a job document the platform returns
type FieldFilter func(map[string]bool)

// IncludeFields keeps only the given fields of a job document
func IncludeFields(fields ...string) FieldFilter {
	return func(m map[string]bool) {
		for _, f := range fields {
			m[f] = true
		}
	}
}

// ExcludeFields drops the given fields from a job document
func ExcludeFields(fields ...string) FieldFilter {
	return func(m map[string]bool) {
		for _, f := range fields {
			m[f] = false
		}
	}
}

// GetJob retrieves a job document by its id
func (c *Client) GetJob(ctx context.Context, jobId string, filters ...FieldFilter) (*Job, error) {
	if jobId == "" {
		return nil, &APIError{UserMsg: "job id not specified"}
	}

	fields := make(map[string]bool)
	for _, f := range filters {
		f(fields)
	}

	params := url.Values{}
	if len(fields) > 0 {
		filter, err := json.Marshal(map[string]interface{}{"fields": fields})
		if err != nil {
			return nil, err
		}
		params.Set("filter", string(filter))
	}

	path := fmt.Sprintf("%s/%s", c.opts.jobsPath(), jobId)
	data, err := c.conn.get(ctx, path, params)
	if err != nil {
		return nil, err
	}

	var r jobResp
	if err := c.conn.decode(data, &r); err != nil {
		return nil, err
	}
	if r.Err != nil {
		return nil, r.Err.asAPIError()
	}
	return &r.Job, nil
}

// JobsFilter narrows a job listing. The zero value lists the ten newest jobs.
type JobsFilter struct {
	// Limit caps how many jobs come back. Zero means ten.
	Limit int
	// Skip offsets into the listing for paging
	Skip int
	// Backend keeps only jobs ran on the named backend
	Backend string
	// OnlyCompleted keeps only jobs that reached COMPLETED
	OnlyCompleted bool
	// Where, when set, replaces the Backend and OnlyCompleted conditions
	// with a raw where clause
	Where map[string]interface{}
}

func (f JobsFilter) encode() (string, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultJobsLimit
	}

	where := map[string]interface{}{}
	switch {
	case f.Where != nil:
		where = f.Where
	default:
		if f.Backend != "" {
			where["backend.name"] = f.Backend
		}
		if f.OnlyCompleted {
			where["status"] = string(JobStatusCompleted)
		}
	}

	query := map[string]interface{}{
		"order": "creationDate DESC",
		"limit": limit,
		"skip":  f.Skip,
		"where": where,
	}

	data, err := json.Marshal(query)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (c *Client) listJobs(ctx context.Context, path string, filter JobsFilter) ([]*Job, error) {
	encoded, err := filter.encode()
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("filter", encoded)

	data, err := c.conn.get(ctx, path, params)
	if err != nil {
		return nil, err
	}

	var jobs []*Job
	if err := c.conn.decode(data, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// GetJobs lists the jobs submitted by the user, newest first
func (c *Client) GetJobs(ctx context.Context, filter JobsFilter) ([]*Job, error) {
	return c.listJobs(ctx, c.opts.jobsPath(), filter)
}

// GetStatusJobs lists only the status portion of the users jobs, which is
// considerably lighter than the full documents
func (c *Client) GetStatusJobs(ctx context.Context, filter JobsFilter) ([]*Job, error) {
	return c.listJobs(ctx, c.opts.jobsPath()+"/status", filter)
}

// GetStatusJob retrieves just the status of a single job
func (c *Client) GetStatusJob(ctx context.Context, jobId string) (*Job, error) {
	if jobId == "" {
		return nil, &APIError{UserMsg: "job id not specified"}
	}

	path := fmt.Sprintf("%s/%s/status", c.opts.jobsPath(), jobId)
	data, err := c.conn.get(ctx, path, nil)
	if err != nil {
		return nil, err
	}

	var r jobResp
	if err := c.conn.decode(data, &r); err != nil {
		return nil, err
	}
	if r.Err != nil {
		return nil, r.Err.asAPIError()
	}
	return &r.Job, nil
}

// CancelJob asks the platform to cancel a queued or running job
func (c *Client) CancelJob(ctx context.Context, jobId string) error {
	if jobId == "" {
		return &APIError{UserMsg: "job id not specified"}
	}

	path := fmt.Sprintf("%s/%s/cancel", c.opts.jobsPath(), jobId)
	data, err := c.conn.post(ctx, path, nil, nil)
	if err != nil {
		return err
	}

	var r jobResp
	if err := c.conn.decode(data, &r); err != nil {
		return err
	}
	if r.Err != nil {
		return r.Err.asAPIError()
	}
	return nil
}

// WaitForJob polls the job status until it reaches a terminal state or ctx
// expires, then returns the full job document. Deadlines and cancellation
// belong to the caller via ctx.
func (c *Client) WaitForJob(ctx context.Context, jobId string, interval time.Duration) (*Job, error) {
	if interval <= 0 {
		interval = DefaultWaitInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		job, err := c.GetStatusJob(ctx, jobId)
		if err != nil {
			return nil, err
		}
		if job.Status.Terminal() {
			// pull the full document so results ride along
			return c.GetJob(ctx, jobId)
		}

		logger.WithFields(logrus.Fields{
			"job":    jobId,
			"status": job.Status,
		}).Debug("waiting on job")

		select {
		case <-ctx.Done():
			return job, &APIError{
				UserMsg: fmt.Sprintf("gave up waiting on job %s", jobId),
				Err:     ctx.Err(),
			}
		case <-ticker.C:
		}
	}
}
