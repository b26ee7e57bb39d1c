package ibmq

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultNameFmt is the default experiment name format used unless
	// specified otherwise
	DefaultNameFmt = "Experiment #%d%d%d%d%d%d"
	// MaxTimeout is the maximum time spent waiting on an experiment result
	MaxTimeout = 300 * time.Second
)

var experimentPollInterval = 2 * time.Second

// Legacy execution states
const (
	execDone    = "DONE"
	execWorking = "WORKING_IN_PROGRESS"
	execError   = "ERROR"
)

// Measure is the measurement histogram of an experiment
type Measure struct {
	Qubits []int     `json:"qubits,omitempty"`
	Labels []string  `json:"labels,omitempty"`
	Values []float64 `json:"values,omitempty"`
}

// ExpResultData is the extracted result of a legacy execution
type ExpResultData struct {
	ExtraInfo struct {
		Seed float64 `json:"seed,omitempty"`
	} `json:"additionalData,omitempty"`
	Measure Measure     `json:"measure,omitempty"`
	Bloch   interface{} `json:"bloch,omitempty"`
}

// ExpResult represents the result info returned by RunExperiment
type ExpResult struct {
	Status    string        `json:"status,omitempty"`
	Id        string        `json:"idExecution,omitempty"`
	CodeId    string        `json:"idCode,omitempty"`
	InfoQueue *InfoQueue    `json:"infoQueue,omitempty"`
	Result    ExpResultData `json:"result,omitempty"`
}

// expResp is the wire form of a legacy execution result
type expResp struct {
	Date string `json:"date,omitempty"`
	Data struct {
		P              Measure `json:"p,omitempty"`
		AdditionalData struct {
			Seed float64 `json:"seed,omitempty"`
		} `json:"additionalData,omitempty"`
		Qasm            string      `json:"qasm,omitempty"`
		SerialNumDevice string      `json:"serialNumberDevice,omitempty"`
		Time            float64     `json:"time,omitempty"`
		CregLabels      string      `json:"creg_labels,omitempty"`
		Bloch           interface{} `json:"bloch,omitempty"`
	} `json:"data,omitempty"`
}

func (r expResp) toResultData() ExpResultData {
	var data ExpResultData
	data.Measure = r.Data.P
	data.ExtraInfo.Seed = r.Data.AdditionalData.Seed
	data.Bloch = r.Data.Bloch
	return data
}

// execResp is the wire form of a legacy execution document
type execResp struct {
	Err *httpErr `json:"error,omitempty"`

	Id        string     `json:"id,omitempty"`
	CodeId    string     `json:"codeId,omitempty"`
	InfoQueue *InfoQueue `json:"infoQueue,omitempty"`
	Status    struct {
		Id string `json:"id,omitempty"`
	} `json:"status,omitempty"`
	Result expResp `json:"result,omitempty"`
}

// RunExperiment runs a single QASM 2.0 circuit over the legacy execution
// pipeline and waits for its result. The wait is bounded by ctx, or by
// MaxTimeout when ctx carries no deadline.
func (c *Client) RunExperiment(ctx context.Context, qasm string, options ...ClientOption) (*ExpResult, error) {
	opts := c.callOpts(options...)

	// Set defaults
	if opts.shots == 0 {
		opts.shots = DefaultShots
	}
	if opts.shots > MaxShots {
		logger.Warnf("shots were more than the maximum, %d, so they were set to be the maximum shots, %d", opts.shots, MaxShots)
		opts.shots = MaxShots
	}
	if opts.name == "" {
		now := time.Now()
		opts.name = fmt.Sprintf(DefaultNameFmt, now.Year(), now.Month(), now.Day(), now.Hour(), now.Minute(), now.Second())
	}

	// Check for a seed value
	if opts.seed > MaxSeed {
		return nil, &APIError{UserMsg: fmt.Sprintf("invalid seed (%d), seeds can have a maximum length of 10 digits", opts.seed)}
	}

	// Check backend
	backendType, err := c.checkBackend(ctx, opts.backend, "experiment")
	if err != nil {
		return nil, err
	}
	if opts.seed > 0 && backendType != "sim_trivial_2" {
		return nil, &APIError{UserMsg: "seeds can only be used with simulator backends"}
	}

	// Tweak QASM
	qasm = strings.Replace(qasm, "IBMQASM 2.0;", "", -1)
	qasm = strings.Replace(qasm, "OPENQASM 2.0;", "", -1)

	params := url.Values{}
	params.Set("shots", strconv.Itoa(opts.shots))
	params.Set("deviceRunType", backendType)
	if opts.seed > 0 {
		params.Set("seed", strconv.FormatInt(opts.seed, 10))
	}

	body := map[string]string{
		"qasm":     qasm,
		"codeType": "QASM2",
		"name":     opts.name,
	}

	data, err := c.conn.post(ctx, "codes/execute", params, body)
	if err != nil {
		return nil, err
	}

	var r execResp
	if err := c.conn.decode(data, &r); err != nil {
		return nil, err
	}
	if r.Err != nil {
		return nil, r.Err.asAPIError()
	}

	result := &ExpResult{
		Status:    r.Status.Id,
		Id:        r.Id,
		CodeId:    r.CodeId,
		InfoQueue: r.InfoQueue,
	}
	if r.Status.Id == execDone {
		result.Result = r.Result.toResultData()
		return result, nil
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, MaxTimeout)
		defer cancel()
	}
	return c.waitForExecution(ctx, result)
}

// waitForExecution polls an execution until it leaves the work queue
func (c *Client) waitForExecution(ctx context.Context, result *ExpResult) (*ExpResult, error) {
	ticker := time.NewTicker(experimentPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return result, &APIError{
				UserMsg: fmt.Sprintf("gave up waiting on execution %s", result.Id),
				Err:     ctx.Err(),
			}
		case <-ticker.C:
		}

		raw, err := c.execution(ctx, result.Id)
		if err != nil {
			return result, err
		}

		result.Status = raw.Status.Id
		result.InfoQueue = raw.InfoQueue

		switch raw.Status.Id {
		case execDone:
			result.Result = raw.Result.toResultData()
			return result, nil
		case execError:
			return result, &APIError{UserMsg: fmt.Sprintf("execution %s finished with an error", result.Id)}
		}
	}
}

// Execution is a single run of a code on the legacy execution pipeline
type Execution struct {
	Id        string        `json:"id,omitempty"`
	CodeId    string        `json:"codeId,omitempty"`
	Status    string        `json:"status,omitempty"`
	InfoQueue *InfoQueue    `json:"infoQueue,omitempty"`
	Result    ExpResultData `json:"result,omitempty"`
	Code      *Code         `json:"code,omitempty"`
}

func (c *Client) execution(ctx context.Context, executionId string) (*execResp, error) {
	if executionId == "" {
		return nil, &APIError{UserMsg: "execution id not specified"}
	}

	data, err := c.conn.get(ctx, fmt.Sprintf("Executions/%s", executionId), nil)
	if err != nil {
		return nil, err
	}

	var r execResp
	if err := c.conn.decode(data, &r); err != nil {
		return nil, err
	}
	if r.Err != nil {
		return nil, r.Err.asAPIError()
	}
	return &r, nil
}

// GetExecution retrieves an execution by its id, along with the code that
// produced it
func (c *Client) GetExecution(ctx context.Context, executionId string) (*Execution, error) {
	raw, err := c.execution(ctx, executionId)
	if err != nil {
		return nil, err
	}

	e := &Execution{
		Id:        raw.Id,
		CodeId:    raw.CodeId,
		Status:    raw.Status.Id,
		InfoQueue: raw.InfoQueue,
		Result:    raw.Result.toResultData(),
	}
	if raw.CodeId != "" {
		code, err := c.GetCode(ctx, raw.CodeId)
		if err != nil {
			return nil, err
		}
		e.Code = &code
	}
	return e, nil
}

// GetResultFromExecution retrieves just the result portion of an execution
func (c *Client) GetResultFromExecution(ctx context.Context, executionId string) (ExpResultData, error) {
	raw, err := c.execution(ctx, executionId)
	if err != nil {
		return ExpResultData{}, err
	}
	return raw.Result.toResultData(), nil
}
