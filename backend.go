package ibmq

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// OldBackendNames is a map of all the recognized old backend names
var OldBackendNames = map[string]string{
	"ibmqx5qv2":            "real",
	"ibmqx2":               "real",
	"qx5qv2":               "real",
	"qx5q":                 "real",
	"real":                 "real",
	"ibmqx3":               "ibmqx3",
	"simulator":            "sim_trivial_2",
	"sim_trivial_2":        "sim_trivial_2",
	"ibmqx_qasm_simulator": "sim_trivial_2",
	"ibmq_qasm_simulator":  "sim_trivial_2",
}

// Endpoints that predate the device schema and still speak old backend names
var legacyEndpoints = map[string]bool{
	"experiment":  true,
	"calibration": true,
	"parameters":  true,
}

// BackendGate describes one gate of a backend configuration
type BackendGate struct {
	Name       string      `json:"name,omitempty"`
	Parameters []string    `json:"parameters,omitempty"`
	QasmDef    string      `json:"qasm_def,omitempty"`
	CouplingMap interface{} `json:"coupling_map,omitempty"`
}

// Backend represents a backend available to be used
type Backend struct {
	Name            string        `json:"backend_name,omitempty"`
	Version         string        `json:"backend_version,omitempty"`
	NQubits         int64         `json:"n_qubits,omitempty"`
	Simulator       bool          `json:"simulator,omitempty"`
	Local           bool          `json:"local,omitempty"`
	Conditional     bool          `json:"conditional,omitempty"`
	OpenPulse       bool          `json:"open_pulse,omitempty"`
	Memory          bool          `json:"memory,omitempty"`
	MaxShots        int64         `json:"max_shots,omitempty"`
	MaxExperiments  int64         `json:"max_experiments,omitempty"`
	NRegisters      int64         `json:"n_registers,omitempty"`
	BasisGates      []string      `json:"basis_gates,omitempty"`
	Gates           []BackendGate `json:"gates,omitempty"`
	CouplingMap     interface{}   `json:"coupling_map,omitempty"` // Note: this is either 'all-to-all' or [][]int
	Description     string        `json:"description,omitempty"`
	OnlineDate      string        `json:"online_date,omitempty"`
	SampleName      string        `json:"sample_name,omitempty"`
	URL             string        `json:"url,omitempty"`
	AllowQObject    bool          `json:"allow_q_object,omitempty"`
	CreditsRequired bool          `json:"credits_required,omitempty"`
}

// Backends is an alias for a map of backend name to Backend data structure
type Backends map[string]*Backend

// Sims returns all the simulator backends out of this set of backends
func (bs Backends) Sims() (simBs []*Backend) {
	for _, b := range bs {
		if b.Simulator {
			simBs = append(simBs, b)
		}
	}
	return simBs
}

// AvailableBackends returns all the available backends that can be used,
// keyed by name. The result also refreshes the client backend cache.
func (c *Client) AvailableBackends(ctx context.Context, options ...ClientOption) (Backends, error) {
	opts := c.callOpts(options...)

	path := "Backends/v/1"
	if opts.hasHubInfo() {
		path = opts.networkPath("devices/v/1")
	}

	data, err := c.conn.get(ctx, path, nil)
	if err != nil {
		return nil, err
	}

	var list []*Backend
	if err := c.conn.decode(data, &list); err != nil {
		return nil, err
	}

	backends := make(Backends, len(list))
	for _, b := range list {
		backends[b.Name] = b
	}

	c.mu.Lock()
	c.backends = backends
	c.mu.Unlock()

	return backends, nil
}

// checkBackend resolves a backend name for the given endpoint, refreshing
// the backend cache once before giving up with a *BadBackendError.
func (c *Client) checkBackend(ctx context.Context, backendName, endpoint string) (string, error) {
	backendName = strings.ToLower(backendName)
	if legacyEndpoints[endpoint] {
		if b, exists := OldBackendNames[backendName]; exists {
			return b, nil
		}
	}

	if c.knownBackend(backendName) {
		return backendName, nil
	}

	// The cache may be stale or never primed
	if _, err := c.AvailableBackends(ctx); err != nil {
		return "", err
	}
	if c.knownBackend(backendName) {
		return backendName, nil
	}
	return "", newBadBackendError(backendName)
}

func (c *Client) knownBackend(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, exists := c.backends[name]
	return exists
}

func (c *Client) cachedBackend(name string) *Backend {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.backends[name]
}

// queueStatus is the wire form of the public queue status endpoint
type queueStatus struct {
	State       bool   `json:"state"`
	Status      string `json:"status"`
	Busy        bool   `json:"busy"`
	LengthQueue int64  `json:"lengthQueue"`
	Version     string `json:"version"`
}

// Status represents the status of a backend
type Status struct {
	Backend     string `json:"backend_name"`
	Version     string `json:"backend_version"`
	Operational bool   `json:"operational"`
	PendingJobs int64  `json:"pending_jobs"`
	StatusMsg   string `json:"status_msg"`
}

// BackendStatus retrieves the status of a chip. The queue status endpoint
// is public and must be queried without an access token.
func (c *Client) BackendStatus(ctx context.Context, backend string) (Status, error) {
	backendType, err := c.checkBackend(ctx, backend, "status")
	if err != nil {
		return Status{}, err
	}

	data, err := c.conn.getNoAuth(ctx, fmt.Sprintf("Backends/%s/queue/status", backendType), nil)
	if err != nil {
		return Status{}, err
	}

	var qs queueStatus
	if err := c.conn.decode(data, &qs); err != nil {
		return Status{}, err
	}

	status := Status{
		Backend:     backendType,
		Version:     qs.Version,
		Operational: qs.State,
		PendingJobs: qs.LengthQueue,
		StatusMsg:   qs.Status,
	}
	if status.Version == "" {
		status.Version = "0.0.0"
	}
	if status.PendingJobs < 0 {
		status.PendingJobs = 0
	}
	return status, nil
}

// Nduv is a name-date-unit-value tuple, the building block of device
// properties.
type Nduv struct {
	Date  string  `json:"date,omitempty"`
	Name  string  `json:"name,omitempty"`
	Unit  string  `json:"unit,omitempty"`
	Value float64 `json:"value,omitempty"`
}

// GateProperties holds the measured parameters of a single gate
type GateProperties struct {
	Gate       string  `json:"gate,omitempty"`
	Qubits     []int64 `json:"qubits,omitempty"`
	Parameters []Nduv  `json:"parameters,omitempty"`
}

// Properties represents the measured properties of a chip
type Properties struct {
	Backend        string           `json:"backend_name,omitempty"`
	Version        string           `json:"backend_version,omitempty"`
	LastUpdateDate string           `json:"last_update_date,omitempty"`
	Qubits         [][]Nduv         `json:"qubits,omitempty"`
	Gates          []GateProperties `json:"gates,omitempty"`
	General        []Nduv           `json:"general,omitempty"`
}

// BackendProperties retrieves the measured properties of a real chip.
// Simulators report empty properties.
func (c *Client) BackendProperties(ctx context.Context, backend string, options ...ClientOption) (Properties, error) {
	opts := c.callOpts(options...)

	backendType, err := c.checkBackend(ctx, backend, "properties")
	if err != nil {
		return Properties{}, err
	}

	if b := c.cachedBackend(backendType); b != nil && b.Simulator {
		return Properties{Backend: backendType}, nil
	}

	path := fmt.Sprintf("Backends/%s/properties", backendType)
	if opts.hub != "" {
		path = fmt.Sprintf("Network/%s/devices/%s/properties", opts.hub, backendType)
	}

	params := url.Values{}
	params.Set("version", "1")

	data, err := c.conn.get(ctx, path, params)
	if err != nil {
		return Properties{}, err
	}

	var p Properties
	if err := c.conn.decode(data, &p); err != nil {
		return Properties{}, err
	}

	if p.Backend == "" {
		p.Backend = backendType
	}
	return p, nil
}

type calibErr struct {
	Date  string  `json:"date,omitempty"`
	Value float64 `json:"value,omitempty"`
}

type paramsMeasure struct {
	Date  string  `json:"date,omitempty"`
	Value float64 `json:"value,omitempty"`
	Unit  string  `json:"unit,omitempty"`
}

func (c *Client) getBackendStatsUrl(opts clientOptions, backendType string) string {
	if opts.hub != "" {
		return fmt.Sprintf("Network/%s/devices/%s", opts.hub, backendType)
	}
	return fmt.Sprintf("Backends/%s", backendType)
}

// Calibration represents the calibration of a chip
type Calibration struct {
	Type            string `json:"backend,omitempty"`
	LastUpdateDate  string `json:"lastUpdateDate,omitempty"`
	MultiQubitGates []struct {
		Name    string   `json:"name,omitempty"`
		Type    string   `json:"type,omitempty"`
		Qubits  []int64  `json:"qubits,omitempty"`
		GateErr calibErr `json:"gateError,omitempty"`
	} `json:"multiQubitGates,omitempty"`
	Qubits []struct {
		Name       string   `json:"name,omitempty"`
		ReadOutErr calibErr `json:"readoutError,omitempty"`
		GateErr    calibErr `json:"gateError,omitempty"`
	} `json:"qubits,omitempty"`
}

// BackendCalibration retrieves the calibration of a chip over the endpoints
// that predate backend properties
func (c *Client) BackendCalibration(ctx context.Context, backend string, options ...ClientOption) (Calibration, error) {
	opts := c.callOpts(options...)

	backendType, err := c.checkBackend(ctx, backend, "calibration")
	if err != nil {
		return Calibration{}, err
	}

	if backendType == "sim_trivial_2" {
		// simulators carry no calibration data
		return Calibration{Type: backendType}, nil
	}

	data, err := c.conn.get(ctx, c.getBackendStatsUrl(opts, backendType)+"/calibration", nil)
	if err != nil {
		return Calibration{}, err
	}

	var h Calibration
	if err := c.conn.decode(data, &h); err != nil {
		return Calibration{}, err
	}

	h.Type = backendType
	return h, nil
}

// Params represents the calibration parameters for a backend
type Params struct {
	Type string `json:"backend,omitempty"`

	FridgeParams struct {
		CooldownDate string        `json:"cooldownDate,omitempty"`
		Temp         paramsMeasure `json:"Temperature,omitempty"`
	} `json:"fridgeParameters,omitempty"`

	Qubits []struct {
		Name     string        `json:"name,omitempty"`
		GateTime paramsMeasure `json:"gateTime,omitempty"`
		Freq     paramsMeasure `json:"frequency,omitempty"`
		T1       paramsMeasure `json:"T1,omitempty"`
		T2       paramsMeasure `json:"T2,omitempty"`
		Buffer   paramsMeasure `json:"buffer,omitempty"`
	} `json:"qubits,omitempty"`
}

// BackendParameters retrieves the calibration parameters of a real chip
func (c *Client) BackendParameters(ctx context.Context, backend string, options ...ClientOption) (Params, error) {
	opts := c.callOpts(options...)

	backendType, err := c.checkBackend(ctx, backend, "parameters")
	if err != nil {
		return Params{}, err
	}

	if backendType == "sim_trivial_2" {
		return Params{Type: backendType}, nil
	}

	data, err := c.conn.get(ctx, c.getBackendStatsUrl(opts, backendType)+"/parameters", nil)
	if err != nil {
		return Params{}, err
	}

	var h Params
	if err := c.conn.decode(data, &h); err != nil {
		return Params{}, err
	}

	h.Type = backendType
	return h, nil
}
