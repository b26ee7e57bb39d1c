package ibmq

import "fmt"

// clientOptions carries the defaults and per-call overrides for submitting
// work to the QX Platform.
type clientOptions struct {
	backend    string
	shots      int
	maxCredits int
	seed       int64
	name       string
	hpc        *HPCParams

	hub     string
	group   string
	project string
}

// HPCParams tunes the HPC simulator backend.
type HPCParams struct {
	MultiShotOptimization bool `json:"multiShotOptimization"`
	OmpNumThreads         int  `json:"ompNumThreads"`
}

// ClientOption configures how a client submits work to the QX Platform.
// Options given to NewClient become client wide defaults; options given to
// an individual call override them for that call only.
type ClientOption func(*clientOptions)

// WithBackend sets the backend work is submitted to
func WithBackend(name string) ClientOption {
	return func(options *clientOptions) {
		options.backend = name
	}
}

// WithShots sets how many times each experiment is run
func WithShots(shots int) ClientOption {
	return func(options *clientOptions) {
		options.shots = shots
	}
}

// WithMaxCredits sets the credit ceiling for a job
func WithMaxCredits(credits int) ClientOption {
	return func(options *clientOptions) {
		options.maxCredits = credits
	}
}

// WithSeed sets the simulator seed for an experiment
func WithSeed(seed int64) ClientOption {
	return func(options *clientOptions) {
		options.seed = seed
	}
}

// WithName names an experiment
func WithName(name string) ClientOption {
	return func(options *clientOptions) {
		options.name = name
	}
}

// WithHPC passes tuning parameters along to the HPC simulator. Backends
// other than the HPC simulator ignore them.
func WithHPC(params *HPCParams) ClientOption {
	return func(options *clientOptions) {
		options.hpc = params
	}
}

// WithHubInfo scopes all calls to a hub, group and project. Users with
// network access get these with their IBM Q account.
func WithHubInfo(hub, group, project string) ClientOption {
	return func(options *clientOptions) {
		options.hub = hub
		options.group = group
		options.project = project
	}
}

func (o clientOptions) hasHubInfo() bool {
	return o.hub != "" && o.group != "" && o.project != ""
}

// networkPath scopes an API path to the configured hub, group and project
func (o clientOptions) networkPath(path string) string {
	return fmt.Sprintf("Network/%s/Groups/%s/Projects/%s/%s", o.hub, o.group, o.project, path)
}

// jobsPath is the job collection endpoint. The network scoped route spells
// jobs in lowercase, unlike the flat Jobs route.
func (o clientOptions) jobsPath() string {
	if o.hasHubInfo() {
		return o.networkPath("jobs")
	}
	return "Jobs"
}
