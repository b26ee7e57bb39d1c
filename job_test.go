package ibmq

import (
	"context"
	"encoding/json"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cbjuan/qiskit-ibmq-provider/ibmqtest"
)

func bellQobj() *Qobj {
	return NewQobj(QobjExperiment{
		Header: map[string]interface{}{"name": "bell"},
		Instructions: []QobjInstruction{
			{Name: "u2", Qubits: []int{0}, Params: []float64{0, math.Pi}},
			{Name: "cx", Qubits: []int{0, 1}},
			{Name: "measure", Qubits: []int{0}, Memory: []int{0}},
			{Name: "measure", Qubits: []int{1}, Memory: []int{1}},
		},
	})
}

func TestClient_RunJob(t *testing.T) {
	t.Parallel()

	srv := testServer(t)
	client := testClient(t, srv)

	qobj := bellQobj()
	job, err := client.RunJob(context.Background(), qobj)
	require.NoError(t, err)
	require.NotEmpty(t, job.Id)
	require.Equal(t, JobStatusCreating, job.Status)
	require.Equal(t, srv.UserID(), job.UserId)
	require.Equal(t, DefaultBackend, job.Backend.Name)
	require.Equal(t, qobj.QobjID, job.QObject.QobjID)
}

func TestClient_RunJob_OnDevice(t *testing.T) {
	t.Parallel()

	srv := testServer(t)
	client := testClient(t, srv)

	job, err := client.RunJob(context.Background(), bellQobj(), WithBackend("ibmqx4"))
	require.NoError(t, err)
	require.Equal(t, "ibmqx4", job.Backend.Name)
}

func TestClient_RunJob_BadBackend(t *testing.T) {
	t.Parallel()

	srv := testServer(t)
	client := testClient(t, srv)

	_, err := client.RunJob(context.Background(), bellQobj(), WithBackend("ibmq_nonexistent"))

	var badErr *BadBackendError
	require.ErrorAs(t, err, &badErr)
	require.Equal(t, "ibmq_nonexistent", badErr.Backend)

	// nothing was submitted, only the backend listing was fetched
	require.Equal(t, 1, srv.RequestCount())
}

func TestClient_GetStatusJob_WalksScript(t *testing.T) {
	t.Parallel()

	srv := testServer(t)
	client := testClient(t, srv)
	ctx := context.Background()

	job, err := client.RunJob(ctx, bellQobj())
	require.NoError(t, err)

	for _, want := range []JobStatus{JobStatusValidating, JobStatusRunning, JobStatusCompleted} {
		got, err := client.GetStatusJob(ctx, job.Id)
		require.NoError(t, err)
		require.Equal(t, want, got.Status)
	}

	// terminal states stay put
	got, err := client.GetStatusJob(ctx, job.Id)
	require.NoError(t, err)
	require.Equal(t, JobStatusCompleted, got.Status)
}

func TestClient_WaitForJob(t *testing.T) {
	t.Parallel()

	srv := testServer(t)
	client := testClient(t, srv)
	ctx := context.Background()

	qobj := bellQobj()
	job, err := client.RunJob(ctx, qobj)
	require.NoError(t, err)

	done, err := client.WaitForJob(ctx, job.Id, 5*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, JobStatusCompleted, done.Status)
	require.NotNil(t, done.QObjectResult)
	require.Equal(t, true, done.QObjectResult["success"])
	require.Equal(t, qobj.QobjID, done.QObjectResult["qobj_id"])
}

func TestClient_WaitForJob_Timeout(t *testing.T) {
	t.Parallel()

	srv := testServer(t, ibmqtest.WithJobScript("CREATING"))
	client := testClient(t, srv)

	job, err := client.RunJob(context.Background(), bellQobj())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 75*time.Millisecond)
	defer cancel()

	_, err = client.WaitForJob(ctx, job.Id, 10*time.Millisecond)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_GetJob_FieldFilters(t *testing.T) {
	t.Parallel()

	srv := testServer(t)
	client := testClient(t, srv)
	ctx := context.Background()

	job, err := client.RunJob(ctx, bellQobj())
	require.NoError(t, err)

	full, err := client.GetJob(ctx, job.Id)
	require.NoError(t, err)
	require.NotEmpty(t, full.UserId)

	trimmed, err := client.GetJob(ctx, job.Id, ExcludeFields("userId", "creationDate"))
	require.NoError(t, err)
	require.Equal(t, job.Id, trimmed.Id)
	require.Empty(t, trimmed.UserId)
	require.Empty(t, trimmed.CreationDate)

	only, err := client.GetJob(ctx, job.Id, IncludeFields("id", "status"))
	require.NoError(t, err)
	require.Equal(t, job.Id, only.Id)
	require.NotEmpty(t, only.Status)
	require.Empty(t, only.UserId)
}

func TestClient_GetJobs(t *testing.T) {
	t.Parallel()

	srv := testServer(t)
	client := testClient(t, srv)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		job, err := client.RunJob(ctx, bellQobj())
		require.NoError(t, err)
		ids = append(ids, job.Id)
	}

	jobs, err := client.GetJobs(ctx, JobsFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	require.Equal(t, ids[2], jobs[0].Id)
	require.Equal(t, ids[1], jobs[1].Id)
}

func TestClient_GetJobs_FilterByBackend(t *testing.T) {
	t.Parallel()

	srv := testServer(t)
	client := testClient(t, srv)
	ctx := context.Background()

	_, err := client.RunJob(ctx, bellQobj())
	require.NoError(t, err)
	device, err := client.RunJob(ctx, bellQobj(), WithBackend("ibmqx4"))
	require.NoError(t, err)

	jobs, err := client.GetJobs(ctx, JobsFilter{Backend: "ibmqx4"})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Equal(t, device.Id, jobs[0].Id)
}

func TestClient_GetStatusJobs(t *testing.T) {
	t.Parallel()

	srv := testServer(t)
	client := testClient(t, srv)
	ctx := context.Background()

	_, err := client.RunJob(ctx, bellQobj())
	require.NoError(t, err)
	newest, err := client.RunJob(ctx, bellQobj())
	require.NoError(t, err)

	jobs, err := client.GetStatusJobs(ctx, JobsFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Equal(t, newest.Id, jobs[0].Id)
	require.Nil(t, jobs[0].QObject)
}

func TestClient_GetStatusJobs_OnlyCompleted(t *testing.T) {
	t.Parallel()

	srv := testServer(t)
	client := testClient(t, srv)
	ctx := context.Background()

	completed, err := client.RunJob(ctx, bellQobj())
	require.NoError(t, err)
	_, err = client.RunJob(ctx, bellQobj())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := client.GetStatusJob(ctx, completed.Id)
		require.NoError(t, err)
	}

	jobs, err := client.GetStatusJobs(ctx, JobsFilter{OnlyCompleted: true})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Equal(t, completed.Id, jobs[0].Id)
	require.Equal(t, JobStatusCompleted, jobs[0].Status)
}

func TestClient_CancelJob(t *testing.T) {
	t.Parallel()

	srv := testServer(t)
	client := testClient(t, srv)
	ctx := context.Background()

	job, err := client.RunJob(ctx, bellQobj())
	require.NoError(t, err)

	require.NoError(t, client.CancelJob(ctx, job.Id))
	require.Equal(t, "CANCELLED", srv.Job(job.Id).Status)
}

func TestClient_CancelJob_AlreadyFinished(t *testing.T) {
	t.Parallel()

	srv := testServer(t, ibmqtest.WithJobScript("COMPLETED"))
	client := NewClient(testConn(t, srv, WithRetries(2)))
	ctx := context.Background()

	job, err := client.RunJob(ctx, bellQobj())
	require.NoError(t, err)
	require.Equal(t, JobStatusCompleted, job.Status)

	err = client.CancelJob(ctx, job.Id)
	require.ErrorContains(t, err, "Failed to get proper response from backend.")
}

func TestClient_RunJob_WithHubInfo(t *testing.T) {
	t.Parallel()

	srv := testServer(t)
	client := testClient(t, srv, WithHubInfo("ibm-q", "open", "main"))
	ctx := context.Background()

	job, err := client.RunJob(ctx, bellQobj(), WithBackend("ibmqx4"))
	require.NoError(t, err)
	require.NotEmpty(t, job.Id)

	done, err := client.WaitForJob(ctx, job.Id, 5*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, JobStatusCompleted, done.Status)

	props, err := client.BackendProperties(ctx, "ibmqx4")
	require.NoError(t, err)
	require.Equal(t, "ibmqx4", props.Backend)
}

func TestClient_ConcurrentJobFetches(t *testing.T) {
	t.Parallel()

	srv := testServer(t)
	client := testClient(t, srv)
	ctx := context.Background()

	job, err := client.RunJob(ctx, bellQobj())
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 60)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := client.GetJob(ctx, job.Id); err != nil {
				errs <- err
			}
			if _, err := client.GetStatusJob(ctx, job.Id); err != nil {
				errs <- err
			}
			if _, err := client.GetJobs(ctx, JobsFilter{Limit: 3}); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	done, err := client.GetStatusJob(ctx, job.Id)
	require.NoError(t, err)
	require.Equal(t, JobStatusCompleted, done.Status)
}

func TestJobsFilter_Encode(t *testing.T) {
	t.Parallel()

	encoded, err := JobsFilter{Backend: "ibmqx4", OnlyCompleted: true, Skip: 5}.encode()
	require.NoError(t, err)

	var query struct {
		Order string                 `json:"order"`
		Limit int                    `json:"limit"`
		Skip  int                    `json:"skip"`
		Where map[string]interface{} `json:"where"`
	}
	require.NoError(t, json.Unmarshal([]byte(encoded), &query))
	require.Equal(t, "creationDate DESC", query.Order)
	require.Equal(t, DefaultJobsLimit, query.Limit)
	require.Equal(t, 5, query.Skip)
	require.Equal(t, "ibmqx4", query.Where["backend.name"])
	require.Equal(t, string(JobStatusCompleted), query.Where["status"])
}

func TestJobStatus_Terminal(t *testing.T) {
	t.Parallel()

	require.True(t, JobStatusCompleted.Terminal())
	require.True(t, JobStatusCancelled.Terminal())
	require.True(t, JobStatusErrorRunningJob.Terminal())
	require.False(t, JobStatusRunning.Terminal())
	require.False(t, JobStatusCreating.Terminal())

	require.True(t, JobStatusErrorValidatingJob.Failed())
	require.False(t, JobStatusCompleted.Failed())
	require.False(t, JobStatusCancelled.Failed())
}
