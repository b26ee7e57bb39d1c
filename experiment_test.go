package ibmq

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cbjuan/qiskit-ibmq-provider/ibmqtest"
)

const testExpStr = `IBMQASM 2.0;

include "qelib1.inc";
qreg q[5];
creg c[5];
u2(-4*pi/3,2*pi) q[0];
u2(-3*pi/2,2*pi) q[0];
u3(-pi,0,-pi) q[0];
u3(-pi,0,-pi/2) q[0];
u2(pi,-pi/2) q[0];
u3(-pi,0,-pi/2) q[0];
measure q -> c;`

func TestClient_RunExperiment(t *testing.T) {
	t.Parallel()

	srv := testServer(t)
	client := testClient(t, srv)

	result, err := client.RunExperiment(context.Background(), testExpStr, WithShots(1024), WithName("bell state"))
	require.NoError(t, err)
	require.Equal(t, execDone, result.Status)
	require.NotEmpty(t, result.Id)
	require.NotEmpty(t, result.CodeId)
	require.Equal(t, []string{"00", "11"}, result.Result.Measure.Labels)
	require.InDelta(t, 1.0, result.Result.Measure.Values[0]+result.Result.Measure.Values[1], 1e-9)
}

func TestClient_RunExperiment_StripsQASMHeader(t *testing.T) {
	t.Parallel()

	srv := testServer(t)
	client := testClient(t, srv)
	ctx := context.Background()

	result, err := client.RunExperiment(ctx, testExpStr)
	require.NoError(t, err)

	code, err := client.GetCode(ctx, result.CodeId)
	require.NoError(t, err)
	require.NotContains(t, code.Qasm, "IBMQASM 2.0;")
	require.Contains(t, code.Qasm, "qreg q[5];")
}

func TestClient_RunExperiment_WithSeed(t *testing.T) {
	t.Parallel()

	srv := testServer(t)
	client := testClient(t, srv)

	result, err := client.RunExperiment(context.Background(), testExpStr, WithSeed(42))
	require.NoError(t, err)
	require.Equal(t, float64(42), result.Result.ExtraInfo.Seed)
}

func TestClient_RunExperiment_SeedTooLong(t *testing.T) {
	t.Parallel()

	srv := testServer(t)
	client := testClient(t, srv)

	_, err := client.RunExperiment(context.Background(), testExpStr, WithSeed(MaxSeed+1))
	require.ErrorContains(t, err, "invalid seed")
	require.Equal(t, 0, srv.RequestCount())
}

func TestClient_RunExperiment_SeedOnDevice(t *testing.T) {
	t.Parallel()

	srv := testServer(t)
	client := testClient(t, srv)

	_, err := client.RunExperiment(context.Background(), testExpStr, WithSeed(42), WithBackend("ibmqx4"))
	require.ErrorContains(t, err, "seeds can only be used with simulator backends")
}

func TestClient_RunExperiment_WaitsForResult(t *testing.T) {
	srv := testServer(t, ibmqtest.WithExecutionScript("WORKING_IN_PROGRESS", "DONE"))
	client := testClient(t, srv)

	old := experimentPollInterval
	experimentPollInterval = 10 * time.Millisecond
	defer func() { experimentPollInterval = old }()

	result, err := client.RunExperiment(context.Background(), testExpStr)
	require.NoError(t, err)
	require.Equal(t, execDone, result.Status)
	require.NotEmpty(t, result.Result.Measure.Labels)
}

func TestClient_GetExecution(t *testing.T) {
	t.Parallel()

	srv := testServer(t)
	client := testClient(t, srv)
	ctx := context.Background()

	result, err := client.RunExperiment(ctx, testExpStr)
	require.NoError(t, err)

	execution, err := client.GetExecution(ctx, result.Id)
	require.NoError(t, err)
	require.Equal(t, result.Id, execution.Id)
	require.Equal(t, result.CodeId, execution.CodeId)
	require.Equal(t, execDone, execution.Status)
	require.NotNil(t, execution.Code)
	require.Equal(t, result.CodeId, execution.Code.Id)
}

func TestClient_ConcurrentExecutionFetches(t *testing.T) {
	t.Parallel()

	srv := testServer(t)
	client := testClient(t, srv)
	ctx := context.Background()

	result, err := client.RunExperiment(ctx, testExpStr)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := client.GetExecution(ctx, result.Id); err != nil {
				errs <- err
			}
			if _, err := client.GetLastCodes(ctx); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	execution, err := client.GetExecution(ctx, result.Id)
	require.NoError(t, err)
	require.Equal(t, execDone, execution.Status)
}

func TestClient_GetResultFromExecution(t *testing.T) {
	t.Parallel()

	srv := testServer(t)
	client := testClient(t, srv)
	ctx := context.Background()

	result, err := client.RunExperiment(ctx, testExpStr)
	require.NoError(t, err)

	data, err := client.GetResultFromExecution(ctx, result.Id)
	require.NoError(t, err)
	require.Equal(t, []string{"00", "11"}, data.Measure.Labels)
}
