package ibmq

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClient_GetCode(t *testing.T) {
	t.Parallel()

	srv := testServer(t)
	client := testClient(t, srv)
	ctx := context.Background()

	result, err := client.RunExperiment(ctx, testExpStr, WithName("stored circuit"))
	require.NoError(t, err)

	code, err := client.GetCode(ctx, result.CodeId)
	require.NoError(t, err)
	require.Equal(t, result.CodeId, code.Id)
	require.Equal(t, "stored circuit", code.Name)
	require.Equal(t, "QASM2", code.CodeType)
	require.True(t, code.Active)
	require.NotEmpty(t, code.Qasm)
}

func TestClient_GetCode_MissingId(t *testing.T) {
	t.Parallel()

	srv := testServer(t)
	client := testClient(t, srv)

	_, err := client.GetCode(context.Background(), "")
	require.ErrorContains(t, err, "code id not specified")
}

func TestClient_GetLastCodes(t *testing.T) {
	t.Parallel()

	srv := testServer(t)
	client := testClient(t, srv)
	ctx := context.Background()

	first, err := client.RunExperiment(ctx, testExpStr, WithName("first"))
	require.NoError(t, err)
	_, err = client.RunExperiment(ctx, testExpStr, WithName("second"))
	require.NoError(t, err)

	codes, err := client.GetLastCodes(ctx)
	require.NoError(t, err)
	require.Len(t, codes, 2)

	byId := make(map[string]Code, len(codes))
	for _, code := range codes {
		byId[code.Id] = code
	}
	code, ok := byId[first.CodeId]
	require.True(t, ok)
	require.Len(t, code.Executions, 1)
	require.Equal(t, execDone, code.Executions[0].Status)
	require.Equal(t, []string{"00", "11"}, code.Executions[0].Result.Measure.Labels)
}

func TestClient_GetImageCode(t *testing.T) {
	t.Parallel()

	srv := testServer(t)
	client := testClient(t, srv)
	ctx := context.Background()

	result, err := client.RunExperiment(ctx, testExpStr)
	require.NoError(t, err)

	url, err := client.GetImageCode(ctx, result.CodeId)
	require.NoError(t, err)
	require.Contains(t, url, result.CodeId)
	require.Contains(t, url, ".png")
}
