package ibmq

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cbjuan/qiskit-ibmq-provider/ibmqtest"
)

func TestClient_CheckCredentials(t *testing.T) {
	t.Parallel()

	srv := testServer(t)
	client := testClient(t, srv)

	require.True(t, client.CheckCredentials())
}

func TestClient_APIVersion(t *testing.T) {
	t.Parallel()

	srv := testServer(t)
	client := testClient(t, srv)

	version, err := client.APIVersion(context.Background())
	require.NoError(t, err)
	require.Equal(t, ibmqtest.DefaultVersion, version)

	major, err := strconv.Atoi(strings.SplitN(version, ".", 2)[0])
	require.NoError(t, err)
	require.GreaterOrEqual(t, major, 4)
}

func TestClient_APIVersion_PayloadForms(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		contentType string
		body        string
		want        string
		wantErr     bool
	}{
		{name: "json string", contentType: "application/json", body: `"4.3.2"`, want: "4.3.2"},
		{name: "legacy json number", contentType: "application/json", body: `4.3`, want: "4.3"},
		{name: "bare text", contentType: "text/plain", body: "beta 4.3.2", want: "beta 4.3.2"},
		{name: "unexpected payload", contentType: "application/json", body: `{"semver":"4.3.2"}`, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.Write([]byte(tt.body))
			}))
			t.Cleanup(upstream.Close)

			conn, err := Dial(WithAccessInfo("version-token", "version-user"), WithApiUrl(upstream.URL))
			require.NoError(t, err)

			version, err := NewClient(conn).APIVersion(context.Background())
			if tt.wantErr {
				var apiErr *APIError
				require.ErrorAs(t, err, &apiErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, version)
		})
	}
}

func TestClient_GetMyCredits(t *testing.T) {
	t.Parallel()

	srv := testServer(t)
	client := testClient(t, srv)

	credit, err := client.GetMyCredits(context.Background())
	require.NoError(t, err)
	require.Equal(t, float64(142), credit.Remaining)
	require.Equal(t, float64(150), credit.MaxUserType)
}

func TestNewClient_Defaults(t *testing.T) {
	t.Parallel()

	srv := testServer(t)
	client := testClient(t, srv)

	require.Equal(t, DefaultBackend, client.opts.backend)
	require.Equal(t, DefaultShots, client.opts.shots)
	require.Equal(t, DefaultMaxCredits, client.opts.maxCredits)
}

func TestClient_CallOptionsDoNotStick(t *testing.T) {
	t.Parallel()

	srv := testServer(t)
	client := testClient(t, srv)

	hpc := &HPCParams{MultiShotOptimization: true, OmpNumThreads: 4}
	opts := client.callOpts(
		WithBackend("ibmqx4"),
		WithShots(256),
		WithMaxCredits(5),
		WithSeed(7),
		WithName("named run"),
		WithHPC(hpc),
	)
	require.Equal(t, "ibmqx4", opts.backend)
	require.Equal(t, 256, opts.shots)
	require.Equal(t, 5, opts.maxCredits)
	require.Equal(t, int64(7), opts.seed)
	require.Equal(t, "named run", opts.name)
	require.Equal(t, hpc, opts.hpc)

	require.Equal(t, DefaultBackend, client.opts.backend)
	require.Equal(t, DefaultShots, client.opts.shots)
	require.Equal(t, DefaultMaxCredits, client.opts.maxCredits)
}
