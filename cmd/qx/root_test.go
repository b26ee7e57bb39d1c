package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	ibmq "github.com/cbjuan/qiskit-ibmq-provider"
	"github.com/cbjuan/qiskit-ibmq-provider/ibmqtest"
)

func TestAPIVersionCommand(t *testing.T) {
	t.Setenv(ibmq.EnvQiskitrc, filepath.Join(t.TempDir(), "qiskitrc.yaml"))
	t.Setenv(ibmq.EnvToken, "")

	srv := ibmqtest.NewServer()
	t.Cleanup(srv.Close)
	defer func() { rootFlags = rootFlagValues{} }()

	b := bytes.NewBufferString("")
	rootCmd.SetOut(b)
	rootCmd.SetArgs([]string{"api-version", "--token", srv.Token(), "--url", srv.URL()})

	if err := rootCmd.Execute(); err != nil {
		t.Fatal(err)
	}

	if got := strings.TrimSpace(b.String()); got != ibmqtest.DefaultVersion {
		t.Fatalf("unexpected version output: got=%q want=%q", got, ibmqtest.DefaultVersion)
	}
}

func TestResolveAccount_FlagOverlay(t *testing.T) {
	t.Setenv(ibmq.EnvQiskitrc, filepath.Join(t.TempDir(), "qiskitrc.yaml"))
	t.Setenv(ibmq.EnvToken, "")

	defer func() { rootFlags = rootFlagValues{} }()
	rootFlags.token = "flag-token"
	rootFlags.hub = "ibm-q"
	rootFlags.group = "open"
	rootFlags.project = "main"

	account, err := resolveAccount()
	if err != nil {
		t.Fatal(err)
	}
	if account.Token != "flag-token" {
		t.Errorf("expected flag token to win, got %q", account.Token)
	}
	if account.Hub != "ibm-q" || account.Group != "open" || account.Project != "main" {
		t.Errorf("unexpected hub info: %#v", account)
	}
}

func TestResolveAccount_NoCredentials(t *testing.T) {
	t.Setenv(ibmq.EnvQiskitrc, filepath.Join(t.TempDir(), "qiskitrc.yaml"))
	t.Setenv(ibmq.EnvToken, "")

	defer func() { rootFlags = rootFlagValues{} }()

	if _, err := resolveAccount(); err == nil {
		t.Fatal("expected an error without token, env or stored account")
	}
}

func TestMaskToken(t *testing.T) {
	if got := maskToken("abcdefgh"); got != "****efgh" {
		t.Errorf("unexpected mask: %q", got)
	}
	if got := maskToken("ab"); got != "****" {
		t.Errorf("unexpected mask: %q", got)
	}
}
