package config

import (
	"os"
	"testing"
)

func TestExpandEnv_BracedSyntax(t *testing.T) {
	os.Setenv("AGENTCORE_TEST_VAR", "secret123")
	defer os.Unsetenv("AGENTCORE_TEST_VAR")

	got := string(ExpandEnv([]byte("api_key: ${AGENTCORE_TEST_VAR}")))
	want := "api_key: secret123"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestExpandEnv_BareSyntax(t *testing.T) {
	os.Setenv("AGENTCORE_TEST_VAR", "secret123")
	defer os.Unsetenv("AGENTCORE_TEST_VAR")

	got := string(ExpandEnv([]byte("api_key: $AGENTCORE_TEST_VAR")))
	want := "api_key: secret123"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestExpandEnv_MissingVarExpandsToEmpty(t *testing.T) {
	os.Unsetenv("AGENTCORE_MISSING_VAR")

	got := string(ExpandEnv([]byte("api_key: ${AGENTCORE_MISSING_VAR}")))
	want := "api_key: "
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestExpandEnv_MultipleVariables(t *testing.T) {
	os.Setenv("AGENTCORE_HOST", "localhost")
	os.Setenv("AGENTCORE_PORT", "5432")
	defer os.Unsetenv("AGENTCORE_HOST")
	defer os.Unsetenv("AGENTCORE_PORT")

	got := string(ExpandEnv([]byte("addr: ${AGENTCORE_HOST}:${AGENTCORE_PORT}")))
	want := "addr: localhost:5432"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
