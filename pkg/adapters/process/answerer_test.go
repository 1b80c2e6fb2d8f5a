package process_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/aretw0/arbor/pkg/adapters/process"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
}

func TestAnswerer_ReceivesQuestionAndContext(t *testing.T) {
	requireShell(t)
	a, err := process.New(process.Config{Name: "cat", Command: "cat"})
	require.NoError(t, err)

	history := []ports.Message{
		{Role: ports.RoleUser, Content: "root"},
		{Role: ports.RoleAssistant, Content: "answer"},
	}
	out, err := a.Answer(context.Background(), "next?", history)
	require.NoError(t, err)

	var got process.Request
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "next?", got.Question)
	assert.Equal(t, history, got.Context)
}

func TestAnswerer_EmptyContextIsArray(t *testing.T) {
	requireShell(t)
	a, err := process.New(process.Config{Command: "cat"})
	require.NoError(t, err)

	out, err := a.Answer(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"question":"q","context":[]}`, out)
}

func TestAnswerer_EnvironmentAndDepth(t *testing.T) {
	requireShell(t)
	a, err := process.New(process.Config{
		Command:     "sh",
		Args:        []string{"-c", `echo "$GREETING at $ARBOR_DEPTH"`},
		Environment: map[string]string{"GREETING": "hello"},
	})
	require.NoError(t, err)

	out, err := a.Answer(context.Background(), "q", []ports.Message{{}, {}})
	require.NoError(t, err)
	assert.Equal(t, "hello at 1", out)
}

func TestAnswerer_Failures(t *testing.T) {
	requireShell(t)
	ctx := context.Background()

	t.Run("non-zero exit carries stderr", func(t *testing.T) {
		a, err := process.New(process.Config{Name: "bad", Command: "sh", Args: []string{"-c", "echo nope >&2; exit 3"}})
		require.NoError(t, err)
		_, err = a.Answer(ctx, "q", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nope")
	})

	t.Run("empty output", func(t *testing.T) {
		a, err := process.New(process.Config{Command: "true"})
		require.NoError(t, err)
		_, err = a.Answer(ctx, "q", nil)
		assert.ErrorIs(t, err, process.ErrEmptyAnswer)
	})

	t.Run("timeout", func(t *testing.T) {
		a, err := process.New(process.Config{Command: "sleep", Args: []string{"5"}, Timeout: 100 * time.Millisecond})
		require.NoError(t, err)
		_, err = a.Answer(ctx, "q", nil)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("missing command", func(t *testing.T) {
		_, err := process.New(process.Config{Name: "x"})
		assert.Error(t, err)
	})
}

func TestLoadConfigs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "answerers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
answerers:
  - name: local-llm
    command: ./ask.sh
    args: ["--model", "small"]
    env:
      MODEL_HOME: /opt/models
    timeout: 30s
  - name: broken
`), 0o644))

	cfgs, err := process.LoadConfigs(path)
	require.NoError(t, err)
	require.Len(t, cfgs, 1)

	llm := cfgs["local-llm"]
	assert.Equal(t, "./ask.sh", llm.Command)
	assert.Equal(t, []string{"--model", "small"}, llm.Args)
	assert.Equal(t, "/opt/models", llm.Environment["MODEL_HOME"])
	assert.Equal(t, 30*time.Second, llm.Timeout)

	missing, err := process.LoadConfigs(filepath.Join(dir, "nope.yaml"))
	require.NoError(t, err)
	assert.Empty(t, missing)
}
