package generator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeCLI(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "claude")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755))
	return path
}

func TestCLIClient_EchoesStdin(t *testing.T) {
	c := NewCLIClient(fakeCLI(t, "cat"))

	resp, err := c.Generate(context.Background(), "system", "  hello model \n")
	require.NoError(t, err)
	assert.Equal(t, "hello model", resp.Content)
}

func TestCLIClient_Errors(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   error
	}{
		{"empty output", "exit 0", ErrEmptyResponse},
		{"non-zero exit", "echo broken >&2; exit 3", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCLIClient(fakeCLI(t, tt.script)).Generate(context.Background(), "s", "u")
			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			} else {
				assert.Contains(t, err.Error(), "broken")
			}
		})
	}
}

func TestCLIArgs(t *testing.T) {
	args := cliArgs("be brief")
	assert.Equal(t, "--print", args[0])
	assert.Equal(t, "be brief", args[len(args)-1])
}
