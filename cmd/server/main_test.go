package main

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigFileLoading(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	configContent := `
store:
  bucket_name: test-bucket
  region: test-region
  endpoint: http://test-endpoint
  access_key: test-access-key
  secret_key: test-secret-key
auth:
  sharedsecret: test-shared-secret
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	binaryPath := filepath.Join(tmpDir, "server")
	buildCmd := exec.Command("go", "build", "-o", binaryPath)
	err = buildCmd.Run()
	require.NoError(t, err)

	// The binary keeps running once bound; we only care about the config
	// it logged before that, so pass a bind address the listener can't
	// possibly open and let startup fail fast instead of hanging the test.
	cmd := exec.Command(binaryPath, "--config", configPath, "--bind", "256.256.256.256:0")
	output, err := cmd.CombinedOutput()
	require.Error(t, err)

	outputStr := string(output)
	require.Contains(t, outputStr, "server config")
	require.Contains(t, outputStr, "test-bucket")
	require.Contains(t, outputStr, "test-region")
}

func TestConfigFileNotFound(t *testing.T) {
	tmpDir := t.TempDir()
	binaryPath := filepath.Join(tmpDir, "server")
	buildCmd := exec.Command("go", "build", "-o", binaryPath)
	err := buildCmd.Run()
	require.NoError(t, err)

	cmd := exec.Command(binaryPath, "--config", "nonexistent.yaml")
	output, err := cmd.CombinedOutput()

	require.Error(t, err)
	require.Contains(t, string(output), "nonexistent.yaml")
}
