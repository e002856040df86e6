//go:build integration

package integration

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

// TestConfig holds configuration for integration tests.
type TestConfig struct {
	DiscoveryRoot string
	APIKey        string
	BinaryPath    string
	Verbose       bool
}

// LoadTestConfig loads configuration from environment variables.
func LoadTestConfig() *TestConfig {
	return &TestConfig{
		DiscoveryRoot: os.Getenv("DISCOVERY_INTEGRATION_ROOT"),
		APIKey:        os.Getenv("DISCOVERY_INTEGRATION_KEY"),
		BinaryPath:    getBinaryPath(),
		Verbose:       os.Getenv("DISCOVERY_VERBOSE") == "true",
	}
}

// getBinaryPath determines the path to the discovery binary.
func getBinaryPath() string {
	if path := os.Getenv("DISCOVERY_BINARY_PATH"); path != "" {
		return path
	}

	candidates := []string{
		"../../discovery",
		"./discovery",
		"../discovery",
	}

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return "discovery"
}

// SkipIfMissingConfig skips the test when no live discovery root is configured
// or the binary cannot be found.
func (config *TestConfig) SkipIfMissingConfig(t *testing.T) {
	t.Helper()

	if config.DiscoveryRoot == "" {
		t.Skip("DISCOVERY_INTEGRATION_ROOT not set, skipping integration test")
	}

	if _, err := exec.LookPath(config.BinaryPath); err != nil {
		t.Skipf("discovery binary not found at %s, skipping integration test", config.BinaryPath)
	}
}

// CommandRunner runs the discovery binary against an isolated config file.
type CommandRunner struct {
	config     *TestConfig
	configFile string
	t          *testing.T
}

// NewCommandRunner creates a new command runner with its own config file.
func NewCommandRunner(config *TestConfig, t *testing.T) *CommandRunner {
	t.Helper()

	return &CommandRunner{
		config:     config,
		configFile: filepath.Join(t.TempDir(), "config.yml"),
		t:          t,
	}
}

// Run executes a discovery command and returns its output.
func (runner *CommandRunner) Run(args ...string) (stdout, stderr string, err error) {
	return runner.RunWithInput("", args...)
}

// RunWithInput executes a discovery command with stdin input.
func (runner *CommandRunner) RunWithInput(input string, args ...string) (stdout, stderr string, err error) {
	full := []string{"--config", runner.configFile, "--root", runner.config.DiscoveryRoot}
	if runner.config.APIKey != "" {
		full = append(full, "--key", runner.config.APIKey)
	}

	full = append(full, args...)

	cmd := exec.Command(runner.config.BinaryPath, full...)

	var stdoutBuf, stderrBuf bytes.Buffer

	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf
	cmd.Stdin = strings.NewReader(input)

	if runner.config.Verbose {
		runner.t.Logf("Running: %s %s", runner.config.BinaryPath, strings.Join(full, " "))
	}

	err = cmd.Run()
	stdout = stdoutBuf.String()
	stderr = stderrBuf.String()

	if runner.config.Verbose && err != nil {
		runner.t.Logf("Command failed: %v\nStdout: %s\nStderr: %s", err, stdout, stderr)
	}

	return stdout, stderr, err
}

// AssertJSONOutput decodes command output as JSON into v.
func AssertJSONOutput(t *testing.T, output string, v interface{}) {
	t.Helper()

	if err := json.Unmarshal([]byte(strings.TrimSpace(output)), v); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, output)
	}
}

// AssertYAMLOutput decodes command output as YAML into v.
func AssertYAMLOutput(t *testing.T, output string, v interface{}) {
	t.Helper()

	if err := yaml.Unmarshal([]byte(output), v); err != nil {
		t.Fatalf("output is not YAML: %v\n%s", err, output)
	}
}
