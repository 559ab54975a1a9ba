package executor

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"strings"
	"testing"

	"github.com/syou6162/git-line-patch/internal/logger"
)

func TestMockCommandExecutor_Execute(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(*MockCommandExecutor)
		command    string
		args       []string
		wantOutput []byte
		wantError  bool
		wantErrMsg string
	}{
		{
			name: "successful command execution",
			setup: func(m *MockCommandExecutor) {
				m.Commands["git [--version]"] = MockResponse{
					Output: []byte("git version 2.39.0\n"),
				}
			},
			command:    "git",
			args:       []string{"--version"},
			wantOutput: []byte("git version 2.39.0\n"),
		},
		{
			name: "command execution with error",
			setup: func(m *MockCommandExecutor) {
				m.Commands["invalid-command []"] = MockResponse{
					Error: errors.New("command not found"),
				}
			},
			command:    "invalid-command",
			args:       []string{},
			wantError:  true,
			wantErrMsg: "command not found",
		},
		{
			name:       "unexpected command",
			setup:      func(m *MockCommandExecutor) {},
			command:    "unexpected",
			args:       []string{"arg1", "arg2"},
			wantError:  true,
			wantErrMsg: "unexpected command: unexpected [arg1 arg2]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockCommandExecutor()
			tt.setup(mock)

			output, err := mock.Execute(context.Background(), tt.command, tt.args...)

			if (err != nil) != tt.wantError {
				t.Errorf("Execute() error = %v, wantError %v", err, tt.wantError)
				return
			}
			if tt.wantError && tt.wantErrMsg != "" && err.Error() != tt.wantErrMsg {
				t.Errorf("Execute() error message = %v, want %v", err.Error(), tt.wantErrMsg)
			}
			if !bytes.Equal(output, tt.wantOutput) {
				t.Errorf("Execute() output = %v, want %v", output, tt.wantOutput)
			}
			if len(mock.ExecutedCommands) != 1 {
				t.Fatalf("Expected 1 executed command, got %d", len(mock.ExecutedCommands))
			}
			if mock.ExecutedCommands[0].Name != tt.command {
				t.Errorf("Executed command name = %v, want %v", mock.ExecutedCommands[0].Name, tt.command)
			}
		})
	}
}

func TestMockCommandExecutor_Run(t *testing.T) {
	tests := []struct {
		name         string
		response     MockResponse
		stdin        io.Reader
		wantExitCode int
		wantOutput   string
		wantError    bool
		wantStdin    []byte
	}{
		{
			name:       "successful apply",
			response:   MockResponse{Output: []byte("")},
			stdin:      strings.NewReader("patch content"),
			wantStdin:  []byte("patch content"),
			wantOutput: "",
		},
		{
			name:         "failing apply keeps output and exit code",
			response:     MockResponse{Output: []byte("error: patch failed"), ExitCode: 1},
			stdin:        strings.NewReader("bad patch"),
			wantExitCode: 1,
			wantOutput:   "error: patch failed",
			wantStdin:    []byte("bad patch"),
		},
		{
			name:      "start failure",
			response:  MockResponse{Error: errors.New("exec: not found")},
			stdin:     nil,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockCommandExecutor()
			mock.Commands[Key("git", "apply", "--cached")] = tt.response

			result, err := mock.Run(context.Background(), "git", tt.stdin, "apply", "--cached")

			if (err != nil) != tt.wantError {
				t.Fatalf("Run() error = %v, wantError %v", err, tt.wantError)
			}
			if tt.wantError {
				return
			}
			if result.ExitCode != tt.wantExitCode {
				t.Errorf("Run() exit code = %d, want %d", result.ExitCode, tt.wantExitCode)
			}
			if string(result.Output) != tt.wantOutput {
				t.Errorf("Run() output = %q, want %q", result.Output, tt.wantOutput)
			}
			if !bytes.Equal(mock.ExecutedCommands[0].Stdin, tt.wantStdin) {
				t.Errorf("Executed command stdin = %q, want %q", mock.ExecutedCommands[0].Stdin, tt.wantStdin)
			}
		})
	}
}

func TestMockCommandExecutor_ExecutedCommandsTracking(t *testing.T) {
	mock := NewMockCommandExecutor()
	mock.Commands["git [--version]"] = MockResponse{Output: []byte("git version")}
	mock.Commands["git [apply --check]"] = MockResponse{}

	ctx := context.Background()
	_, _ = mock.Execute(ctx, "git", "--version")
	_, _ = mock.Run(ctx, "git", strings.NewReader("input"), "apply", "--check")

	executed := mock.Executed()
	if len(executed) != 2 {
		t.Fatalf("Expected 2 executed commands, got %d", len(executed))
	}
	if executed[0].Stdin != nil {
		t.Errorf("First command stdin = %v, want nil", executed[0].Stdin)
	}
	if !bytes.Equal(executed[1].Stdin, []byte("input")) {
		t.Errorf("Second command stdin = %v, want [input]", executed[1].Stdin)
	}
}

func TestRealCommandExecutor_Execute(t *testing.T) {
	executor := NewRealCommandExecutor(WithLogger(logger.Discard()))

	tests := []struct {
		name       string
		command    string
		args       []string
		wantError  bool
		skipReason string
	}{
		{
			name:       "successful git version command",
			command:    "git",
			args:       []string{"--version"},
			skipReason: "git",
		},
		{
			name:       "successful echo command",
			command:    "echo",
			args:       []string{"test output"},
			skipReason: "echo",
		},
		{
			name:      "nonexistent command",
			command:   "definitely-does-not-exist-command-12345",
			args:      []string{},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.skipReason != "" {
				if _, err := exec.LookPath(tt.skipReason); err != nil {
					t.Skipf("%s not found in PATH", tt.skipReason)
				}
			}

			output, err := executor.Execute(context.Background(), tt.command, tt.args...)

			if (err != nil) != tt.wantError {
				t.Errorf("Execute() error = %v, wantError %v", err, tt.wantError)
				return
			}
			if !tt.wantError && len(output) == 0 {
				t.Error("Expected non-empty output for successful command")
			}
		})
	}
}

func TestRealCommandExecutor_Run(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not found in PATH")
	}
	executor := NewRealCommandExecutor(WithLogger(logger.Discard()))

	result, err := executor.Run(context.Background(), "sh", strings.NewReader("from stdin"),
		"-c", "cat; echo; echo to-stderr >&2; exit 3")
	if err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}
	if result.ExitCode != 3 {
		t.Errorf("Run() exit code = %d, want 3", result.ExitCode)
	}
	for _, want := range []string{"from stdin", "to-stderr"} {
		if !strings.Contains(string(result.Output), want) {
			t.Errorf("Run() output %q should contain %q", result.Output, want)
		}
	}
}

func TestRealCommandExecutor_RunCancelledContext(t *testing.T) {
	executor := NewRealCommandExecutor(WithLogger(logger.Discard()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := executor.Run(ctx, "git", nil, "--version"); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestRealCommandExecutor_StderrLogged(t *testing.T) {
	if _, err := exec.LookPath("ls"); err != nil {
		t.Skip("ls not found in PATH")
	}
	var buf bytes.Buffer
	l := logger.New(logger.ErrorLevel)
	l.SetOutput(&buf)
	executor := NewRealCommandExecutor(WithLogger(l))

	_, err := executor.Execute(context.Background(), "ls", "/definitely/does/not/exist/path/12345")
	if err == nil {
		t.Fatal("Expected error for non-existent path")
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && len(exitErr.Stderr) == 0 {
		t.Error("ExitError.Stderr should contain error information")
	}
	if !strings.Contains(buf.String(), "[ERROR]") {
		t.Errorf("Expected [ERROR] in log output, got: %s", buf.String())
	}
}
