package executor

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// MockCommandExecutor is a mock implementation of CommandExecutor for testing
type MockCommandExecutor struct {
	// Commands stores the expected commands and their responses
	Commands map[string]MockResponse
	// ExecutedCommands tracks what commands were actually executed
	ExecutedCommands []ExecutedCommand

	mu sync.Mutex
}

// MockResponse represents a mocked command response
type MockResponse struct {
	Output   []byte
	ExitCode int
	Error    error
	// Block, when set, delays the response until it is closed
	Block <-chan struct{}
}

// ExecutedCommand represents a command that was executed
type ExecutedCommand struct {
	Name  string
	Args  []string
	Stdin []byte
}

// NewMockCommandExecutor creates a new mock executor
func NewMockCommandExecutor() *MockCommandExecutor {
	return &MockCommandExecutor{
		Commands:         make(map[string]MockResponse),
		ExecutedCommands: []ExecutedCommand{},
	}
}

// Key returns the Commands key for a command line
func Key(name string, args ...string) string {
	return fmt.Sprintf("%s %v", name, args)
}

// Execute implements CommandExecutor.Execute
func (m *MockCommandExecutor) Execute(ctx context.Context, name string, args ...string) ([]byte, error) {
	response, err := m.record(name, nil, args)
	if err != nil {
		return nil, err
	}
	return response.Output, response.Error
}

// Run implements CommandExecutor.Run
func (m *MockCommandExecutor) Run(ctx context.Context, name string, stdin io.Reader, args ...string) (*Result, error) {
	response, err := m.record(name, stdin, args)
	if err != nil {
		return nil, err
	}
	if response.Block != nil {
		<-response.Block
	}
	if response.Error != nil {
		return nil, response.Error
	}
	return &Result{ExitCode: response.ExitCode, Output: response.Output}, nil
}

// Executed returns a snapshot of the executed commands
func (m *MockCommandExecutor) Executed() []ExecutedCommand {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ExecutedCommand(nil), m.ExecutedCommands...)
}

func (m *MockCommandExecutor) record(name string, stdin io.Reader, args []string) (MockResponse, error) {
	var stdinData []byte
	if stdin != nil {
		stdinData, _ = io.ReadAll(stdin)
	}

	key := Key(name, args...)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ExecutedCommands = append(m.ExecutedCommands, ExecutedCommand{
		Name:  name,
		Args:  args,
		Stdin: stdinData,
	})

	if response, ok := m.Commands[key]; ok {
		return response, nil
	}

	return MockResponse{}, fmt.Errorf("unexpected command: %s", key)
}
