package gitworkspace

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/temirov/depflow/internal/execshell"
)

const (
	testRepositoryPathConstant = "/workspace/repo"
	testGitHubURLConstant      = "https://github.com/dotnet/arcade"
	testAzureDevOpsURLConstant = "https://dev.azure.com/dnceng/internal/_git/dotnet-arcade"
)

type stubResponse struct {
	result execshell.ExecutionResult
	err    error
}

// stubGitExecutor mimics ShellExecutor: unsuccessful results surface as
// execshell.CommandFailedError. Unregistered commands succeed with no output.
type stubGitExecutor struct {
	mutex     sync.Mutex
	responses map[string]stubResponse
	recorded  []execshell.CommandDetails
}

func newStubGitExecutor(responses map[string]stubResponse) *stubGitExecutor {
	if responses == nil {
		responses = map[string]stubResponse{}
	}
	return &stubGitExecutor{responses: responses}
}

func (executor *stubGitExecutor) ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.mutex.Lock()
	defer executor.mutex.Unlock()
	executor.recorded = append(executor.recorded, details)

	response, found := executor.responses[strings.Join(details.Arguments, " ")]
	if !found {
		return execshell.ExecutionResult{}, nil
	}
	if response.err != nil {
		return execshell.ExecutionResult{}, execshell.CommandExecutionError{Command: execshell.ShellCommand{Name: execshell.CommandGit, Details: details}, Cause: response.err}
	}
	if !response.result.Succeeded() {
		return execshell.ExecutionResult{}, execshell.CommandFailedError{Command: execshell.ShellCommand{Name: execshell.CommandGit, Details: details}, Result: response.result}
	}
	return response.result, nil
}

func (executor *stubGitExecutor) recordedArguments() []string {
	executor.mutex.Lock()
	defer executor.mutex.Unlock()
	joined := make([]string, 0, len(executor.recorded))
	for _, details := range executor.recorded {
		joined = append(joined, strings.Join(details.Arguments, " "))
	}
	return joined
}

type recordingFileSystem struct {
	removed     []string
	removeError error
}

func (fileSystem *recordingFileSystem) RemoveAll(path string) error {
	fileSystem.removed = append(fileSystem.removed, path)
	return fileSystem.removeError
}

type countingTokenProvider struct {
	token string
	err   error
	calls int
}

func (provider *countingTokenProvider) TokenForRepository(ctx context.Context, repoURI string) (string, error) {
	provider.calls++
	return provider.token, provider.err
}

func success(output string) stubResponse {
	return stubResponse{result: execshell.ExecutionResult{StandardOutput: output}}
}

func failure(exitCode int, standardError string) stubResponse {
	return stubResponse{result: execshell.ExecutionResult{ExitCode: exitCode, StandardError: standardError}}
}

func timedOut() stubResponse {
	return stubResponse{result: execshell.ExecutionResult{ExitCode: -1, TimedOut: true}}
}

func executionFailure() stubResponse {
	return stubResponse{err: errors.New("exec: \"git\": executable file not found in $PATH")}
}

func newTestWorkspace(executor *stubGitExecutor, options ...func(*Dependencies)) *Workspace {
	dependencies := Dependencies{GitExecutor: executor, FileSystem: &recordingFileSystem{}}
	for _, option := range options {
		option(&dependencies)
	}
	workspace, creationError := NewWorkspace(dependencies, Options{})
	if creationError != nil {
		panic(creationError)
	}
	return workspace
}
