package execshell_test

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/depflow/internal/execshell"
)

const testShellConstant = execshell.CommandName("sh")

func runShell(testInstance *testing.T, executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	testInstance.Helper()
	if runtime.GOOS == "windows" {
		testInstance.Skip("requires a POSIX shell")
	}
	return execshell.NewOSCommandRunner().Run(executionContext, execshell.ShellCommand{Name: testShellConstant, Details: details})
}

func TestOSCommandRunnerCapturesOutput(testInstance *testing.T) {
	testCases := []struct {
		name           string
		details        execshell.CommandDetails
		expectedResult execshell.ExecutionResult
	}{
		{
			name:           "standard_streams",
			details:        execshell.CommandDetails{Arguments: []string{"-c", "printf out; printf err >&2"}},
			expectedResult: execshell.ExecutionResult{StandardOutput: "out", StandardError: "err"},
		},
		{
			name:           "exit_code",
			details:        execshell.CommandDetails{Arguments: []string{"-c", "exit 3"}},
			expectedResult: execshell.ExecutionResult{ExitCode: 3},
		},
		{
			name: "environment_override",
			details: execshell.CommandDetails{
				Arguments:            []string{"-c", "printf %s \"$GIT_REMOTE_PAT\""},
				EnvironmentVariables: map[string]string{"GIT_REMOTE_PAT": "secret"},
			},
			expectedResult: execshell.ExecutionResult{StandardOutput: "secret"},
		},
		{
			name:           "standard_input",
			details:        execshell.CommandDetails{Arguments: []string{"-c", "cat"}, StandardInput: []byte("piped")},
			expectedResult: execshell.ExecutionResult{StandardOutput: "piped"},
		},
		{
			name:           "working_directory",
			details:        execshell.CommandDetails{Arguments: []string{"-c", "pwd"}, WorkingDirectory: "/"},
			expectedResult: execshell.ExecutionResult{StandardOutput: "/\n"},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			result, runError := runShell(subTest, context.Background(), testCase.details)
			require.NoError(subTest, runError)
			require.Equal(subTest, testCase.expectedResult, result)
		})
	}
}

func TestOSCommandRunnerTimeout(testInstance *testing.T) {
	result, runError := runShell(testInstance, context.Background(), execshell.CommandDetails{
		Arguments: []string{"-c", "sleep 5"},
		Timeout:   50 * time.Millisecond,
	})
	require.NoError(testInstance, runError)
	require.True(testInstance, result.TimedOut)
	require.False(testInstance, result.Succeeded())
}

func TestOSCommandRunnerCancellation(testInstance *testing.T) {
	executionContext, cancel := context.WithCancel(context.Background())
	cancel()

	_, runError := runShell(testInstance, executionContext, execshell.CommandDetails{Arguments: []string{"-c", "exit 0"}})
	require.ErrorIs(testInstance, runError, context.Canceled)
}
