package execshell_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/depflow/internal/execshell"
)

const (
	testExecutionSuccessCaseNameConstant         = "success"
	testExecutionFailureCaseNameConstant         = "failure_exit_code"
	testExecutionTimeoutCaseNameConstant         = "timed_out_with_zero_exit_code"
	testExecutionRunnerErrorCaseNameConstant     = "runner_error"
	testCommandArgumentConstant                  = "rev-parse"
	testWorkingDirectoryConstant                 = "/workspace/repo"
	testStandardErrorOutputConstant              = "fatal: not a git repository"
	testLoggerInitializationCaseNameConstant     = "logger_validation"
	testRunnerInitializationCaseNameConstant     = "runner_validation"
	testSuccessfulInitializationCaseNameConstant = "successful_initialization"
)

type recordingCommandRunner struct {
	executionResult  execshell.ExecutionResult
	executionError   error
	recordedCommands []execshell.ShellCommand
}

func (runner *recordingCommandRunner) Run(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error) {
	runner.recordedCommands = append(runner.recordedCommands, command)
	return runner.executionResult, runner.executionError
}

type recordedDuration struct {
	subcommand string
	succeeded  bool
}

type recordingDurationObserver struct {
	observations []recordedDuration
}

func (durationObserver *recordingDurationObserver) ObserveGitCommand(subcommand string, duration time.Duration, succeeded bool) {
	durationObserver.observations = append(durationObserver.observations, recordedDuration{subcommand: subcommand, succeeded: succeeded})
}

func TestShellExecutorInitializationValidation(testInstance *testing.T) {
	testCases := []struct {
		name          string
		logger        *zap.Logger
		runner        execshell.CommandRunner
		expectError   error
		expectSuccess bool
	}{
		{
			name:        testLoggerInitializationCaseNameConstant,
			logger:      nil,
			runner:      &recordingCommandRunner{},
			expectError: execshell.ErrLoggerNotConfigured,
		},
		{
			name:        testRunnerInitializationCaseNameConstant,
			logger:      zap.NewNop(),
			runner:      nil,
			expectError: execshell.ErrCommandRunnerNotConfigured,
		},
		{
			name:          testSuccessfulInitializationCaseNameConstant,
			logger:        zap.NewNop(),
			runner:        &recordingCommandRunner{},
			expectSuccess: true,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor, creationError := execshell.NewShellExecutor(testCase.logger, testCase.runner)
			if testCase.expectSuccess {
				require.NoError(testInstance, creationError)
				require.NotNil(testInstance, executor)
			} else {
				require.Error(testInstance, creationError)
				require.ErrorIs(testInstance, creationError, testCase.expectError)
			}
		})
	}
}

func TestShellExecutorExecuteBehavior(testInstance *testing.T) {
	testCases := []struct {
		name              string
		runnerResult      execshell.ExecutionResult
		runnerError       error
		expectErrorType   any
		expectedLogCount  int
		expectedSucceeded bool
	}{
		{
			name: testExecutionSuccessCaseNameConstant,
			runnerResult: execshell.ExecutionResult{
				StandardOutput: "0123abcd",
				ExitCode:       0,
			},
			expectedLogCount:  2,
			expectedSucceeded: true,
		},
		{
			name: testExecutionFailureCaseNameConstant,
			runnerResult: execshell.ExecutionResult{
				StandardError: testStandardErrorOutputConstant,
				ExitCode:      128,
			},
			expectErrorType:  execshell.CommandFailedError{},
			expectedLogCount: 2,
		},
		{
			name: testExecutionTimeoutCaseNameConstant,
			runnerResult: execshell.ExecutionResult{
				ExitCode: 0,
				TimedOut: true,
			},
			expectErrorType:  execshell.CommandFailedError{},
			expectedLogCount: 2,
		},
		{
			name:             testExecutionRunnerErrorCaseNameConstant,
			runnerError:      errors.New("runner failure"),
			expectErrorType:  execshell.CommandExecutionError{},
			expectedLogCount: 2,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			observerCore, observerLogs := observer.New(zap.DebugLevel)
			logger := zap.New(observerCore)

			recordingRunner := &recordingCommandRunner{
				executionResult: testCase.runnerResult,
				executionError:  testCase.runnerError,
			}
			durationObserver := &recordingDurationObserver{}

			shellExecutor, creationError := execshell.NewShellExecutor(logger, recordingRunner, execshell.WithDurationObserver(durationObserver))
			require.NoError(testInstance, creationError)

			commandDetails := execshell.CommandDetails{Arguments: []string{testCommandArgumentConstant, "HEAD"}, WorkingDirectory: testWorkingDirectoryConstant}
			executionResult, executionError := shellExecutor.ExecuteGit(context.Background(), commandDetails)

			if testCase.expectErrorType != nil {
				require.Error(testInstance, executionError)
				require.IsType(testInstance, testCase.expectErrorType, executionError)
				require.Empty(testInstance, executionResult.StandardOutput)
			} else {
				require.NoError(testInstance, executionError)
				require.Equal(testInstance, testCase.runnerResult.StandardOutput, executionResult.StandardOutput)
			}

			require.Len(testInstance, observerLogs.All(), testCase.expectedLogCount)
			require.Equal(testInstance, []recordedDuration{{subcommand: testCommandArgumentConstant, succeeded: testCase.expectedSucceeded}}, durationObserver.observations)
		})
	}
}

func TestShellExecutorAppliesDefaultTimeout(testInstance *testing.T) {
	testCases := []struct {
		name            string
		commandTimeout  time.Duration
		expectedTimeout time.Duration
	}{
		{name: "default_applied", commandTimeout: 0, expectedTimeout: time.Minute},
		{name: "explicit_timeout_kept", commandTimeout: time.Second, expectedTimeout: time.Second},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			recordingRunner := &recordingCommandRunner{}
			executor, creationError := execshell.NewShellExecutor(zap.NewNop(), recordingRunner, execshell.WithDefaultTimeout(time.Minute))
			require.NoError(testInstance, creationError)

			_, executionError := executor.ExecuteGit(context.Background(), execshell.CommandDetails{Arguments: []string{"status"}, Timeout: testCase.commandTimeout})
			require.NoError(testInstance, executionError)
			require.Len(testInstance, recordingRunner.recordedCommands, 1)
			require.Equal(testInstance, execshell.CommandGit, recordingRunner.recordedCommands[0].Name)
			require.Equal(testInstance, testCase.expectedTimeout, recordingRunner.recordedCommands[0].Details.Timeout)
		})
	}
}

func TestFailedResultExtractsProcessResult(testInstance *testing.T) {
	expectedResult := execshell.ExecutionResult{ExitCode: 1, StandardError: testStandardErrorOutputConstant}
	recordingRunner := &recordingCommandRunner{executionResult: expectedResult}
	executor, creationError := execshell.NewShellExecutor(zap.NewNop(), recordingRunner)
	require.NoError(testInstance, creationError)

	_, executionError := executor.ExecuteGit(context.Background(), execshell.CommandDetails{Arguments: []string{"merge-base", "--is-ancestor", "a", "b"}})
	require.Error(testInstance, executionError)

	result, found := execshell.FailedResult(executionError)
	require.True(testInstance, found)
	require.Equal(testInstance, expectedResult, result)
	require.Contains(testInstance, executionError.Error(), testStandardErrorOutputConstant)

	_, found = execshell.FailedResult(errors.New("unrelated"))
	require.False(testInstance, found)
}

func TestExecutionResultSucceeded(testInstance *testing.T) {
	require.True(testInstance, execshell.ExecutionResult{ExitCode: 0}.Succeeded())
	require.False(testInstance, execshell.ExecutionResult{ExitCode: 1}.Succeeded())
	require.False(testInstance, execshell.ExecutionResult{ExitCode: 0, TimedOut: true}.Succeeded())
}
