package execshell

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	loggerNotConfiguredMessageConstant        = "shell executor logger not configured"
	commandRunnerNotConfiguredMessageConstant = "shell executor command runner not configured"
	commandFailedErrorTemplateConstant        = "%s failed with exit code %d%s"
	commandTimedOutErrorTemplateConstant      = "%s timed out%s"
	commandExecutionErrorTemplateConstant     = "%s execution failed: %s"
	commandLabelSeparatorConstant             = " "
	standardErrorDetailTemplateConstant       = ": %s"
	logFieldCommandConstant                   = "command"
	logFieldArgumentsConstant                 = "arguments"
	logFieldWorkingDirectoryConstant          = "working_directory"
	logFieldExitCodeConstant                  = "exit_code"
	logFieldTimedOutConstant                  = "timed_out"
	logFieldDurationConstant                  = "duration"
	logFieldStandardErrorConstant             = "stderr"
)

// CommandName identifies an executable supported by the shell executor.
type CommandName string

// Supported command names.
const (
	CommandGit CommandName = CommandName("git")
)

// CommandDetails describes the arguments and environment of a single invocation.
type CommandDetails struct {
	Arguments            []string
	WorkingDirectory     string
	EnvironmentVariables map[string]string
	StandardInput        []byte
	Timeout              time.Duration
}

// ShellCommand couples an executable with its invocation details.
type ShellCommand struct {
	Name    CommandName
	Details CommandDetails
}

// ExecutionResult captures the observable outcome of a finished process.
type ExecutionResult struct {
	StandardOutput string
	StandardError  string
	ExitCode       int
	TimedOut       bool
}

// Succeeded reports whether the process exited with code zero before its deadline.
func (result ExecutionResult) Succeeded() bool {
	return result.ExitCode == 0 && !result.TimedOut
}

// CommandRunner executes shell commands.
type CommandRunner interface {
	Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error)
}

// DurationObserver receives command durations; satisfied by metrics.Recorder.
type DurationObserver interface {
	ObserveGitCommand(subcommand string, duration time.Duration, succeeded bool)
}

var (
	// ErrLoggerNotConfigured indicates the executor was constructed without a logger.
	ErrLoggerNotConfigured = errors.New(loggerNotConfiguredMessageConstant)
	// ErrCommandRunnerNotConfigured indicates the executor was constructed without a runner.
	ErrCommandRunnerNotConfigured = errors.New(commandRunnerNotConfiguredMessageConstant)
)

// CommandFailedError reports a process that exited unsuccessfully or timed out.
type CommandFailedError struct {
	Command ShellCommand
	Result  ExecutionResult
}

// Error describes the failed command.
func (failure CommandFailedError) Error() string {
	label := formatCommandLabel(failure.Command)
	stderrDetail := ""
	if trimmed := strings.TrimSpace(failure.Result.StandardError); len(trimmed) > 0 {
		stderrDetail = fmt.Sprintf(standardErrorDetailTemplateConstant, trimmed)
	}
	if failure.Result.TimedOut {
		return fmt.Sprintf(commandTimedOutErrorTemplateConstant, label, stderrDetail)
	}
	return fmt.Sprintf(commandFailedErrorTemplateConstant, label, failure.Result.ExitCode, stderrDetail)
}

// CommandExecutionError reports a process that could not be started or was cancelled.
type CommandExecutionError struct {
	Command ShellCommand
	Cause   error
}

// Error describes the execution failure.
func (failure CommandExecutionError) Error() string {
	return fmt.Sprintf(commandExecutionErrorTemplateConstant, formatCommandLabel(failure.Command), failure.Cause)
}

// Unwrap exposes the underlying cause.
func (failure CommandExecutionError) Unwrap() error {
	return failure.Cause
}

// ShellExecutor runs commands through a CommandRunner and logs their lifecycle.
type ShellExecutor struct {
	logger           *zap.Logger
	runner           CommandRunner
	formatter        CommandMessageFormatter
	durationObserver DurationObserver
	defaultTimeout   time.Duration
}

// ExecutorOption customizes a ShellExecutor.
type ExecutorOption func(*ShellExecutor)

// WithDurationObserver registers a sink for git command durations.
func WithDurationObserver(observer DurationObserver) ExecutorOption {
	return func(executor *ShellExecutor) {
		executor.durationObserver = observer
	}
}

// WithDefaultTimeout applies a timeout to commands that do not specify one.
func WithDefaultTimeout(timeout time.Duration) ExecutorOption {
	return func(executor *ShellExecutor) {
		if timeout > 0 {
			executor.defaultTimeout = timeout
		}
	}
}

// NewShellExecutor constructs a ShellExecutor.
func NewShellExecutor(logger *zap.Logger, runner CommandRunner, options ...ExecutorOption) (*ShellExecutor, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if runner == nil {
		return nil, ErrCommandRunnerNotConfigured
	}

	executor := &ShellExecutor{
		logger:    logger,
		runner:    runner,
		formatter: CommandMessageFormatter{},
	}
	for _, option := range options {
		if option != nil {
			option(executor)
		}
	}
	return executor, nil
}

// ExecuteGit runs git with the supplied details.
func (executor *ShellExecutor) ExecuteGit(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.Execute(executionContext, ShellCommand{Name: CommandGit, Details: details})
}

// Execute runs an arbitrary command. Unsuccessful results are returned as CommandFailedError.
func (executor *ShellExecutor) Execute(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	if command.Details.Timeout <= 0 && executor.defaultTimeout > 0 {
		command.Details.Timeout = executor.defaultTimeout
	}

	executor.logger.Debug(
		executor.formatter.BuildStartedMessage(command),
		zap.String(logFieldCommandConstant, string(command.Name)),
		zap.Strings(logFieldArgumentsConstant, command.Details.Arguments),
		zap.String(logFieldWorkingDirectoryConstant, command.Details.WorkingDirectory),
	)

	startedAt := time.Now()
	result, runError := executor.runner.Run(executionContext, command)
	elapsed := time.Since(startedAt)

	if runError != nil {
		executor.observeDuration(command, elapsed, false)
		executor.logger.Warn(
			executor.formatter.BuildExecutionFailureMessage(command, runError),
			zap.String(logFieldCommandConstant, string(command.Name)),
			zap.Duration(logFieldDurationConstant, elapsed),
			zap.Error(runError),
		)
		return ExecutionResult{}, CommandExecutionError{Command: command, Cause: runError}
	}

	executor.observeDuration(command, elapsed, result.Succeeded())

	if !result.Succeeded() {
		executor.logger.Debug(
			executor.formatter.BuildFailureMessage(command, result),
			zap.String(logFieldCommandConstant, string(command.Name)),
			zap.Int(logFieldExitCodeConstant, result.ExitCode),
			zap.Bool(logFieldTimedOutConstant, result.TimedOut),
			zap.String(logFieldStandardErrorConstant, strings.TrimSpace(result.StandardError)),
			zap.Duration(logFieldDurationConstant, elapsed),
		)
		return ExecutionResult{}, CommandFailedError{Command: command, Result: result}
	}

	executor.logger.Debug(
		executor.formatter.BuildSuccessMessage(command),
		zap.String(logFieldCommandConstant, string(command.Name)),
		zap.Duration(logFieldDurationConstant, elapsed),
	)
	return result, nil
}

func (executor *ShellExecutor) observeDuration(command ShellCommand, elapsed time.Duration, succeeded bool) {
	if executor.durationObserver == nil || command.Name != CommandGit {
		return
	}
	executor.durationObserver.ObserveGitCommand(gitSubcommand(command.Details.Arguments), elapsed, succeeded)
}

// FailedResult extracts the process result carried by a CommandFailedError.
func FailedResult(err error) (ExecutionResult, bool) {
	var failure CommandFailedError
	if errors.As(err, &failure) {
		return failure.Result, true
	}
	return ExecutionResult{}, false
}

func formatCommandLabel(command ShellCommand) string {
	if len(command.Details.Arguments) == 0 {
		return string(command.Name)
	}
	return string(command.Name) + commandLabelSeparatorConstant + strings.Join(command.Details.Arguments, commandLabelSeparatorConstant)
}
