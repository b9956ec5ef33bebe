package execshell

import (
	"fmt"
	"strings"
)

type messageStage int

const (
	messageStageStart messageStage = iota
	messageStageSuccess
	messageStageFailure
	messageStageExecutionFailure
)

const (
	emptyStringConstant                      = ""
	commandArgumentsJoinSeparatorConstant    = " "
	commandLabelTemplateConstant             = "%s%s"
	workingDirectorySuffixTemplateConstant   = " (in %s)"
	standardErrorSuffixTemplateConstant      = ": %s"
	timedOutSuffixConstant                   = " (timed out)"
	defaultWorkingDirectoryLabelConstant     = "current directory"
	unknownFailureMessageConstant            = "unknown failure"
	fallbackUnknownValueLabelConstant        = "unknown"
	unknownGitSubcommandConstant             = "unknown"
	gitOptionPrefixConstant                  = "-"
	gitConfigEnvironmentOptionPrefixConstant = "--config-env"
	gitConfigShortOptionConstant             = "-c"
	gitDirectoryShortOptionConstant          = "-C"

	genericStartTemplateConstant            = "Running %s"
	genericSuccessTemplateConstant          = "Completed %s"
	genericFailureTemplateConstant          = "%s failed with exit code %d%s"
	genericExecutionFailureTemplateConstant = "%s failed: %s"

	gitRevParseSubcommandNameConstant  = "rev-parse"
	gitCatFileSubcommandNameConstant   = "cat-file"
	gitShowSubcommandNameConstant      = "show"
	gitCheckoutSubcommandNameConstant  = "checkout"
	gitCleanSubcommandNameConstant     = "clean"
	gitRemoteSubcommandNameConstant    = "remote"
	gitMergeBaseSubcommandNameConstant = "merge-base"
	gitFetchSubcommandNameConstant     = "fetch"
	gitCloneSubcommandNameConstant     = "clone"
	gitShowTopLevelFlagConstant        = "--show-toplevel"
	gitAbbrevRefFlagConstant           = "--abbrev-ref"
	gitIsAncestorFlagConstant          = "--is-ancestor"

	gitRootDirectoryStartTemplateConstant            = "Resolving repository root for %s"
	gitRootDirectorySuccessTemplateConstant          = "Resolved repository root for %s"
	gitRootDirectoryFailureTemplateConstant          = "%s is not inside a git repository (exit code %d%s)"
	gitRootDirectoryExecutionFailureTemplateConstant = "Unable to resolve repository root for %s: %s"

	gitCurrentBranchStartTemplateConstant            = "Resolving checked out branch in %s"
	gitCurrentBranchSuccessTemplateConstant          = "Checked out branch in %s is %s"
	gitCurrentBranchFailureTemplateConstant          = "Failed to resolve checked out branch in %s (exit code %d%s)"
	gitCurrentBranchExecutionFailureTemplateConstant = "Unable to resolve checked out branch in %s: %s"

	gitRevisionStartTemplateConstant            = "Resolving %s in %s"
	gitRevisionSuccessTemplateConstant          = "Resolved %s in %s to %s"
	gitRevisionFailureTemplateConstant          = "Failed to resolve %s in %s (exit code %d%s)"
	gitRevisionExecutionFailureTemplateConstant = "Unable to resolve %s in %s: %s"

	gitObjectTypeStartTemplateConstant            = "Inspecting object type of %s in %s"
	gitObjectTypeSuccessTemplateConstant          = "%s in %s is a %s"
	gitObjectTypeFailureTemplateConstant          = "%s is not an object in %s (exit code %d%s)"
	gitObjectTypeExecutionFailureTemplateConstant = "Unable to inspect %s in %s: %s"

	gitShowStartTemplateConstant            = "Reading %s in %s"
	gitShowSuccessTemplateConstant          = "Read %s in %s"
	gitShowFailureTemplateConstant          = "Failed to read %s in %s (exit code %d%s)"
	gitShowExecutionFailureTemplateConstant = "Unable to read %s in %s: %s"

	gitCheckoutStartTemplateConstant            = "Checking out %s in %s"
	gitCheckoutSuccessTemplateConstant          = "Checked out %s in %s"
	gitCheckoutFailureTemplateConstant          = "Failed to check out %s in %s (exit code %d%s)"
	gitCheckoutExecutionFailureTemplateConstant = "Unable to check out %s in %s: %s"

	gitCleanStartTemplateConstant            = "Removing untracked files under %s in %s"
	gitCleanSuccessTemplateConstant          = "Removed untracked files under %s in %s"
	gitCleanFailureTemplateConstant          = "Failed to remove untracked files under %s in %s (exit code %d%s)"
	gitCleanExecutionFailureTemplateConstant = "Unable to remove untracked files under %s in %s: %s"

	gitRemoteListStartTemplateConstant            = "Listing remotes in %s"
	gitRemoteListSuccessTemplateConstant          = "Listed remotes in %s"
	gitRemoteListFailureTemplateConstant          = "Failed to list remotes in %s (exit code %d%s)"
	gitRemoteListExecutionFailureTemplateConstant = "Unable to list remotes in %s: %s"

	gitAncestorStartTemplateConstant            = "Checking whether %s is an ancestor of %s in %s"
	gitAncestorSuccessTemplateConstant          = "%s is an ancestor of %s in %s"
	gitAncestorFailureTemplateConstant          = "%s is not an ancestor of %s in %s (exit code %d%s)"
	gitAncestorExecutionFailureTemplateConstant = "Unable to check ancestry of %s and %s in %s: %s"

	gitFetchStartTemplateConstant            = "Fetching %s into %s"
	gitFetchSuccessTemplateConstant          = "Fetched %s into %s"
	gitFetchFailureTemplateConstant          = "Failed to fetch %s into %s (exit code %d%s)"
	gitFetchExecutionFailureTemplateConstant = "Unable to fetch %s into %s: %s"

	gitCloneStartTemplateConstant            = "Cloning %s"
	gitCloneSuccessTemplateConstant          = "Cloned %s"
	gitCloneFailureTemplateConstant          = "Failed to clone %s (exit code %d%s)"
	gitCloneExecutionFailureTemplateConstant = "Unable to clone %s: %s"
)

// stageTemplates holds the four lifecycle templates for one kind of command.
type stageTemplates struct {
	start            string
	success          string
	failure          string
	executionFailure string
}

// CommandMessageFormatter builds human-readable messages for command lifecycle events.
type CommandMessageFormatter struct{}

// BuildStartedMessage formats the message describing a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageStart)
}

// BuildSuccessMessage formats the message describing a completed command with a zero exit code.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageSuccess)
}

// BuildFailureMessage formats the message describing a command that returned a non-zero exit code or timed out.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.buildMessage(command, result, nil, messageStageFailure)
}

// BuildExecutionFailureMessage formats the message describing an unexpected execution failure.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, failure error) string {
	return formatter.buildMessage(command, ExecutionResult{}, failure, messageStageExecutionFailure)
}

func (formatter CommandMessageFormatter) buildMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	if command.Name != CommandGit {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
	return formatter.describeGitMessage(command, result, failure, stage)
}

func (formatter CommandMessageFormatter) describeGitMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	arguments := gitSubcommandArguments(command.Details.Arguments)
	if len(arguments) == 0 {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
	workingDirectory := formatter.describeWorkingDirectory(command)
	operands := positionalArguments(arguments[1:])

	switch arguments[0] {
	case gitRevParseSubcommandNameConstant:
		if containsArgument(arguments, gitShowTopLevelFlagConstant) {
			return formatter.render(stage, result, failure, gitRootDirectoryTemplates, workingDirectory)
		}
		if containsArgument(arguments, gitAbbrevRefFlagConstant) {
			if stage == messageStageSuccess {
				return fmt.Sprintf(gitCurrentBranchSuccessTemplateConstant, workingDirectory, formatter.ensureValue(result.StandardOutput))
			}
			return formatter.render(stage, result, failure, gitCurrentBranchTemplates, workingDirectory)
		}
		revision := formatter.lastValue(operands)
		if stage == messageStageSuccess {
			return fmt.Sprintf(gitRevisionSuccessTemplateConstant, revision, workingDirectory, formatter.ensureValue(result.StandardOutput))
		}
		return formatter.render(stage, result, failure, gitRevisionTemplates, revision, workingDirectory)
	case gitCatFileSubcommandNameConstant:
		object := formatter.lastValue(operands)
		if stage == messageStageSuccess {
			return fmt.Sprintf(gitObjectTypeSuccessTemplateConstant, object, workingDirectory, formatter.ensureValue(result.StandardOutput))
		}
		return formatter.render(stage, result, failure, gitObjectTypeTemplates, object, workingDirectory)
	case gitShowSubcommandNameConstant:
		return formatter.render(stage, result, failure, gitShowTemplates, formatter.lastValue(operands), workingDirectory)
	case gitCheckoutSubcommandNameConstant:
		return formatter.render(stage, result, failure, gitCheckoutTemplates, formatter.lastValue(operands), workingDirectory)
	case gitCleanSubcommandNameConstant:
		return formatter.render(stage, result, failure, gitCleanTemplates, formatter.lastValue(operands), workingDirectory)
	case gitRemoteSubcommandNameConstant:
		if len(operands) == 0 {
			return formatter.render(stage, result, failure, gitRemoteListTemplates, workingDirectory)
		}
	case gitMergeBaseSubcommandNameConstant:
		if containsArgument(arguments, gitIsAncestorFlagConstant) && len(operands) >= 2 {
			return formatter.render(stage, result, failure, gitAncestorTemplates, operands[0], operands[1], workingDirectory)
		}
	case gitFetchSubcommandNameConstant:
		return formatter.render(stage, result, failure, gitFetchTemplates, formatter.lastValue(operands), workingDirectory)
	case gitCloneSubcommandNameConstant:
		return formatter.render(stage, result, failure, gitCloneTemplates, formatter.firstValue(operands))
	}

	return formatter.buildGenericMessage(command, result, failure, stage)
}

var (
	gitRootDirectoryTemplates = stageTemplates{gitRootDirectoryStartTemplateConstant, gitRootDirectorySuccessTemplateConstant, gitRootDirectoryFailureTemplateConstant, gitRootDirectoryExecutionFailureTemplateConstant}
	gitCurrentBranchTemplates = stageTemplates{gitCurrentBranchStartTemplateConstant, gitCurrentBranchSuccessTemplateConstant, gitCurrentBranchFailureTemplateConstant, gitCurrentBranchExecutionFailureTemplateConstant}
	gitRevisionTemplates      = stageTemplates{gitRevisionStartTemplateConstant, gitRevisionSuccessTemplateConstant, gitRevisionFailureTemplateConstant, gitRevisionExecutionFailureTemplateConstant}
	gitObjectTypeTemplates    = stageTemplates{gitObjectTypeStartTemplateConstant, gitObjectTypeSuccessTemplateConstant, gitObjectTypeFailureTemplateConstant, gitObjectTypeExecutionFailureTemplateConstant}
	gitShowTemplates          = stageTemplates{gitShowStartTemplateConstant, gitShowSuccessTemplateConstant, gitShowFailureTemplateConstant, gitShowExecutionFailureTemplateConstant}
	gitCheckoutTemplates      = stageTemplates{gitCheckoutStartTemplateConstant, gitCheckoutSuccessTemplateConstant, gitCheckoutFailureTemplateConstant, gitCheckoutExecutionFailureTemplateConstant}
	gitCleanTemplates         = stageTemplates{gitCleanStartTemplateConstant, gitCleanSuccessTemplateConstant, gitCleanFailureTemplateConstant, gitCleanExecutionFailureTemplateConstant}
	gitRemoteListTemplates    = stageTemplates{gitRemoteListStartTemplateConstant, gitRemoteListSuccessTemplateConstant, gitRemoteListFailureTemplateConstant, gitRemoteListExecutionFailureTemplateConstant}
	gitAncestorTemplates      = stageTemplates{gitAncestorStartTemplateConstant, gitAncestorSuccessTemplateConstant, gitAncestorFailureTemplateConstant, gitAncestorExecutionFailureTemplateConstant}
	gitFetchTemplates         = stageTemplates{gitFetchStartTemplateConstant, gitFetchSuccessTemplateConstant, gitFetchFailureTemplateConstant, gitFetchExecutionFailureTemplateConstant}
	gitCloneTemplates         = stageTemplates{gitCloneStartTemplateConstant, gitCloneSuccessTemplateConstant, gitCloneFailureTemplateConstant, gitCloneExecutionFailureTemplateConstant}
)

// render expands the template for stage. Failure templates receive the exit
// code and stderr suffix after the subject values; execution failure templates
// receive the failure description.
func (formatter CommandMessageFormatter) render(stage messageStage, result ExecutionResult, failure error, templates stageTemplates, subjects ...string) string {
	values := make([]any, 0, len(subjects)+2)
	for _, subject := range subjects {
		values = append(values, subject)
	}
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(templates.start, values...)
	case messageStageSuccess:
		return fmt.Sprintf(templates.success, values...)
	case messageStageFailure:
		values = append(values, result.ExitCode, formatter.formatResultSuffix(result))
		return fmt.Sprintf(templates.failure, values...)
	case messageStageExecutionFailure:
		values = append(values, formatter.describeFailure(failure))
		return fmt.Sprintf(templates.executionFailure, values...)
	default:
		return emptyStringConstant
	}
}

func (formatter CommandMessageFormatter) buildGenericMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	commandLabel := formatter.formatCommandLabel(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(genericStartTemplateConstant, commandLabel)
	case messageStageSuccess:
		return fmt.Sprintf(genericSuccessTemplateConstant, commandLabel)
	case messageStageFailure:
		return fmt.Sprintf(genericFailureTemplateConstant, commandLabel, result.ExitCode, formatter.formatResultSuffix(result))
	case messageStageExecutionFailure:
		return fmt.Sprintf(genericExecutionFailureTemplateConstant, commandLabel, formatter.describeFailure(failure))
	default:
		return emptyStringConstant
	}
}

func (formatter CommandMessageFormatter) formatCommandLabel(command ShellCommand) string {
	commandLabel := string(command.Name)
	if len(command.Details.Arguments) > 0 {
		commandLabel = fmt.Sprintf("%s %s", commandLabel, strings.Join(command.Details.Arguments, commandArgumentsJoinSeparatorConstant))
	}
	return fmt.Sprintf(commandLabelTemplateConstant, commandLabel, formatter.formatWorkingDirectorySuffix(command))
}

func (formatter CommandMessageFormatter) formatWorkingDirectorySuffix(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(workingDirectorySuffixTemplateConstant, trimmedWorkingDirectory)
}

func (formatter CommandMessageFormatter) formatResultSuffix(result ExecutionResult) string {
	suffix := emptyStringConstant
	if result.TimedOut {
		suffix = timedOutSuffixConstant
	}
	trimmedStandardError := strings.TrimSpace(result.StandardError)
	if len(trimmedStandardError) == 0 {
		return suffix
	}
	return suffix + fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmedStandardError)
}

func (formatter CommandMessageFormatter) describeWorkingDirectory(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return defaultWorkingDirectoryLabelConstant
	}
	return trimmedWorkingDirectory
}

func (formatter CommandMessageFormatter) describeFailure(failure error) string {
	if failure == nil {
		return unknownFailureMessageConstant
	}
	return failure.Error()
}

func (formatter CommandMessageFormatter) ensureValue(value string) string {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) == 0 {
		return fallbackUnknownValueLabelConstant
	}
	return trimmed
}

func (formatter CommandMessageFormatter) firstValue(values []string) string {
	if len(values) == 0 {
		return fallbackUnknownValueLabelConstant
	}
	return formatter.ensureValue(values[0])
}

func (formatter CommandMessageFormatter) lastValue(values []string) string {
	if len(values) == 0 {
		return fallbackUnknownValueLabelConstant
	}
	return formatter.ensureValue(values[len(values)-1])
}

func containsArgument(arguments []string, value string) bool {
	for _, argument := range arguments {
		if strings.TrimSpace(argument) == value {
			return true
		}
	}
	return false
}

// positionalArguments drops options and the "--" separator.
func positionalArguments(arguments []string) []string {
	positional := make([]string, 0, len(arguments))
	for _, argument := range arguments {
		trimmed := strings.TrimSpace(argument)
		if len(trimmed) == 0 || strings.HasPrefix(trimmed, gitOptionPrefixConstant) {
			continue
		}
		positional = append(positional, trimmed)
	}
	return positional
}

// gitSubcommandArguments strips global options such as --config-env=... and
// -c key=value that precede the subcommand.
func gitSubcommandArguments(arguments []string) []string {
	for index := 0; index < len(arguments); index++ {
		trimmed := strings.TrimSpace(arguments[index])
		switch {
		case trimmed == gitConfigShortOptionConstant || trimmed == gitDirectoryShortOptionConstant:
			index++
		case strings.HasPrefix(trimmed, gitConfigEnvironmentOptionPrefixConstant):
			continue
		case strings.HasPrefix(trimmed, gitOptionPrefixConstant):
			continue
		case len(trimmed) == 0:
			continue
		default:
			remaining := append([]string{trimmed}, arguments[index+1:]...)
			return remaining
		}
	}
	return nil
}

func gitSubcommand(arguments []string) string {
	subcommandArguments := gitSubcommandArguments(arguments)
	if len(subcommandArguments) == 0 {
		return unknownGitSubcommandConstant
	}
	return subcommandArguments[0]
}
