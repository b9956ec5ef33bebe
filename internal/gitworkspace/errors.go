package gitworkspace

import (
	"fmt"
	"strings"

	"github.com/temirov/depflow/internal/execshell"
)

const (
	processFailureTemplateConstant   = "git %s failed in %s [%s]: %v"
	invalidSubmoduleTemplateConstant = "submodule %q is missing its %s"
	ancestryErrorTemplateConstant    = "unable to determine whether %s is an ancestor of %s in %s: %v"
	argumentsSeparatorConstant       = " "
	submoduleFieldURLConstant        = "URL"
	submoduleFieldPathConstant       = "path"
)

// ProcessFailure reports an unsuccessful git invocation, naming the repository
// and the operation's key arguments.
type ProcessFailure struct {
	RepoPath  string
	Operation string
	Arguments []string
	Result    execshell.ExecutionResult
	Cause     error
}

func newProcessFailure(repositoryPath string, operation string, arguments []string, cause error) ProcessFailure {
	result, _ := execshell.FailedResult(cause)
	return ProcessFailure{
		RepoPath:  repositoryPath,
		Operation: operation,
		Arguments: append([]string{}, arguments...),
		Result:    result,
		Cause:     cause,
	}
}

// Error describes the failure.
func (failure ProcessFailure) Error() string {
	return fmt.Sprintf(processFailureTemplateConstant, failure.Operation, failure.RepoPath, strings.Join(failure.Arguments, argumentsSeparatorConstant), failure.Cause)
}

// Unwrap exposes the underlying execshell error.
func (failure ProcessFailure) Unwrap() error {
	return failure.Cause
}

// InvalidSubmoduleError reports a .gitmodules record without a url or path.
type InvalidSubmoduleError struct {
	Name  string
	Field string
}

// Error describes the incomplete submodule record.
func (invalidSubmodule InvalidSubmoduleError) Error() string {
	return fmt.Sprintf(invalidSubmoduleTemplateConstant, invalidSubmodule.Name, invalidSubmodule.Field)
}

// AncestryError reports that merge-base could not compare two commits.
type AncestryError struct {
	Ancestor   string
	Descendant string
	RepoPath   string
	Cause      error
}

// Error describes the failed comparison.
func (ancestryError AncestryError) Error() string {
	return fmt.Sprintf(ancestryErrorTemplateConstant, ancestryError.Ancestor, ancestryError.Descendant, ancestryError.RepoPath, ancestryError.Cause)
}

// Unwrap exposes the underlying execshell error.
func (ancestryError AncestryError) Unwrap() error {
	return ancestryError.Cause
}
