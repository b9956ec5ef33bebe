package gitworkspace

import (
	"context"
	"errors"
	"strings"

	"github.com/temirov/depflow/internal/execshell"
	"github.com/temirov/depflow/internal/gitprovider"
)

const (
	gitCatFileSubcommandConstant         = "cat-file"
	gitCatFileTypeFlagConstant           = "-t"
	gitBranchSubcommandConstant          = "branch"
	gitBranchAllFlagConstant             = "-a"
	gitBranchListFlagConstant            = "--list"
	gitRemoteBranchPatternPrefixConstant = "*/"
	gitRevParseSubcommandConstant        = "rev-parse"
	gitShowTopLevelFlagConstant          = "--show-toplevel"
	gitAbbrevRefFlagConstant             = "--abbrev-ref"
)

// GitObjectType is the resolved kind of a ref.
type GitObjectType string

// Ref kinds.
const (
	GitObjectTypeCommit    GitObjectType = GitObjectType("commit")
	GitObjectTypeBlob      GitObjectType = GitObjectType("blob")
	GitObjectTypeTree      GitObjectType = GitObjectType("tree")
	GitObjectTypeTag       GitObjectType = GitObjectType("tag")
	GitObjectTypeRemoteRef GitObjectType = GitObjectType("remote-ref")
	GitObjectTypeUnknown   GitObjectType = GitObjectType("unknown")
)

var terminalObjectTypes = map[string]GitObjectType{
	string(GitObjectTypeCommit): GitObjectTypeCommit,
	string(GitObjectTypeBlob):   GitObjectTypeBlob,
	string(GitObjectTypeTree):   GitObjectTypeTree,
	string(GitObjectTypeTag):    GitObjectTypeTag,
}

// GetRefType classifies ref. A recognized object type reported by cat-file is
// final; otherwise remote branches are searched for the ref.
func (workspace *Workspace) GetRefType(executionContext context.Context, repositoryPath string, ref string) (GitObjectType, error) {
	catFileArguments := []string{gitCatFileSubcommandConstant, gitCatFileTypeFlagConstant, ref}
	result, catFileError := workspace.executeGit(executionContext, repositoryPath, catFileArguments, nil)
	if catFileError == nil {
		if objectType, recognized := terminalObjectTypes[strings.TrimSpace(result.StandardOutput)]; recognized {
			return objectType, nil
		}
	} else if !isProcessExit(catFileError) {
		return GitObjectTypeUnknown, newProcessFailure(repositoryPath, gitCatFileSubcommandConstant, catFileArguments, catFileError)
	}

	branchArguments := []string{gitBranchSubcommandConstant, gitBranchAllFlagConstant, gitBranchListFlagConstant, gitRemoteBranchPatternPrefixConstant + ref}
	branchResult, branchError := workspace.runGit(executionContext, repositoryPath, gitBranchSubcommandConstant, branchArguments, nil)
	if branchError != nil {
		return GitObjectTypeUnknown, branchError
	}
	if strings.Contains(branchResult.StandardOutput, ref) {
		return GitObjectTypeRemoteRef, nil
	}
	return GitObjectTypeUnknown, nil
}

// GetSHAForRef resolves ref, or HEAD when ref is empty. Prefixes of the empty
// tree hash are returned unchanged without running git.
func (workspace *Workspace) GetSHAForRef(executionContext context.Context, repositoryPath string, ref string) (string, error) {
	if len(ref) > 0 && strings.HasPrefix(gitprovider.EmptyGitObject, ref) {
		return ref, nil
	}
	revision := ref
	if len(revision) == 0 {
		revision = headReferenceConstant
	}
	result, revParseError := workspace.runGit(executionContext, repositoryPath, gitRevParseSubcommandConstant, []string{gitRevParseSubcommandConstant, revision}, nil)
	if revParseError != nil {
		return "", revParseError
	}
	return strings.TrimSpace(result.StandardOutput), nil
}

// GetRootDir returns the top-level directory of the repository containing repositoryPath.
func (workspace *Workspace) GetRootDir(executionContext context.Context, repositoryPath string) (string, error) {
	result, revParseError := workspace.runGit(executionContext, repositoryPath, gitRevParseSubcommandConstant, []string{gitRevParseSubcommandConstant, gitShowTopLevelFlagConstant}, nil)
	if revParseError != nil {
		return "", revParseError
	}
	return strings.TrimSpace(result.StandardOutput), nil
}

// GetCheckedOutBranch returns the short name of HEAD.
func (workspace *Workspace) GetCheckedOutBranch(executionContext context.Context, repositoryPath string) (string, error) {
	arguments := []string{gitRevParseSubcommandConstant, gitAbbrevRefFlagConstant, headReferenceConstant}
	result, revParseError := workspace.runGit(executionContext, repositoryPath, gitRevParseSubcommandConstant, arguments, nil)
	if revParseError != nil {
		return "", revParseError
	}
	return strings.TrimSpace(result.StandardOutput), nil
}

// isProcessExit reports whether err came from a process that ran and exited
// unsuccessfully, as opposed to one that could not run or was cancelled.
func isProcessExit(err error) bool {
	var failure execshell.CommandFailedError
	return errors.As(err, &failure)
}

// exitCode returns the exit code carried by err, when err came from a process that ran.
func exitCode(err error) (int, bool) {
	result, found := execshell.FailedResult(err)
	if !found || result.TimedOut {
		return 0, false
	}
	return result.ExitCode, true
}
