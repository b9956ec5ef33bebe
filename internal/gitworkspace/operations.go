package gitworkspace

import (
	"context"
	"fmt"
	"strings"
)

const (
	gitMergeBaseSubcommandConstant     = "merge-base"
	gitIsAncestorFlagConstant          = "--is-ancestor"
	gitAddSubcommandConstant           = "add"
	gitCommitSubcommandConstant        = "commit"
	gitMessageFlagConstant             = "-m"
	gitAllowEmptyFlagConstant          = "--allow-empty"
	gitAuthorFlagConstant              = "--author"
	gitForceFlagConstant               = "-f"
	gitCreateBranchFlagConstant        = "-b"
	gitResetBranchFlagConstant         = "-B"
	gitDeleteBranchFlagConstant        = "-D"
	gitPullSubcommandConstant          = "pull"
	gitConfigSubcommandConstant        = "config"
	gitConfigGetFlagConstant           = "--get"
	gitBlameSubcommandConstant         = "blame"
	gitFirstParentFlagConstant         = "--first-parent"
	gitBlameShortLineFlagConstant      = "-slL"
	gitOursFlagConstant                = "--ours"
	gitTheirsFlagConstant              = "--theirs"
	gitFetchSubcommandConstant         = "fetch"
	gitDiffSubcommandConstant          = "diff"
	gitExitCodeFlagConstant            = "--exit-code"
	authorTemplateConstant             = "%s <%s>"
	blameLineRangeTemplateConstant     = "%d,%d"
	notAncestorExitCodeConstant        = 1
	configValueMissingExitCodeConstant = 1
	diffChangesExitCodeConstant        = 1
)

// IsAncestor reports whether ancestor is reachable from descendant. Exit code
// 1 means it is not; any other failure is returned as AncestryError.
func (workspace *Workspace) IsAncestor(executionContext context.Context, repositoryPath string, ancestor string, descendant string) (bool, error) {
	arguments := []string{gitMergeBaseSubcommandConstant, gitIsAncestorFlagConstant, ancestor, descendant}
	_, mergeBaseError := workspace.executeGit(executionContext, repositoryPath, arguments, nil)
	if mergeBaseError == nil {
		return true, nil
	}
	if code, exited := exitCode(mergeBaseError); exited && code == notAncestorExitCodeConstant {
		return false, nil
	}
	return false, AncestryError{Ancestor: ancestor, Descendant: descendant, RepoPath: repositoryPath, Cause: mergeBaseError}
}

// Stage adds paths to the index.
func (workspace *Workspace) Stage(executionContext context.Context, repositoryPath string, paths ...string) error {
	arguments := append([]string{gitAddSubcommandConstant}, paths...)
	_, stageError := workspace.runGit(executionContext, repositoryPath, gitAddSubcommandConstant, arguments, nil)
	return stageError
}

// Commit records the index. A zero author falls back to the configured identity.
func (workspace *Workspace) Commit(executionContext context.Context, repositoryPath string, message string, allowEmpty bool, author Identity) error {
	if len(strings.TrimSpace(author.Name)) == 0 {
		author = workspace.author
	}
	arguments := []string{gitCommitSubcommandConstant, gitMessageFlagConstant, message}
	if allowEmpty {
		arguments = append(arguments, gitAllowEmptyFlagConstant)
	}
	arguments = append(arguments, gitAuthorFlagConstant, fmt.Sprintf(authorTemplateConstant, author.Name, author.Email))
	_, commitError := workspace.runGit(executionContext, repositoryPath, gitCommitSubcommandConstant, arguments, nil)
	return commitError
}

// Checkout switches the working tree to ref.
func (workspace *Workspace) Checkout(executionContext context.Context, repositoryPath string, ref string, force bool) error {
	arguments := []string{gitCheckoutSubcommandConstant}
	if force {
		arguments = append(arguments, gitForceFlagConstant)
	}
	arguments = append(arguments, ref)
	_, checkoutError := workspace.runGit(executionContext, repositoryPath, gitCheckoutSubcommandConstant, arguments, nil)
	return checkoutError
}

// CreateBranch creates and checks out branchName, resetting it when overwrite is set.
func (workspace *Workspace) CreateBranch(executionContext context.Context, repositoryPath string, branchName string, overwrite bool) error {
	flag := gitCreateBranchFlagConstant
	if overwrite {
		flag = gitResetBranchFlagConstant
	}
	_, branchError := workspace.runGit(executionContext, repositoryPath, gitCheckoutSubcommandConstant, []string{gitCheckoutSubcommandConstant, flag, branchName}, nil)
	return branchError
}

// DeleteBranch force-deletes a local branch.
func (workspace *Workspace) DeleteBranch(executionContext context.Context, repositoryPath string, branchName string) error {
	_, deleteError := workspace.runGit(executionContext, repositoryPath, gitBranchSubcommandConstant, []string{gitBranchSubcommandConstant, gitDeleteBranchFlagConstant, branchName}, nil)
	return deleteError
}

// Pull pulls the current branch.
func (workspace *Workspace) Pull(executionContext context.Context, repositoryPath string) error {
	_, pullError := workspace.runGit(executionContext, repositoryPath, gitPullSubcommandConstant, []string{gitPullSubcommandConstant}, nil)
	return pullError
}

// GetConfigValue reads a git config value. An unset key yields an empty string.
func (workspace *Workspace) GetConfigValue(executionContext context.Context, repositoryPath string, key string) (string, error) {
	arguments := []string{gitConfigSubcommandConstant, gitConfigGetFlagConstant, key}
	result, configError := workspace.executeGit(executionContext, repositoryPath, arguments, nil)
	if configError != nil {
		if code, exited := exitCode(configError); exited && code == configValueMissingExitCodeConstant {
			return "", nil
		}
		return "", newProcessFailure(repositoryPath, gitConfigSubcommandConstant, arguments, configError)
	}
	return strings.TrimSpace(result.StandardOutput), nil
}

// SetConfigValue writes a repository-level git config value.
func (workspace *Workspace) SetConfigValue(executionContext context.Context, repositoryPath string, key string, value string) error {
	_, configError := workspace.runGit(executionContext, repositoryPath, gitConfigSubcommandConstant, []string{gitConfigSubcommandConstant, key, value}, nil)
	return configError
}

// BlameLine returns the commit that last changed line of filePath along the first-parent history.
func (workspace *Workspace) BlameLine(executionContext context.Context, repositoryPath string, filePath string, line int) (string, error) {
	lineRange := fmt.Sprintf(blameLineRangeTemplateConstant, line, line)
	arguments := []string{gitBlameSubcommandConstant, gitFirstParentFlagConstant, gitBlameShortLineFlagConstant, lineRange, filePath}
	result, blameError := workspace.runGit(executionContext, repositoryPath, gitBlameSubcommandConstant, arguments, nil)
	if blameError != nil {
		return "", blameError
	}
	fields := strings.Fields(strings.TrimSpace(result.StandardOutput))
	if len(fields) == 0 {
		return "", nil
	}
	return strings.TrimPrefix(fields[0], "^"), nil
}

// ResolveConflict checks out one side of a conflicted file and stages it.
func (workspace *Workspace) ResolveConflict(executionContext context.Context, repositoryPath string, filePath string, ours bool) error {
	side := gitTheirsFlagConstant
	if ours {
		side = gitOursFlagConstant
	}
	if _, checkoutError := workspace.runGit(executionContext, repositoryPath, gitCheckoutSubcommandConstant, []string{gitCheckoutSubcommandConstant, side, filePath}, nil); checkoutError != nil {
		return checkoutError
	}
	return workspace.Stage(executionContext, repositoryPath, filePath)
}

// Fetch fetches remoteURL into repositoryPath, authenticating when a token is available.
func (workspace *Workspace) Fetch(executionContext context.Context, repositoryPath string, remoteURL string) error {
	environment := map[string]string{}
	arguments := workspace.AddGitAuthHeader(executionContext, []string{gitFetchSubcommandConstant, remoteURL}, environment, remoteURL)
	_, fetchError := workspace.runGit(executionContext, repositoryPath, gitFetchSubcommandConstant, arguments, environment)
	return fetchError
}

// GetFileFromGit reads path at revision. A revision or path unknown to git
// yields found == false without an error.
func (workspace *Workspace) GetFileFromGit(executionContext context.Context, repositoryPath string, revision string, path string) (string, bool, error) {
	arguments := []string{gitShowSubcommandConstant, revision + revisionPathSeparatorConstant + path}
	result, showError := workspace.executeGit(executionContext, repositoryPath, arguments, nil)
	if showError != nil {
		if isProcessExit(showError) {
			return "", false, nil
		}
		return "", false, newProcessFailure(repositoryPath, gitShowSubcommandConstant, arguments, showError)
	}
	return result.StandardOutput, true, nil
}

// HasWorkingTreeChanges reports whether tracked files differ from the index.
func (workspace *Workspace) HasWorkingTreeChanges(executionContext context.Context, repositoryPath string) (bool, error) {
	arguments := []string{gitDiffSubcommandConstant, gitExitCodeFlagConstant}
	_, diffError := workspace.executeGit(executionContext, repositoryPath, arguments, nil)
	if diffError == nil {
		return false, nil
	}
	if code, exited := exitCode(diffError); exited && code == diffChangesExitCodeConstant {
		return true, nil
	}
	return false, newProcessFailure(repositoryPath, gitDiffSubcommandConstant, arguments, diffError)
}
