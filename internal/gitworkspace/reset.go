package gitworkspace

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

const (
	gitCheckoutSubcommandConstant            = "checkout"
	gitCleanSubcommandConstant               = "clean"
	gitCleanForceFlagsConstant               = "-xdf"
	unmatchedPathspecTemplateConstant        = "pathspec '%s' did not match any file(s) known to git"
	removeUnmatchedPathMessageConstant       = "Checkout did not match path; removing it from disk"
	unmatchedRootMessageConstant             = "Checkout matched nothing at repository root; cleaning only"
	removeUnmatchedPathErrorTemplateConstant = "failed to remove %s after unmatched checkout: %w"
)

// ResetAction is the outcome of a failed checkout during a working tree reset.
type ResetAction int

// Reset actions.
const (
	ResetActionFail ResetAction = iota
	ResetActionRecover
	ResetActionClean
)

// ResetDecision tells ResetWorkingTree how to proceed after checkout fails.
type ResetDecision struct {
	Action ResetAction
}

// decideResetRecovery recovers from an unmatched pathspec. A path below the
// repository root is deleted; the root itself is only cleaned.
func decideResetRecovery(standardError string, relativePath string) ResetDecision {
	if !strings.Contains(standardError, fmt.Sprintf(unmatchedPathspecTemplateConstant, pathspecOrCurrentDirectory(relativePath))) {
		return ResetDecision{Action: ResetActionFail}
	}
	if isRepositoryRoot(relativePath) {
		return ResetDecision{Action: ResetActionClean}
	}
	return ResetDecision{Action: ResetActionRecover}
}

// ResetWorkingTree discards changes under relativePath, or the whole working
// tree when relativePath is empty, then removes untracked files there. A path
// unknown to git is deleted from disk instead of failing the checkout.
func (workspace *Workspace) ResetWorkingTree(executionContext context.Context, repositoryPath string, relativePath string) error {
	pathspec := pathspecOrCurrentDirectory(relativePath)

	checkoutArguments := []string{gitCheckoutSubcommandConstant, pathspec}
	if _, checkoutError := workspace.executeGit(executionContext, repositoryPath, checkoutArguments, nil); checkoutError != nil {
		failure := newProcessFailure(repositoryPath, gitCheckoutSubcommandConstant, checkoutArguments, checkoutError)
		if !isProcessExit(checkoutError) {
			return failure
		}
		switch decideResetRecovery(failure.Result.StandardError, relativePath).Action {
		case ResetActionFail:
			return failure
		case ResetActionClean:
			workspace.logger.Debug(unmatchedRootMessageConstant, zap.String(logFieldRepositoryPathConstant, repositoryPath))
			return workspace.cleanWorkingTree(executionContext, repositoryPath, pathspec)
		}

		absolutePath := filepath.Join(repositoryPath, relativePath)
		workspace.logger.Info(removeUnmatchedPathMessageConstant,
			zap.String(logFieldRepositoryPathConstant, repositoryPath),
			zap.String(logFieldRelativePathConstant, relativePath),
		)
		if removeError := workspace.fileSystem.RemoveAll(absolutePath); removeError != nil {
			return fmt.Errorf(removeUnmatchedPathErrorTemplateConstant, absolutePath, removeError)
		}
	}

	return workspace.cleanWorkingTree(executionContext, repositoryPath, pathspec)
}

func (workspace *Workspace) cleanWorkingTree(executionContext context.Context, repositoryPath string, pathspec string) error {
	cleanArguments := []string{gitCleanSubcommandConstant, gitCleanForceFlagsConstant, pathspec}
	_, cleanError := workspace.runGit(executionContext, repositoryPath, gitCleanSubcommandConstant, cleanArguments, nil)
	return cleanError
}
