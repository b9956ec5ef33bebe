package gitworkspace

import (
	"context"
	"path"
	"strings"

	"github.com/temirov/depflow/internal/gitprovider"
)

const (
	gitCloneSubcommandConstant     = "clone"
	gitNoCheckoutFlagConstant      = "--no-checkout"
	gitSubmoduleSubcommandConstant = "submodule"
	gitSubmoduleUpdateConstant     = "update"
	gitSubmoduleInitFlagConstant   = "--init"
	gitRecursiveFlagConstant       = "--recursive"
	gitLsTreeSubcommandConstant    = "ls-tree"
	gitLsTreeRecursiveFlagConstant = "-r"
	gitNullTerminatedFlagConstant  = "-z"
	lsTreeRecordSeparatorConstant  = "\x00"
	gitPathspecSeparatorConstant   = "--"
	lsTreeBlobTypeConstant         = "blob"
	lsTreeFieldCountConstant       = 3
)

var _ gitprovider.Repository = (*Workspace)(nil)

// GetFileContents reads filePath at ref from the repository at repositoryPath.
func (workspace *Workspace) GetFileContents(executionContext context.Context, filePath string, repositoryPath string, ref string) (string, error) {
	content, found, readError := workspace.GetFileFromGit(executionContext, repositoryPath, ref, filePath)
	if readError != nil {
		return "", readError
	}
	if !found {
		return "", gitprovider.FileNotFoundError{FilePath: filePath, RepoURI: repositoryPath, Ref: ref}
	}
	return content, nil
}

// RepositoryExists reports whether repositoryPath lies inside a git working tree.
func (workspace *Workspace) RepositoryExists(executionContext context.Context, repositoryPath string) bool {
	if len(strings.TrimSpace(repositoryPath)) == 0 {
		return false
	}
	_, rootError := workspace.GetRootDir(executionContext, repositoryPath)
	return rootError == nil
}

// GetLastCommitSHA resolves the tip of branch. An unknown branch yields an empty string.
func (workspace *Workspace) GetLastCommitSHA(executionContext context.Context, repositoryPath string, branch string) (string, error) {
	arguments := []string{gitRevParseSubcommandConstant, branch}
	result, revParseError := workspace.executeGit(executionContext, repositoryPath, arguments, nil)
	if revParseError != nil {
		if isProcessExit(revParseError) {
			return "", nil
		}
		return "", newProcessFailure(repositoryPath, gitRevParseSubcommandConstant, arguments, revParseError)
	}
	return strings.TrimSpace(result.StandardOutput), nil
}

// GetFilesAtCommit reads every file below directory at commit. Entries are
// listed NUL-terminated so paths arrive unquoted.
func (workspace *Workspace) GetFilesAtCommit(executionContext context.Context, repositoryPath string, commit string, directory string) ([]gitprovider.GitFile, error) {
	arguments := []string{gitLsTreeSubcommandConstant, gitLsTreeRecursiveFlagConstant, gitNullTerminatedFlagConstant, commit, gitPathspecSeparatorConstant, directory}
	result, listError := workspace.runGit(executionContext, repositoryPath, gitLsTreeSubcommandConstant, arguments, nil)
	if listError != nil {
		return nil, listError
	}

	files := []gitprovider.GitFile{}
	for _, record := range strings.Split(result.StandardOutput, lsTreeRecordSeparatorConstant) {
		metadata, filePath, hasPath := strings.Cut(record, "\t")
		if !hasPath {
			continue
		}
		fields := strings.Fields(metadata)
		if len(fields) < lsTreeFieldCountConstant || fields[1] != lsTreeBlobTypeConstant {
			continue
		}
		content, found, readError := workspace.GetFileFromGit(executionContext, repositoryPath, commit, filePath)
		if readError != nil {
			return nil, readError
		}
		if !found {
			return nil, gitprovider.FileNotFoundError{FilePath: filePath, RepoURI: repositoryPath, Ref: commit}
		}
		files = append(files, gitprovider.GitFile{
			FilePath:        path.Clean(filePath),
			Content:         content,
			ContentEncoding: gitprovider.ContentEncodingUTF8,
			Mode:            fields[0],
		})
	}
	return files, nil
}

// Clone clones options.RepoURI into options.TargetDirectory without checking
// out, then checks out options.Ref and optionally initializes submodules.
func (workspace *Workspace) Clone(executionContext context.Context, options gitprovider.CloneOptions) error {
	cloneEnvironment := map[string]string{}
	cloneArguments := workspace.AddGitAuthHeader(executionContext,
		[]string{gitCloneSubcommandConstant, gitNoCheckoutFlagConstant, options.RepoURI, options.TargetDirectory},
		cloneEnvironment, options.RepoURI)
	if _, cloneError := workspace.runGit(executionContext, "", gitCloneSubcommandConstant, cloneArguments, cloneEnvironment); cloneError != nil {
		return cloneError
	}

	if len(strings.TrimSpace(options.Ref)) > 0 {
		if checkoutError := workspace.Checkout(executionContext, options.TargetDirectory, options.Ref, false); checkoutError != nil {
			return checkoutError
		}
	}

	if !options.IncludeSubmodules {
		return nil
	}
	submoduleEnvironment := map[string]string{}
	submoduleArguments := workspace.AddGitAuthHeader(executionContext,
		[]string{gitSubmoduleSubcommandConstant, gitSubmoduleUpdateConstant, gitSubmoduleInitFlagConstant, gitRecursiveFlagConstant},
		submoduleEnvironment, options.RepoURI)
	_, submoduleError := workspace.runGit(executionContext, options.TargetDirectory, gitSubmoduleSubcommandConstant, submoduleArguments, submoduleEnvironment)
	return submoduleError
}
