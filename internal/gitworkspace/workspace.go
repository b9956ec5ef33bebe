package gitworkspace

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/depflow/internal/execshell"
	"github.com/temirov/depflow/internal/gitprovider"
	"github.com/temirov/depflow/internal/gitrepo"
)

const (
	gitExecutorMissingMessageConstant = "git executor not configured"
	defaultBotNameConstant            = "dotnet-maestro[bot]"
	defaultBotEmailConstant           = "dotnet-maestro[bot]@users.noreply.github.com"
	currentDirectoryPathspecConstant  = "."
	headReferenceConstant             = "HEAD"
	logFieldRepositoryPathConstant    = "repository_path"
	logFieldRelativePathConstant      = "relative_path"
	logFieldRemoteNameConstant        = "remote_name"
	logFieldRemoteURLConstant         = "remote_url"
)

// ErrGitExecutorNotConfigured indicates the workspace was constructed without a git executor.
var ErrGitExecutorNotConfigured = errors.New(gitExecutorMissingMessageConstant)

// GitExecutor runs git commands. execshell.ShellExecutor satisfies it and
// reports unsuccessful processes as execshell.CommandFailedError.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// FileSystem removes paths during working tree recovery.
type FileSystem interface {
	RemoveAll(path string) error
}

// OSFileSystem implements FileSystem with the os package.
type OSFileSystem struct{}

// RemoveAll deletes path and everything beneath it.
func (OSFileSystem) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

// Identity is a commit author.
type Identity struct {
	Name  string
	Email string
}

// Dependencies enumerates collaborators required by Workspace.
type Dependencies struct {
	GitExecutor   GitExecutor
	TokenProvider gitprovider.TokenProvider
	FileSystem    FileSystem
	Logger        *zap.Logger
}

// Options configures a Workspace.
type Options struct {
	// CommandTimeout bounds every git invocation. Zero leaves commands unbounded.
	CommandTimeout time.Duration
	// Author is used for commits that do not name one.
	Author Identity
	// AuthorizationSchemes overrides the header scheme per repository kind.
	AuthorizationSchemes map[gitrepo.RepositoryKind]AuthorizationScheme
}

// Workspace performs git operations against local repositories.
type Workspace struct {
	executor             GitExecutor
	tokenProvider        gitprovider.TokenProvider
	fileSystem           FileSystem
	logger               *zap.Logger
	commandTimeout       time.Duration
	author               Identity
	authorizationSchemes map[gitrepo.RepositoryKind]AuthorizationScheme
}

// NewWorkspace constructs a Workspace from the provided dependencies.
func NewWorkspace(dependencies Dependencies, options Options) (*Workspace, error) {
	if dependencies.GitExecutor == nil {
		return nil, ErrGitExecutorNotConfigured
	}

	workspace := &Workspace{
		executor:             dependencies.GitExecutor,
		tokenProvider:        dependencies.TokenProvider,
		fileSystem:           dependencies.FileSystem,
		logger:               dependencies.Logger,
		commandTimeout:       options.CommandTimeout,
		author:               options.Author,
		authorizationSchemes: defaultAuthorizationSchemes(),
	}
	if workspace.fileSystem == nil {
		workspace.fileSystem = OSFileSystem{}
	}
	if workspace.logger == nil {
		workspace.logger = zap.NewNop()
	}
	if len(strings.TrimSpace(workspace.author.Name)) == 0 {
		workspace.author.Name = defaultBotNameConstant
	}
	if len(strings.TrimSpace(workspace.author.Email)) == 0 {
		workspace.author.Email = defaultBotEmailConstant
	}
	for kind, scheme := range options.AuthorizationSchemes {
		workspace.authorizationSchemes[kind] = scheme
	}
	return workspace, nil
}

// runGit executes git in repositoryPath and wraps failures in ProcessFailure.
func (workspace *Workspace) runGit(executionContext context.Context, repositoryPath string, operation string, arguments []string, environment map[string]string) (execshell.ExecutionResult, error) {
	result, executionError := workspace.executeGit(executionContext, repositoryPath, arguments, environment)
	if executionError != nil {
		return execshell.ExecutionResult{}, newProcessFailure(repositoryPath, operation, arguments, executionError)
	}
	return result, nil
}

// executeGit executes git without wrapping the error, for callers that inspect exit codes.
func (workspace *Workspace) executeGit(executionContext context.Context, repositoryPath string, arguments []string, environment map[string]string) (execshell.ExecutionResult, error) {
	details := execshell.CommandDetails{
		Arguments:            arguments,
		WorkingDirectory:     repositoryPath,
		EnvironmentVariables: environment,
		Timeout:              workspace.commandTimeout,
	}
	return workspace.executor.ExecuteGit(executionContext, details)
}

func pathspecOrCurrentDirectory(relativePath string) string {
	if isRepositoryRoot(relativePath) {
		return currentDirectoryPathspecConstant
	}
	return relativePath
}

func isRepositoryRoot(relativePath string) bool {
	trimmed := strings.TrimSpace(relativePath)
	return len(trimmed) == 0 || trimmed == currentDirectoryPathspecConstant
}
