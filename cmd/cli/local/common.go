package local

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/depflow/internal/gitworkspace"
	pathutils "github.com/temirov/depflow/internal/utils/path"
)

const (
	pathFlagNameConstant                    = "path"
	pathFlagUsageConstant                   = "Path to the local repository."
	pathMissingMessageConstant              = "the --path flag is required"
	workspaceProviderMissingMessageConstant = "workspace provider not configured"
)

// ErrWorkspaceProviderNotConfigured indicates a builder without a WorkspaceProvider.
var ErrWorkspaceProviderNotConfigured = errors.New(workspaceProviderMissingMessageConstant)

var repositoryPathExpander = pathutils.NewHomeExpander()

// LoggerProvider yields a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// WorkspaceService covers the local git operations used by these commands.
type WorkspaceService interface {
	GetGitSubmodules(ctx context.Context, repositoryPath string, commit string) ([]gitworkspace.Submodule, error)
	ResetWorkingTree(ctx context.Context, repositoryPath string, relativePath string) error
	GetRefType(ctx context.Context, repositoryPath string, ref string) (gitworkspace.GitObjectType, error)
}

// WorkspaceProvider builds the WorkspaceService once configuration is loaded.
type WorkspaceProvider func() (WorkspaceService, error)

func resolveLogger(provider LoggerProvider) *zap.Logger {
	if provider == nil {
		return zap.NewNop()
	}
	logger := provider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func resolveWorkspace(provider WorkspaceProvider) (WorkspaceService, error) {
	if provider == nil {
		return nil, ErrWorkspaceProviderNotConfigured
	}
	return provider()
}

func addPathFlag(command *cobra.Command) {
	command.Flags().String(pathFlagNameConstant, "", pathFlagUsageConstant)
}

// requireRepositoryPath reads --path, expanding a leading home shortcut.
func requireRepositoryPath(command *cobra.Command) (string, error) {
	rawPath, _ := command.Flags().GetString(pathFlagNameConstant)
	if len(strings.TrimSpace(rawPath)) == 0 {
		return "", errors.New(pathMissingMessageConstant)
	}
	return repositoryPathExpander.Resolve(rawPath)
}
