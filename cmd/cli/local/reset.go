package local

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	resetUseConstant              = "reset"
	resetShortDescriptionConstant = "Discard working tree changes, including untracked files"
	resetLongDescriptionConstant  = "reset checks out the index state of a path and removes untracked files beneath it. Without --relative the whole working tree is reset."
	relativeFlagNameConstant      = "relative"
	relativeFlagUsageConstant     = "Path inside the repository to reset."
	resetCompletedMessageConstant = "working tree reset"
	logFieldRepositoryConstant    = "repository"
	logFieldRelativePathConstant  = "relative_path"
)

// ResetCommandBuilder assembles the reset command.
type ResetCommandBuilder struct {
	LoggerProvider    LoggerProvider
	WorkspaceProvider WorkspaceProvider
}

// Build constructs the reset command.
func (builder *ResetCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   resetUseConstant,
		Short: resetShortDescriptionConstant,
		Long:  resetLongDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.run,
	}
	addPathFlag(command)
	command.Flags().String(relativeFlagNameConstant, "", relativeFlagUsageConstant)
	return command, nil
}

func (builder *ResetCommandBuilder) run(command *cobra.Command, arguments []string) error {
	repositoryPath, pathError := requireRepositoryPath(command)
	if pathError != nil {
		return pathError
	}
	relativePath, _ := command.Flags().GetString(relativeFlagNameConstant)

	workspace, workspaceError := resolveWorkspace(builder.WorkspaceProvider)
	if workspaceError != nil {
		return workspaceError
	}

	if resetError := workspace.ResetWorkingTree(command.Context(), repositoryPath, relativePath); resetError != nil {
		return resetError
	}

	resolveLogger(builder.LoggerProvider).Info(
		resetCompletedMessageConstant,
		zap.String(logFieldRepositoryConstant, repositoryPath),
		zap.String(logFieldRelativePathConstant, relativePath),
	)
	return nil
}
