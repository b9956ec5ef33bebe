package local

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

const (
	refTypeUseConstant              = "ref-type"
	refTypeShortDescriptionConstant = "Report whether a ref names a commit, tag, tree, blob or remote branch"
	refFlagNameConstant             = "ref"
	refFlagUsageConstant            = "Ref to classify."
	refMissingMessageConstant       = "the --ref flag is required"
)

// RefTypeCommandBuilder assembles the ref-type command.
type RefTypeCommandBuilder struct {
	LoggerProvider    LoggerProvider
	WorkspaceProvider WorkspaceProvider
}

// Build constructs the ref-type command.
func (builder *RefTypeCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   refTypeUseConstant,
		Short: refTypeShortDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.run,
	}
	addPathFlag(command)
	command.Flags().String(refFlagNameConstant, "", refFlagUsageConstant)
	return command, nil
}

func (builder *RefTypeCommandBuilder) run(command *cobra.Command, arguments []string) error {
	repositoryPath, pathError := requireRepositoryPath(command)
	if pathError != nil {
		return pathError
	}
	ref, _ := command.Flags().GetString(refFlagNameConstant)
	ref = strings.TrimSpace(ref)
	if len(ref) == 0 {
		return errors.New(refMissingMessageConstant)
	}

	workspace, workspaceError := resolveWorkspace(builder.WorkspaceProvider)
	if workspaceError != nil {
		return workspaceError
	}

	objectType, refTypeError := workspace.GetRefType(command.Context(), repositoryPath, ref)
	if refTypeError != nil {
		return refTypeError
	}
	_, writeError := fmt.Fprintln(command.OutOrStdout(), objectType)
	return writeError
}
