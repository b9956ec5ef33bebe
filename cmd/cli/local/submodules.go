package local

import (
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	submodulesUseConstant              = "submodules"
	submodulesShortDescriptionConstant = "List the submodules recorded in a commit"
	commitFlagNameConstant             = "commit"
	commitFlagUsageConstant            = "Commit to inspect (defaults to HEAD)."
	defaultCommitConstant              = "HEAD"
	yamlIndentConstant                 = 2
)

// SubmodulesCommandBuilder assembles the submodules command.
type SubmodulesCommandBuilder struct {
	LoggerProvider    LoggerProvider
	WorkspaceProvider WorkspaceProvider
}

// Build constructs the submodules command.
func (builder *SubmodulesCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   submodulesUseConstant,
		Short: submodulesShortDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.run,
	}
	addPathFlag(command)
	command.Flags().String(commitFlagNameConstant, defaultCommitConstant, commitFlagUsageConstant)
	return command, nil
}

func (builder *SubmodulesCommandBuilder) run(command *cobra.Command, arguments []string) error {
	repositoryPath, pathError := requireRepositoryPath(command)
	if pathError != nil {
		return pathError
	}
	commit, _ := command.Flags().GetString(commitFlagNameConstant)
	if len(strings.TrimSpace(commit)) == 0 {
		commit = defaultCommitConstant
	}

	workspace, workspaceError := resolveWorkspace(builder.WorkspaceProvider)
	if workspaceError != nil {
		return workspaceError
	}

	submodules, submodulesError := workspace.GetGitSubmodules(command.Context(), repositoryPath, strings.TrimSpace(commit))
	if submodulesError != nil {
		return submodulesError
	}

	encoder := yaml.NewEncoder(command.OutOrStdout())
	encoder.SetIndent(yamlIndentConstant)
	if encodeError := encoder.Encode(submodules); encodeError != nil {
		return encodeError
	}
	return encoder.Close()
}
