package flow

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"
)

const (
	dependenciesUseConstant              = "dependencies"
	dependenciesShortDescriptionConstant = "List the dependencies declared by a repository"
	dependenciesLongDescriptionConstant  = "dependencies reads eng/Version.Details.xml from a repository at a ref and prints the declared dependencies as YAML."
	repositoryFlagNameConstant           = "repo"
	repositoryFlagUsageConstant          = "Repository URL or local path."
	refFlagNameConstant                  = "ref"
	refFlagUsageConstant                 = "Branch, tag or commit to read."
	nameFlagNameConstant                 = "name"
	nameFlagUsageConstant                = "Only list the dependency with this name (case-insensitive)."
	withLocationsFlagNameConstant        = "with-locations"
	withLocationsFlagUsageConstant       = "Resolve NuGet feed locations for the listed dependencies."
	repositoryMissingMessageConstant     = "the --repo flag is required"
)

// DependenciesCommandBuilder assembles the dependencies command.
type DependenciesCommandBuilder struct {
	LoggerProvider  LoggerProvider
	ServiceProvider ServiceProvider
}

// Build constructs the dependencies command.
func (builder *DependenciesCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   dependenciesUseConstant,
		Short: dependenciesShortDescriptionConstant,
		Long:  dependenciesLongDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.run,
	}
	command.Flags().String(repositoryFlagNameConstant, "", repositoryFlagUsageConstant)
	command.Flags().String(refFlagNameConstant, "", refFlagUsageConstant)
	command.Flags().String(nameFlagNameConstant, "", nameFlagUsageConstant)
	command.Flags().Bool(withLocationsFlagNameConstant, false, withLocationsFlagUsageConstant)
	return command, nil
}

func (builder *DependenciesCommandBuilder) run(command *cobra.Command, arguments []string) error {
	repository, _ := command.Flags().GetString(repositoryFlagNameConstant)
	ref, _ := command.Flags().GetString(refFlagNameConstant)
	name, _ := command.Flags().GetString(nameFlagNameConstant)
	withLocations, _ := command.Flags().GetBool(withLocationsFlagNameConstant)

	repository = strings.TrimSpace(repository)
	if len(repository) == 0 {
		return errors.New(repositoryMissingMessageConstant)
	}

	service, serviceError := resolveService(builder.ServiceProvider)
	if serviceError != nil {
		return serviceError
	}

	dependencies, dependenciesError := service.GetDependencies(command.Context(), repository, strings.TrimSpace(ref), strings.TrimSpace(name))
	if dependenciesError != nil {
		return dependenciesError
	}

	if withLocations {
		if resolveError := service.ResolveLocations(command.Context(), pointersTo(dependencies)); resolveError != nil {
			return resolveError
		}
	}

	return writeYAML(command.OutOrStdout(), dependencies)
}
