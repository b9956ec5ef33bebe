package flow

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/temirov/depflow/internal/gitprovider"
)

const (
	locationsUseConstant                   = "locations"
	locationsShortDescriptionConstant      = "Attach NuGet feed locations to a list of dependencies"
	locationsLongDescriptionConstant       = "locations reads dependencies from a YAML file, finds the newest registry build of each one produced from the same commit, and prints the dependencies with their feed locations."
	dependenciesFileFlagNameConstant       = "dependencies"
	dependenciesFileFlagUsageConstant      = "YAML file with the dependencies to resolve (use - for standard input)."
	standardInputPathConstant              = "-"
	dependenciesFileMissingMessageConstant = "the --dependencies flag is required"
	dependenciesReadErrorTemplateConstant  = "unable to read dependencies file %s: %w"
	dependenciesParseErrorTemplateConstant = "unable to parse dependencies file %s: %w"
	locationsResolvedMessageConstant       = "dependency locations resolved"
	logFieldDependencyCountConstant        = "dependency_count"
)

// LocationsCommandBuilder assembles the locations command.
type LocationsCommandBuilder struct {
	LoggerProvider  LoggerProvider
	ServiceProvider ServiceProvider
}

// Build constructs the locations command.
func (builder *LocationsCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   locationsUseConstant,
		Short: locationsShortDescriptionConstant,
		Long:  locationsLongDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.run,
	}
	command.Flags().String(dependenciesFileFlagNameConstant, "", dependenciesFileFlagUsageConstant)
	return command, nil
}

func (builder *LocationsCommandBuilder) run(command *cobra.Command, arguments []string) error {
	dependenciesPath, _ := command.Flags().GetString(dependenciesFileFlagNameConstant)
	dependenciesPath = strings.TrimSpace(dependenciesPath)
	if len(dependenciesPath) == 0 {
		return errors.New(dependenciesFileMissingMessageConstant)
	}

	dependencies, readError := readDependencies(command.InOrStdin(), dependenciesPath)
	if readError != nil {
		return readError
	}

	service, serviceError := resolveService(builder.ServiceProvider)
	if serviceError != nil {
		return serviceError
	}

	if resolveError := service.ResolveLocations(command.Context(), pointersTo(dependencies)); resolveError != nil {
		return resolveError
	}

	resolveLogger(builder.LoggerProvider).Info(locationsResolvedMessageConstant, zap.Int(logFieldDependencyCountConstant, len(dependencies)))
	return writeYAML(command.OutOrStdout(), dependencies)
}

func readDependencies(standardInput io.Reader, dependenciesPath string) ([]gitprovider.DependencyDetail, error) {
	var content []byte
	var readError error
	if dependenciesPath == standardInputPathConstant {
		content, readError = io.ReadAll(standardInput)
	} else {
		content, readError = os.ReadFile(dependenciesPath)
	}
	if readError != nil {
		return nil, fmt.Errorf(dependenciesReadErrorTemplateConstant, dependenciesPath, readError)
	}

	dependencies := []gitprovider.DependencyDetail{}
	if unmarshalError := yaml.Unmarshal(content, &dependencies); unmarshalError != nil {
		return nil, fmt.Errorf(dependenciesParseErrorTemplateConstant, dependenciesPath, unmarshalError)
	}
	return dependencies, nil
}
