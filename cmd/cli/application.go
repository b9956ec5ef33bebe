package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"syscall"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/temirov/depflow/cmd/cli/flow"
	"github.com/temirov/depflow/cmd/cli/local"
	"github.com/temirov/depflow/internal/metrics"
	"github.com/temirov/depflow/internal/utils"
	flagutils "github.com/temirov/depflow/internal/utils/flags"
)

const (
	applicationNameConstant                 = "depflow"
	applicationShortDescriptionConstant     = "Inspect and resolve .NET dependency flow"
	applicationLongDescriptionConstant      = "depflow reads dependency manifests from local and hosted repositories, resolves their build registry feed locations and inspects pull requests and working trees."
	configFileFlagNameConstant              = "config"
	configFileFlagUsageConstant             = "Optional path to a configuration file (YAML or JSON)."
	logLevelFlagNameConstant                = "log-level"
	logLevelFlagDescriptionConstant         = "Override the configured log level."
	logFormatFlagNameConstant               = "log-format"
	logFormatFlagDescriptionConstant        = "Override the configured log format."
	environmentPrefixConstant               = "DEPFLOW"
	configurationNameConstant               = "config"
	configurationTypeConstant               = "yaml"
	defaultConfigurationSearchPathConstant  = "."
	userConfigurationSearchPathConstant     = "$HOME/.depflow"
	configurationInitializedMessageConstant = "configuration initialized"
	configurationLogLevelFieldConstant      = "log_level"
	configurationLogFormatFieldConstant     = "log_format"
	configurationFileFieldConstant          = "config_file"
	configurationLoadErrorTemplateConstant  = "unable to load configuration: %w"
	loggerCreationErrorTemplateConstant     = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant         = "unable to flush logger: %w"
	metricsWriteErrorTemplateConstant       = "unable to write metrics file: %w"
	servicesNotInitializedMessageConstant   = "configuration not initialized"
)

// Application wires the Cobra root command, configuration loader, structured
// logger and the service graph shared by subcommands.
type Application struct {
	rootCommand            *cobra.Command
	configurationLoader    *utils.ConfigurationLoader
	loggerFactory          *utils.LoggerFactory
	logger                 *zap.Logger
	configuration          ApplicationConfiguration
	configurationMetadata  utils.LoadedConfiguration
	configurationFilePath  string
	logLevelFlagValue      string
	logFormatFlagValue     string
	commandContextAccessor utils.CommandContextAccessor
	metricsRegistry        *prom.Registry
	metricsRecorder        metrics.Recorder
	services               *applicationServices
	initialized            bool
	dependencyProvider     flow.ServiceProvider
	workspaceProvider      local.WorkspaceProvider
}

// NewApplication assembles a fully wired CLI application instance.
func NewApplication() *Application {
	configurationLoader := utils.NewConfigurationLoader(
		configurationNameConstant,
		configurationTypeConstant,
		environmentPrefixConstant,
		[]string{defaultConfigurationSearchPathConstant, userConfigurationSearchPathConstant},
	)
	configurationLoader.SetEmbeddedConfiguration(EmbeddedDefaultConfiguration())

	application := &Application{
		configurationLoader:    configurationLoader,
		loggerFactory:          utils.NewLoggerFactory(),
		logger:                 zap.NewNop(),
		commandContextAccessor: utils.NewCommandContextAccessor(),
		metricsRecorder:        metrics.NoopRecorder{},
	}
	application.dependencyProvider = application.dependencyService
	application.workspaceProvider = application.workspaceService

	cobraCommand := &cobra.Command{
		Use:           applicationNameConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			return application.initializeConfiguration(command)
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
	}

	cobraCommand.SetContext(context.Background())
	persistentFlags := cobraCommand.PersistentFlags()
	persistentFlags.StringVar(&application.configurationFilePath, configFileFlagNameConstant, "", configFileFlagUsageConstant)
	persistentFlags.StringVar(
		&application.logLevelFlagValue,
		logLevelFlagNameConstant,
		"",
		flagutils.FormatChoiceUsage(string(utils.LogLevelInfo), utils.SupportedLogLevels, logLevelFlagDescriptionConstant),
	)
	persistentFlags.StringVar(
		&application.logFormatFlagValue,
		logFormatFlagNameConstant,
		"",
		flagutils.FormatChoiceUsage(string(utils.LogFormatStructured), utils.SupportedLogFormats, logFormatFlagDescriptionConstant),
	)

	loggerProvider := func() *zap.Logger {
		return application.logger
	}
	dependencyProvider := func() (flow.DependencyService, error) {
		return application.dependencyProvider()
	}
	workspaceProvider := func() (local.WorkspaceService, error) {
		return application.workspaceProvider()
	}

	builders := []interface{ Build() (*cobra.Command, error) }{
		&flow.LocationsCommandBuilder{LoggerProvider: flow.LoggerProvider(loggerProvider), ServiceProvider: dependencyProvider},
		&flow.DependenciesCommandBuilder{LoggerProvider: flow.LoggerProvider(loggerProvider), ServiceProvider: dependencyProvider},
		&flow.ReviewsCommandBuilder{LoggerProvider: flow.LoggerProvider(loggerProvider), ServiceProvider: dependencyProvider},
		&local.SubmodulesCommandBuilder{LoggerProvider: local.LoggerProvider(loggerProvider), WorkspaceProvider: workspaceProvider},
		&local.ResetCommandBuilder{LoggerProvider: local.LoggerProvider(loggerProvider), WorkspaceProvider: workspaceProvider},
		&local.RefTypeCommandBuilder{LoggerProvider: local.LoggerProvider(loggerProvider), WorkspaceProvider: workspaceProvider},
	}
	for _, builder := range builders {
		subcommand, buildError := builder.Build()
		if buildError == nil {
			cobraCommand.AddCommand(subcommand)
		}
	}

	application.rootCommand = cobraCommand

	return application
}

// Execute runs the configured Cobra command hierarchy, then writes metrics
// and flushes the logger.
func (application *Application) Execute() error {
	executionError := application.rootCommand.Execute()
	if metricsError := application.writeMetrics(); metricsError != nil && executionError == nil {
		executionError = metricsError
	}
	if syncError := application.flushLogger(); syncError != nil && executionError == nil {
		return fmt.Errorf(loggerSyncErrorTemplateConstant, syncError)
	}
	return executionError
}

// Execute builds a fresh application instance and executes the root command hierarchy.
func Execute() error {
	return NewApplication().Execute()
}

func (application *Application) initializeConfiguration(command *cobra.Command) error {
	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(application.configurationFilePath, nil, &application.configuration)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}
	application.configurationMetadata = loadedConfiguration

	if application.persistentFlagChanged(command, logLevelFlagNameConstant) {
		logLevel, choiceError := flagutils.NormalizeChoice(logLevelFlagNameConstant, application.logLevelFlagValue, utils.SupportedLogLevels)
		if choiceError != nil {
			return choiceError
		}
		application.configuration.Common.LogLevel = logLevel
	}
	if application.persistentFlagChanged(command, logFormatFlagNameConstant) {
		logFormat, choiceError := flagutils.NormalizeChoice(logFormatFlagNameConstant, application.logFormatFlagValue, utils.SupportedLogFormats)
		if choiceError != nil {
			return choiceError
		}
		application.configuration.Common.LogFormat = logFormat
	}

	logger, loggerCreationError := application.loggerFactory.CreateLogger(
		utils.LogLevel(application.configuration.Common.LogLevel),
		utils.LogFormat(application.configuration.Common.LogFormat),
	)
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}
	application.logger = logger

	application.metricsRegistry = prom.NewRegistry()
	application.metricsRecorder = metrics.NewPrometheusRecorder(application.metricsRegistry)
	application.services = nil
	application.initialized = true

	application.logger.Info(
		configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, application.configuration.Common.LogLevel),
		zap.String(configurationLogFormatFieldConstant, application.configuration.Common.LogFormat),
		zap.String(configurationFileFieldConstant, application.configurationMetadata.ConfigFileUsed),
	)

	if command != nil {
		updatedContext := application.commandContextAccessor.WithLoadedConfiguration(command.Context(), application.configurationMetadata)
		command.SetContext(updatedContext)
	}

	return nil
}

// ensureServices builds the service graph on first use.
func (application *Application) ensureServices() (*applicationServices, error) {
	if !application.initialized {
		return nil, errors.New(servicesNotInitializedMessageConstant)
	}
	if application.services != nil {
		return application.services, nil
	}
	services, buildError := buildApplicationServices(application.configuration, application.logger, application.metricsRecorder)
	if buildError != nil {
		return nil, buildError
	}
	application.services = services
	return services, nil
}

func (application *Application) dependencyService() (flow.DependencyService, error) {
	services, servicesError := application.ensureServices()
	if servicesError != nil {
		return nil, servicesError
	}
	return services, nil
}

func (application *Application) workspaceService() (local.WorkspaceService, error) {
	services, servicesError := application.ensureServices()
	if servicesError != nil {
		return nil, servicesError
	}
	return services.workspace, nil
}

func (application *Application) writeMetrics() error {
	metricsFile := strings.TrimSpace(application.configuration.Common.MetricsFile)
	if application.metricsRegistry == nil || len(metricsFile) == 0 {
		return nil
	}
	if writeError := prom.WriteToTextfile(metricsFile, application.metricsRegistry); writeError != nil {
		return fmt.Errorf(metricsWriteErrorTemplateConstant, writeError)
	}
	return nil
}

func (application *Application) flushLogger() error {
	if application.logger == nil {
		return nil
	}

	syncError := application.logger.Sync()
	switch {
	case syncError == nil:
		return nil
	case errors.Is(syncError, syscall.ENOTSUP):
		return nil
	case errors.Is(syncError, syscall.EINVAL):
		return nil
	case errors.Is(syncError, syscall.ENOTTY):
		return nil
	default:
		return syncError
	}
}

func (application *Application) persistentFlagChanged(command *cobra.Command, flagName string) bool {
	if command == nil {
		return false
	}

	flagSetsToInspect := []*pflag.FlagSet{
		command.PersistentFlags(),
		command.InheritedFlags(),
	}
	if rootCommand := command.Root(); rootCommand != nil {
		flagSetsToInspect = append(flagSetsToInspect, rootCommand.PersistentFlags())
	}

	for _, flagSet := range flagSetsToInspect {
		if flagSet != nil && flagSet.Changed(flagName) {
			return true
		}
	}
	return false
}
