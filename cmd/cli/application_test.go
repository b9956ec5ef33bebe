package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/depflow/cmd/cli/local"
	"github.com/temirov/depflow/internal/gitprovider"
	"github.com/temirov/depflow/internal/gitworkspace"
	flagutils "github.com/temirov/depflow/internal/utils/flags"
)

const (
	testConfigurationFileNameConstant = "depflow.yaml"
	testRegistryTokenEnvironmentName  = "DEPFLOW_TEST_REGISTRY_TOKEN"
)

const testConfigurationContent = `common:
  log_level: error
  metrics_file: %s
registry:
  base_url: https://maestro.example.com/
  token_source: env:DEPFLOW_TEST_REGISTRY_TOKEN
git:
  command_timeout: 90s
  tokens:
    - host: GitHub.com
      source: env:GITHUB_TOKEN
    - host: dev.azure.com
      source: file:/run/secrets/azdo
`

type recordingWorkspace struct {
	refs []string
}

func (workspace *recordingWorkspace) GetGitSubmodules(context.Context, string, string) ([]gitworkspace.Submodule, error) {
	return nil, nil
}

func (workspace *recordingWorkspace) ResetWorkingTree(context.Context, string, string) error {
	return nil
}

func (workspace *recordingWorkspace) GetRefType(_ context.Context, _ string, ref string) (gitworkspace.GitObjectType, error) {
	workspace.refs = append(workspace.refs, ref)
	return gitworkspace.GitObjectTypeCommit, nil
}

func newTestApplication(testInstance *testing.T, workspace local.WorkspaceService) (*Application, *bytes.Buffer) {
	testInstance.Helper()
	testInstance.Setenv("HOME", testInstance.TempDir())

	application := NewApplication()
	application.workspaceProvider = func() (local.WorkspaceService, error) { return workspace, nil }

	var output bytes.Buffer
	application.rootCommand.SetOut(&output)
	application.rootCommand.SetErr(&bytes.Buffer{})
	return application, &output
}

func writeTestConfiguration(testInstance *testing.T, metricsFile string) string {
	testInstance.Helper()
	configurationPath := filepath.Join(testInstance.TempDir(), testConfigurationFileNameConstant)
	content := []byte(formatConfiguration(metricsFile))
	require.NoError(testInstance, os.WriteFile(configurationPath, content, 0o600))
	return configurationPath
}

func formatConfiguration(metricsFile string) string {
	if len(metricsFile) == 0 {
		metricsFile = `""`
	}
	return fmt.Sprintf(testConfigurationContent, metricsFile)
}

func TestApplicationLoadsEmbeddedDefaults(testInstance *testing.T) {
	workspace := &recordingWorkspace{}
	application, output := newTestApplication(testInstance, workspace)
	application.rootCommand.SetArgs([]string{"--log-level", "ERROR", "ref-type", "--path", "/src/runtime", "--ref", "main"})

	require.NoError(testInstance, application.Execute())
	require.Equal(testInstance, "commit\n", output.String())
	require.Equal(testInstance, []string{"main"}, workspace.refs)

	configuration := application.configuration
	require.Equal(testInstance, "error", configuration.Common.LogLevel)
	require.Equal(testInstance, "structured", configuration.Common.LogFormat)
	require.Equal(testInstance, "https://api.github.com", configuration.GitHub.APIURL)
	require.Equal(testInstance, time.Minute, configuration.GitHub.DefaultRetryAfter)
	require.Equal(testInstance, "https://dev.azure.com", configuration.AzureDevOps.APIURL)
	require.Equal(testInstance, "5.0", configuration.AzureDevOps.APIVersion)
	require.Equal(testInstance, 10*time.Minute, configuration.Git.CommandTimeout)
	require.Equal(testInstance, gitprovider.BotName, configuration.Git.BotName)
	require.Equal(testInstance, 4, configuration.Resolver.Concurrency)
	require.Empty(testInstance, configuration.Registry.BaseURL)
	require.Empty(testInstance, configuration.Git.Tokens)
}

func TestApplicationConfigurationFileAndEnvironment(testInstance *testing.T) {
	workspace := &recordingWorkspace{}
	application, _ := newTestApplication(testInstance, workspace)
	testInstance.Setenv("DEPFLOW_RESOLVER_CONCURRENCY", "9")
	configurationPath := writeTestConfiguration(testInstance, "")
	application.rootCommand.SetArgs([]string{"--config", configurationPath, "ref-type", "--path", "/src/runtime", "--ref", "main"})

	require.NoError(testInstance, application.Execute())

	configuration := application.configuration
	require.Equal(testInstance, configurationPath, application.configurationMetadata.ConfigFileUsed)
	require.Equal(testInstance, "error", configuration.Common.LogLevel)
	require.Equal(testInstance, 90*time.Second, configuration.Git.CommandTimeout)
	require.Equal(testInstance, 9, configuration.Resolver.Concurrency)
	require.Equal(testInstance, "https://maestro.example.com/", configuration.Registry.BaseURL)
	require.Equal(testInstance,
		map[string]string{"github.com": "env:GITHUB_TOKEN", "dev.azure.com": "file:/run/secrets/azdo"},
		configuration.Git.hostTokenSources(),
	)
}

func TestApplicationRejectsUnsupportedLogSettings(testInstance *testing.T) {
	testCases := []struct {
		name      string
		arguments []string
		flagName  string
	}{
		{name: "log_level", arguments: []string{"--log-level", "verbose"}, flagName: logLevelFlagNameConstant},
		{name: "log_format", arguments: []string{"--log-format", "xml"}, flagName: logFormatFlagNameConstant},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			workspace := &recordingWorkspace{}
			application, _ := newTestApplication(subTest, workspace)
			arguments := append(append([]string{}, testCase.arguments...), "ref-type", "--path", "/src/runtime", "--ref", "main")
			application.rootCommand.SetArgs(arguments)

			executionError := application.Execute()
			var choiceError flagutils.UnsupportedChoiceError
			require.ErrorAs(subTest, executionError, &choiceError)
			require.Equal(subTest, testCase.flagName, choiceError.FlagName)
			require.Empty(subTest, workspace.refs)
		})
	}
}

func TestApplicationWritesMetricsFile(testInstance *testing.T) {
	metricsFile := filepath.Join(testInstance.TempDir(), "depflow.prom")
	workspace := &recordingWorkspace{}
	application, _ := newTestApplication(testInstance, workspace)
	application.rootCommand.SetArgs([]string{"--config", writeTestConfiguration(testInstance, metricsFile), "ref-type", "--path", "/src/runtime", "--ref", "main"})

	require.NoError(testInstance, application.Execute())

	content, readError := os.ReadFile(metricsFile)
	require.NoError(testInstance, readError)
	require.Contains(testInstance, string(content), "depflow_build_registry_build_fetches_total 0")
}

func TestApplicationBuildsServices(testInstance *testing.T) {
	application, _ := newTestApplication(testInstance, &recordingWorkspace{})

	_, servicesError := application.ensureServices()
	require.EqualError(testInstance, servicesError, servicesNotInitializedMessageConstant)

	testInstance.Setenv(testRegistryTokenEnvironmentName, "registry-secret")
	application.rootCommand.SetArgs([]string{"--config", writeTestConfiguration(testInstance, ""), "ref-type", "--path", "/src/runtime", "--ref", "main"})
	require.NoError(testInstance, application.Execute())

	services, servicesError := application.ensureServices()
	require.NoError(testInstance, servicesError)
	require.NotNil(testInstance, services.workspace)
	require.Same(testInstance, services.localRemote, services.remoteFor("/src/runtime"))
	require.Same(testInstance, services.hostedRemote, services.remoteFor("https://github.com/dotnet/runtime"))
	require.Same(testInstance, services.azureDevOpsRemote, services.remoteFor("https://dev.azure.com/dnceng/internal/_git/dotnet-runtime"))
	require.Same(testInstance, services.azureDevOpsRemote, services.remoteFor("https://dnceng.visualstudio.com/internal/_git/dotnet-runtime"))

	cached, cachedError := application.ensureServices()
	require.NoError(testInstance, cachedError)
	require.Same(testInstance, services, cached)

	workspaceService, workspaceError := application.workspaceService()
	require.NoError(testInstance, workspaceError)
	require.Equal(testInstance, services.workspace, workspaceService)
}

func TestApplicationServicesWithoutRegistry(testInstance *testing.T) {
	application, _ := newTestApplication(testInstance, &recordingWorkspace{})
	application.rootCommand.SetArgs([]string{"--log-level", "error", "ref-type", "--path", "/src/runtime", "--ref", "main"})
	require.NoError(testInstance, application.Execute())

	dependencyService, serviceError := application.dependencyService()
	require.NoError(testInstance, serviceError)

	resolveError := dependencyService.ResolveLocations(context.Background(), []*gitprovider.DependencyDetail{{Name: "Microsoft.NETCore.App.Ref"}})
	require.ErrorIs(testInstance, resolveError, gitprovider.ErrConfiguration)
}

func TestApplicationReportsRegistryTokenFailure(testInstance *testing.T) {
	application, _ := newTestApplication(testInstance, &recordingWorkspace{})
	testInstance.Setenv(testRegistryTokenEnvironmentName, "")
	application.rootCommand.SetArgs([]string{"--config", writeTestConfiguration(testInstance, ""), "ref-type", "--path", "/src/runtime", "--ref", "main"})
	require.NoError(testInstance, application.Execute())

	_, servicesError := application.ensureServices()
	require.ErrorContains(testInstance, servicesError, "unable to read registry token")
}

func TestHostTokenSourcesSkipsIncompleteEntries(testInstance *testing.T) {
	configuration := GitConfiguration{Tokens: []HostTokenConfiguration{
		{Host: " github.com ", Source: "env:FIRST"},
		{Host: "", Source: "env:IGNORED"},
		{Host: "dev.azure.com", Source: " "},
		{Host: "GITHUB.COM", Source: "env:SECOND"},
	}}
	require.Equal(testInstance, map[string]string{"github.com": "env:SECOND"}, configuration.hostTokenSources())
}
