package utils_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/depflow/internal/utils"
)

const (
	testEnvironmentPrefixConstant  = "TESTDEPFLOW"
	testLogLevelEnvironmentName    = testEnvironmentPrefixConstant + "_COMMON_LOG_LEVEL"
	testConfigFileNameConstant     = "config.yaml"
	testConfigurationNameConstant  = "config"
	testConfigurationTypeConstant  = "yaml"
	testUserConfigurationDirectory = ".depflow"
)

type configurationFixture struct {
	Common configurationCommonFixture `mapstructure:"common"`
	Git    configurationGitFixture    `mapstructure:"git"`
}

type configurationCommonFixture struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

type configurationGitFixture struct {
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
	Hosts          []string      `mapstructure:"hosts"`
}

func writeConfigurationFile(testInstance *testing.T, directory string, content string) string {
	testInstance.Helper()
	require.NoError(testInstance, os.MkdirAll(directory, 0o755))
	configurationFilePath := filepath.Join(directory, testConfigFileNameConstant)
	require.NoError(testInstance, os.WriteFile(configurationFilePath, []byte(content), 0o600))
	return configurationFilePath
}

func TestConfigurationLoaderLayerPrecedence(testInstance *testing.T) {
	testCases := []struct {
		name             string
		embedded         string
		file             string
		environment      string
		expectedLogLevel string
		expectedFormat   string
	}{
		{
			name:             "defaults_only",
			expectedLogLevel: "info",
			expectedFormat:   "structured",
		},
		{
			name:             "embedded_over_defaults",
			embedded:         "common:\n  log_level: debug\n",
			expectedLogLevel: "debug",
			expectedFormat:   "structured",
		},
		{
			name:             "file_over_embedded",
			embedded:         "common:\n  log_level: debug\n  log_format: console\n",
			file:             "common:\n  log_level: warn\n",
			expectedLogLevel: "warn",
			expectedFormat:   "console",
		},
		{
			name:             "environment_over_file",
			file:             "common:\n  log_level: warn\n",
			environment:      "error",
			expectedLogLevel: "error",
			expectedFormat:   "structured",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			configurationFilePath := ""
			if len(testCase.file) > 0 {
				configurationFilePath = writeConfigurationFile(subTest, subTest.TempDir(), testCase.file)
			}
			if len(testCase.environment) > 0 {
				subTest.Setenv(testLogLevelEnvironmentName, testCase.environment)
			}

			configurationLoader := utils.NewConfigurationLoader(testConfigurationNameConstant, testConfigurationTypeConstant, testEnvironmentPrefixConstant, []string{subTest.TempDir()})
			configurationLoader.SetEmbeddedConfiguration([]byte(testCase.embedded), testConfigurationTypeConstant)

			defaultValues := map[string]any{
				"common.log_level":  "info",
				"common.log_format": "structured",
			}
			loadedConfiguration := configurationFixture{}
			metadata, loadError := configurationLoader.LoadConfiguration(configurationFilePath, defaultValues, &loadedConfiguration)
			require.NoError(subTest, loadError)
			require.Equal(subTest, testCase.expectedLogLevel, loadedConfiguration.Common.LogLevel)
			require.Equal(subTest, testCase.expectedFormat, loadedConfiguration.Common.LogFormat)
			require.Equal(subTest, configurationFilePath, metadata.ConfigFileUsed)
		})
	}
}

func TestConfigurationLoaderSearchPaths(testInstance *testing.T) {
	workingDirectory := testInstance.TempDir()
	userDirectory := filepath.Join(testInstance.TempDir(), testUserConfigurationDirectory)

	testCases := []struct {
		name      string
		directory string
	}{
		{name: "working_directory", directory: workingDirectory},
		{name: "user_directory", directory: userDirectory},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			configurationFilePath := writeConfigurationFile(subTest, testCase.directory, "common:\n  log_level: debug\n")
			subTest.Cleanup(func() { _ = os.Remove(configurationFilePath) })

			configurationLoader := utils.NewConfigurationLoader(
				testConfigurationNameConstant,
				testConfigurationTypeConstant,
				testEnvironmentPrefixConstant,
				[]string{workingDirectory, userDirectory},
			)

			loadedConfiguration := configurationFixture{}
			metadata, loadError := configurationLoader.LoadConfiguration("", nil, &loadedConfiguration)
			require.NoError(subTest, loadError)
			require.Equal(subTest, "debug", loadedConfiguration.Common.LogLevel)
			require.Equal(subTest, configurationFilePath, metadata.ConfigFileUsed)
		})
	}
}

func TestConfigurationLoaderDecodesDurationsAndLists(testInstance *testing.T) {
	tempDirectory := testInstance.TempDir()
	configurationFilePath := filepath.Join(tempDirectory, testConfigFileNameConstant)
	writeError := os.WriteFile(configurationFilePath, []byte("git:\n  command_timeout: 90s\n"), 0o600)
	require.NoError(testInstance, writeError)

	testInstance.Setenv(testEnvironmentPrefixConstant+"_GIT_HOSTS", "github.com,dev.azure.com")

	configurationLoader := utils.NewConfigurationLoader(testConfigurationNameConstant, testConfigurationTypeConstant, testEnvironmentPrefixConstant, nil)
	defaultValues := map[string]any{
		"git.command_timeout": "10m",
		"git.hosts":           []string{},
	}

	loadedConfiguration := configurationFixture{}
	_, loadError := configurationLoader.LoadConfiguration(configurationFilePath, defaultValues, &loadedConfiguration)
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, 90*time.Second, loadedConfiguration.Git.CommandTimeout)
	require.Equal(testInstance, []string{"github.com", "dev.azure.com"}, loadedConfiguration.Git.Hosts)
}

func TestConfigurationLoaderReportsUnreadableFile(testInstance *testing.T) {
	tempDirectory := testInstance.TempDir()
	configurationFilePath := filepath.Join(tempDirectory, testConfigFileNameConstant)
	require.NoError(testInstance, os.WriteFile(configurationFilePath, []byte("common: [unterminated"), 0o600))

	configurationLoader := utils.NewConfigurationLoader(testConfigurationNameConstant, testConfigurationTypeConstant, testEnvironmentPrefixConstant, nil)
	_, loadError := configurationLoader.LoadConfiguration(configurationFilePath, nil, &configurationFixture{})
	require.Error(testInstance, loadError)
}
