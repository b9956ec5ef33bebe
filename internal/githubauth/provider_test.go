package githubauth_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/depflow/internal/githubauth"
)

func mapLookup(values map[string]string) githubauth.EnvironmentLookup {
	return func(key string) (string, bool) {
		value, found := values[key]
		return value, found
	}
}

func TestRepositoryTokenProviderResolution(testInstance *testing.T) {
	testCases := []struct {
		name          string
		hostSources   map[string]string
		environment   map[string]string
		files         map[string]string
		repoURI       string
		expectedToken string
		expectError   bool
	}{
		{
			name:          "github_falls_back_to_gh_token",
			environment:   map[string]string{githubauth.EnvGitHubToken: "second", githubauth.EnvGitHubCLIToken: " first "},
			repoURI:       "https://github.com/dotnet/arcade",
			expectedToken: "first",
		},
		{
			name:          "azure_devops_falls_back_to_system_token",
			environment:   map[string]string{githubauth.EnvAzureDevOpsSystemToken: "azdo"},
			repoURI:       "https://dev.azure.com/dnceng/internal/_git/dotnet-arcade",
			expectedToken: "azdo",
		},
		{
			name:          "configured_environment_source_wins",
			hostSources:   map[string]string{"GitHub.com": "env:DEPFLOW_GITHUB_PAT"},
			environment:   map[string]string{"DEPFLOW_GITHUB_PAT": "configured", githubauth.EnvGitHubToken: "fallback"},
			repoURI:       "https://github.com/dotnet/arcade",
			expectedToken: "configured",
		},
		{
			name:          "configured_file_source",
			hostSources:   map[string]string{"github.com": "file:/run/secrets/pat"},
			files:         map[string]string{"/run/secrets/pat": "from-file\n"},
			repoURI:       "git@github.com:dotnet/arcade.git",
			expectedToken: "from-file",
		},
		{
			name:        "configured_source_missing_variable",
			hostSources: map[string]string{"github.com": "env:DEPFLOW_GITHUB_PAT"},
			repoURI:     "https://github.com/dotnet/arcade",
			expectError: true,
		},
		{
			name:          "unknown_host_has_no_token",
			environment:   map[string]string{githubauth.EnvGitHubToken: "unused"},
			repoURI:       "https://gitlab.com/group/project",
			expectedToken: "",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			fileReader := func(path string) ([]byte, error) {
				contents, found := testCase.files[path]
				if !found {
					return nil, errors.New("missing file")
				}
				return []byte(contents), nil
			}
			provider, creationError := githubauth.NewRepositoryTokenProvider(
				testCase.hostSources,
				githubauth.WithEnvironmentLookup(mapLookup(testCase.environment)),
				githubauth.WithFileReader(fileReader),
			)
			require.NoError(testInstance, creationError)

			token, resolutionError := provider.TokenForRepository(context.Background(), testCase.repoURI)
			if testCase.expectError {
				require.Error(testInstance, resolutionError)
				return
			}
			require.NoError(testInstance, resolutionError)
			require.Equal(testInstance, testCase.expectedToken, token)
		})
	}
}

func TestNewRepositoryTokenProviderRejectsInvalidSource(testInstance *testing.T) {
	_, creationError := githubauth.NewRepositoryTokenProvider(map[string]string{"github.com": "vault:secret"})
	require.Error(testInstance, creationError)
	require.Contains(testInstance, creationError.Error(), "github.com")
}

func TestParseTokenSource(testInstance *testing.T) {
	testCases := []struct {
		input       string
		expected    githubauth.TokenSourceConfiguration
		expectError bool
	}{
		{input: "GITHUB_TOKEN", expected: githubauth.TokenSourceConfiguration{Type: githubauth.TokenSourceTypeEnvironment, Reference: "GITHUB_TOKEN"}},
		{input: "env:PAT", expected: githubauth.TokenSourceConfiguration{Type: githubauth.TokenSourceTypeEnvironment, Reference: "PAT"}},
		{input: "FILE: /tmp/pat", expected: githubauth.TokenSourceConfiguration{Type: githubauth.TokenSourceTypeFile, Reference: "/tmp/pat"}},
		{input: "env:", expectError: true},
		{input: "", expectError: true},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.input, func(testInstance *testing.T) {
			source, parseError := githubauth.ParseTokenSource(testCase.input)
			if testCase.expectError {
				require.Error(testInstance, parseError)
				return
			}
			require.NoError(testInstance, parseError)
			require.Equal(testInstance, testCase.expected, source)
		})
	}
}

func TestResolveTokenSource(testInstance *testing.T) {
	tokenFile := filepath.Join(testInstance.TempDir(), "registry.pat")
	require.NoError(testInstance, os.WriteFile(tokenFile, []byte("  file-token\n"), 0o600))
	testInstance.Setenv("DEPFLOW_TEST_REGISTRY_TOKEN", "env-token")

	token, resolveError := githubauth.ResolveTokenSource("")
	require.NoError(testInstance, resolveError)
	require.Empty(testInstance, token)

	token, resolveError = githubauth.ResolveTokenSource("file:" + tokenFile)
	require.NoError(testInstance, resolveError)
	require.Equal(testInstance, "file-token", token)

	token, resolveError = githubauth.ResolveTokenSource("env:DEPFLOW_TEST_REGISTRY_TOKEN")
	require.NoError(testInstance, resolveError)
	require.Equal(testInstance, "env-token", token)

	_, resolveError = githubauth.ResolveTokenSource("vault:secret")
	require.Error(testInstance, resolveError)
}
