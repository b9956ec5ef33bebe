package githubauth

import (
	"os"
	"strings"
)

// Environment variable names consulted when no token source is configured for a host.
const (
	EnvGitHubCLIToken         = "GH_TOKEN"
	EnvGitHubToken            = "GITHUB_TOKEN"
	EnvGitHubAPIToken         = "GITHUB_API_TOKEN"
	EnvAzureDevOpsToken       = "AZDO_TOKEN"
	EnvAzureDevOpsSystemToken = "SYSTEM_ACCESSTOKEN"
)

var gitHubTokenPreference = []string{
	EnvGitHubCLIToken,
	EnvGitHubToken,
	EnvGitHubAPIToken,
}

var azureDevOpsTokenPreference = []string{
	EnvAzureDevOpsToken,
	EnvAzureDevOpsSystemToken,
}

// ResolveToken returns the first non-empty GitHub token observed in the
// provided environment map or the process environment.
func ResolveToken(environment map[string]string) (string, bool) {
	return resolveFromPreference(gitHubTokenPreference, environment, os.LookupEnv)
}

func resolveFromPreference(preference []string, environment map[string]string, environmentLookup EnvironmentLookup) (string, bool) {
	for _, key := range preference {
		if value, ok := lookup(environment, key); ok {
			return value, true
		}
	}
	if environmentLookup == nil {
		return "", false
	}
	for _, key := range preference {
		if value, ok := environmentLookup(key); ok {
			value = strings.TrimSpace(value)
			if len(value) > 0 {
				return value, true
			}
		}
	}
	return "", false
}

func lookup(environment map[string]string, key string) (string, bool) {
	if environment == nil {
		return "", false
	}
	value, exists := environment[key]
	if !exists {
		return "", false
	}
	value = strings.TrimSpace(value)
	if len(value) == 0 {
		return "", false
	}
	return value, true
}
