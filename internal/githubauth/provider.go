package githubauth

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/temirov/depflow/internal/gitrepo"
)

const invalidHostTokenSourceTemplateConstant = "invalid token source for host %s: %w"

// RepositoryTokenProvider resolves tokens by repository host. It satisfies
// gitprovider.TokenProvider. Tokens are read on every call so rotated
// credentials are picked up without restarting.
type RepositoryTokenProvider struct {
	hostSources       map[string]TokenSourceConfiguration
	environmentLookup EnvironmentLookup
	fileReader        FileReader
}

// ProviderOption customizes a RepositoryTokenProvider.
type ProviderOption func(*RepositoryTokenProvider)

// WithEnvironmentLookup overrides the process environment lookup.
func WithEnvironmentLookup(environmentLookup EnvironmentLookup) ProviderOption {
	return func(provider *RepositoryTokenProvider) {
		if environmentLookup != nil {
			provider.environmentLookup = environmentLookup
		}
	}
}

// WithFileReader overrides the token file reader.
func WithFileReader(fileReader FileReader) ProviderOption {
	return func(provider *RepositoryTokenProvider) {
		if fileReader != nil {
			provider.fileReader = fileReader
		}
	}
}

// NewRepositoryTokenProvider parses hostSources, a map from host name (for
// example github.com) to a token source declaration.
func NewRepositoryTokenProvider(hostSources map[string]string, options ...ProviderOption) (*RepositoryTokenProvider, error) {
	provider := &RepositoryTokenProvider{
		hostSources:       make(map[string]TokenSourceConfiguration, len(hostSources)),
		environmentLookup: os.LookupEnv,
		fileReader:        os.ReadFile,
	}
	for host, sourceValue := range hostSources {
		source, parseError := ParseTokenSource(sourceValue)
		if parseError != nil {
			return nil, fmt.Errorf(invalidHostTokenSourceTemplateConstant, host, parseError)
		}
		provider.hostSources[strings.ToLower(strings.TrimSpace(host))] = source
	}
	for _, option := range options {
		if option != nil {
			option(provider)
		}
	}
	return provider, nil
}

// TokenForRepository returns the token for repoURI. An empty token with a nil
// error means no credential is available.
func (provider *RepositoryTokenProvider) TokenForRepository(ctx context.Context, repoURI string) (string, error) {
	if contextError := ctx.Err(); contextError != nil {
		return "", contextError
	}
	if source, configured := provider.hostSources[gitrepo.RepositoryHost(repoURI)]; configured {
		return readTokenSource(source, provider.environmentLookup, provider.fileReader)
	}

	switch gitrepo.ClassifyRepository(repoURI) {
	case gitrepo.RepositoryKindGitHub:
		token, _ := resolveFromPreference(gitHubTokenPreference, nil, provider.environmentLookup)
		return token, nil
	case gitrepo.RepositoryKindAzureDevOps:
		token, _ := resolveFromPreference(azureDevOpsTokenPreference, nil, provider.environmentLookup)
		return token, nil
	default:
		return "", nil
	}
}
