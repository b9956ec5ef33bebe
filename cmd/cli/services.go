package cli

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/depflow/internal/assets"
	"github.com/temirov/depflow/internal/azuredevops"
	"github.com/temirov/depflow/internal/buildregistry"
	"github.com/temirov/depflow/internal/execshell"
	"github.com/temirov/depflow/internal/githubapi"
	"github.com/temirov/depflow/internal/githubauth"
	"github.com/temirov/depflow/internal/gitprovider"
	"github.com/temirov/depflow/internal/gitrepo"
	"github.com/temirov/depflow/internal/gitworkspace"
	"github.com/temirov/depflow/internal/metrics"
	"github.com/temirov/depflow/internal/remote"
)

const (
	tokenProviderErrorTemplateConstant     = "unable to configure repository tokens: %w"
	shellExecutorErrorTemplateConstant     = "unable to create git executor: %w"
	workspaceErrorTemplateConstant         = "unable to create git workspace: %w"
	hostedClientErrorTemplateConstant      = "unable to create GitHub client: %w"
	azureDevOpsClientErrorTemplateConstant = "unable to create Azure DevOps client: %w"
	registryTokenErrorTemplateConstant     = "unable to read registry token: %w"
	registryClientErrorTemplateConstant    = "unable to create build registry client: %w"
	registryDisabledMessageConstant        = "build registry not configured; location resolution disabled"
)

// applicationServices holds the collaborators built from the loaded configuration.
type applicationServices struct {
	workspace         *gitworkspace.Workspace
	localRemote       *remote.Remote
	hostedRemote      *remote.Remote
	azureDevOpsRemote *remote.Remote
}

func buildApplicationServices(configuration ApplicationConfiguration, logger *zap.Logger, recorder metrics.Recorder) (*applicationServices, error) {
	tokenProvider, tokenProviderError := githubauth.NewRepositoryTokenProvider(configuration.Git.hostTokenSources())
	if tokenProviderError != nil {
		return nil, fmt.Errorf(tokenProviderErrorTemplateConstant, tokenProviderError)
	}

	shellExecutor, executorError := execshell.NewShellExecutor(
		logger,
		execshell.NewOSCommandRunner(),
		execshell.WithDurationObserver(recorder),
		execshell.WithDefaultTimeout(configuration.Git.CommandTimeout),
	)
	if executorError != nil {
		return nil, fmt.Errorf(shellExecutorErrorTemplateConstant, executorError)
	}

	workspace, workspaceError := gitworkspace.NewWorkspace(
		gitworkspace.Dependencies{GitExecutor: shellExecutor, TokenProvider: tokenProvider, Logger: logger},
		gitworkspace.Options{
			CommandTimeout: configuration.Git.CommandTimeout,
			Author:         gitworkspace.Identity{Name: configuration.Git.BotName, Email: configuration.Git.BotEmail},
		},
	)
	if workspaceError != nil {
		return nil, fmt.Errorf(workspaceErrorTemplateConstant, workspaceError)
	}

	hostedClient, hostedClientError := githubapi.NewClient(
		githubapi.Dependencies{TokenProvider: tokenProvider, Cloner: workspace, Metrics: recorder, Logger: logger},
		githubapi.Options{APIURL: configuration.GitHub.APIURL, DefaultRetryAfter: configuration.GitHub.DefaultRetryAfter},
	)
	if hostedClientError != nil {
		return nil, fmt.Errorf(hostedClientErrorTemplateConstant, hostedClientError)
	}

	azureDevOpsClient, azureDevOpsClientError := azuredevops.NewClient(
		azuredevops.Dependencies{TokenProvider: tokenProvider, Cloner: workspace, Metrics: recorder, Logger: logger},
		azuredevops.Options{APIURL: configuration.AzureDevOps.APIURL, APIVersion: configuration.AzureDevOps.APIVersion},
	)
	if azureDevOpsClientError != nil {
		return nil, fmt.Errorf(azureDevOpsClientErrorTemplateConstant, azureDevOpsClientError)
	}

	registry, registryError := buildRegistryClient(configuration.Registry, logger)
	if registryError != nil {
		return nil, registryError
	}

	resolver := assets.NewResolver(
		assets.Dependencies{Registry: registry, Metrics: recorder, Logger: logger},
		assets.Options{Concurrency: configuration.Resolver.Concurrency},
	)

	return &applicationServices{
		workspace:         workspace,
		localRemote:       remote.New(remote.Dependencies{Repository: workspace, Resolver: resolver, Logger: logger}),
		hostedRemote:      remote.New(remote.Dependencies{Repository: hostedClient, Resolver: resolver, Logger: logger}),
		azureDevOpsRemote: remote.New(remote.Dependencies{Repository: azureDevOpsClient, Resolver: resolver, Logger: logger}),
	}, nil
}

// buildRegistryClient returns a nil client when no registry is configured.
func buildRegistryClient(configuration RegistryConfiguration, logger *zap.Logger) (buildregistry.Client, error) {
	if len(strings.TrimSpace(configuration.BaseURL)) == 0 {
		logger.Debug(registryDisabledMessageConstant)
		return nil, nil
	}

	token, tokenError := githubauth.ResolveTokenSource(configuration.TokenSource)
	if tokenError != nil {
		return nil, fmt.Errorf(registryTokenErrorTemplateConstant, tokenError)
	}

	client, clientError := buildregistry.NewHTTPClient(
		buildregistry.Dependencies{Logger: logger},
		buildregistry.Options{BaseURL: configuration.BaseURL, Token: token},
	)
	if clientError != nil {
		return nil, fmt.Errorf(registryClientErrorTemplateConstant, clientError)
	}
	return client, nil
}

// remoteFor picks the local workspace for filesystem paths, the Azure DevOps
// client for dev.azure.com and visualstudio.com URLs, and the GitHub client
// for everything else.
func (services *applicationServices) remoteFor(repoURI string) *remote.Remote {
	switch gitrepo.ClassifyRepository(repoURI) {
	case gitrepo.RepositoryKindLocal:
		return services.localRemote
	case gitrepo.RepositoryKindAzureDevOps:
		return services.azureDevOpsRemote
	default:
		return services.hostedRemote
	}
}

// GetDependencies reads Version.Details.xml through the backend matching repoURI.
func (services *applicationServices) GetDependencies(ctx context.Context, repoURI string, ref string, name string) ([]gitprovider.DependencyDetail, error) {
	return services.remoteFor(repoURI).GetDependencies(ctx, repoURI, ref, name)
}

// ResolveLocations attaches registry feed locations to dependencies.
func (services *applicationServices) ResolveLocations(ctx context.Context, dependencies []*gitprovider.DependencyDetail) error {
	return services.hostedRemote.ResolveLocations(ctx, dependencies)
}

// GetPullRequestReviews reads the latest reviews through the provider hosting pullRequestURL.
func (services *applicationServices) GetPullRequestReviews(ctx context.Context, pullRequestURL string) ([]gitprovider.Review, error) {
	return services.remoteFor(pullRequestURL).GetPullRequestReviews(ctx, pullRequestURL)
}
