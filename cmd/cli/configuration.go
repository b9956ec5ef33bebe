package cli

import (
	"strings"
	"time"
)

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common      CommonConfiguration      `mapstructure:"common"`
	GitHub      GitHubConfiguration      `mapstructure:"github"`
	AzureDevOps AzureDevOpsConfiguration `mapstructure:"azure_devops"`
	Registry    RegistryConfiguration    `mapstructure:"registry"`
	Git         GitConfiguration         `mapstructure:"git"`
	Resolver    ResolverConfiguration    `mapstructure:"resolver"`
}

// CommonConfiguration stores logging and metrics settings shared across commands.
type CommonConfiguration struct {
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`
	MetricsFile string `mapstructure:"metrics_file"`
}

// GitHubConfiguration configures the GitHub API client.
type GitHubConfiguration struct {
	APIURL            string        `mapstructure:"api_url"`
	DefaultRetryAfter time.Duration `mapstructure:"default_retry_after"`
}

// AzureDevOpsConfiguration configures the Azure DevOps API client.
type AzureDevOpsConfiguration struct {
	APIURL     string `mapstructure:"api_url"`
	APIVersion string `mapstructure:"api_version"`
}

// RegistryConfiguration locates the build registry. An empty BaseURL disables
// location resolution.
type RegistryConfiguration struct {
	BaseURL     string `mapstructure:"base_url"`
	TokenSource string `mapstructure:"token_source"`
}

// GitConfiguration configures the local workspace and repository credentials.
type GitConfiguration struct {
	CommandTimeout time.Duration            `mapstructure:"command_timeout"`
	BotName        string                   `mapstructure:"bot_name"`
	BotEmail       string                   `mapstructure:"bot_email"`
	Tokens         []HostTokenConfiguration `mapstructure:"tokens"`
}

// HostTokenConfiguration maps a repository host to a token source such as
// env:GITHUB_TOKEN or file:/run/secrets/token.
type HostTokenConfiguration struct {
	Host   string `mapstructure:"host"`
	Source string `mapstructure:"source"`
}

// ResolverConfiguration tunes the asset location resolver.
type ResolverConfiguration struct {
	Concurrency int `mapstructure:"concurrency"`
}

// hostTokenSources flattens the token list, skipping incomplete entries. Later
// entries for the same host win.
func (configuration GitConfiguration) hostTokenSources() map[string]string {
	sources := make(map[string]string, len(configuration.Tokens))
	for _, token := range configuration.Tokens {
		host := strings.ToLower(strings.TrimSpace(token.Host))
		source := strings.TrimSpace(token.Source)
		if len(host) == 0 || len(source) == 0 {
			continue
		}
		sources[host] = source
	}
	return sources
}
