package gitrepo

import (
	"net/url"
	"path/filepath"
	"strings"
)

const (
	gitHubHostConstant                  = "github.com"
	gitHubWWWHostConstant               = "www.github.com"
	azureDevOpsHostConstant             = "dev.azure.com"
	azureDevOpsLegacyHostSuffixConstant = ".visualstudio.com"
	fileSchemeConstant                  = "file"
)

// RepositoryKind identifies the service behind a repository URL.
type RepositoryKind string

// Repository kinds.
const (
	RepositoryKindGitHub      RepositoryKind = RepositoryKind("github")
	RepositoryKindAzureDevOps RepositoryKind = RepositoryKind("azdo")
	RepositoryKindLocal       RepositoryKind = RepositoryKind("local")
	RepositoryKindUnknown     RepositoryKind = RepositoryKind("unknown")
)

// ClassifyRepository inspects the host of repoURI.
func ClassifyRepository(repoURI string) RepositoryKind {
	trimmed := strings.TrimSpace(repoURI)
	if len(trimmed) == 0 {
		return RepositoryKindUnknown
	}

	host := ""
	if parsedRemote, parseError := ParseRemoteURL(trimmed); parseError == nil {
		host = parsedRemote.Host
	} else if parsedURL, urlError := url.Parse(trimmed); urlError == nil && len(parsedURL.Host) > 0 {
		host = parsedURL.Hostname()
	} else if urlError == nil && (parsedURL.Scheme == fileSchemeConstant || filepath.IsAbs(trimmed)) {
		return RepositoryKindLocal
	}

	host = strings.ToLower(host)
	if colonIndex := strings.Index(host, sshPathDelimiterConstant); colonIndex >= 0 {
		host = host[:colonIndex]
	}
	switch {
	case host == gitHubHostConstant || host == gitHubWWWHostConstant:
		return RepositoryKindGitHub
	case host == azureDevOpsHostConstant || strings.HasSuffix(host, azureDevOpsLegacyHostSuffixConstant):
		return RepositoryKindAzureDevOps
	default:
		return RepositoryKindUnknown
	}
}

// RepositoryHost returns the lower-cased host of repoURI, or an empty string.
func RepositoryHost(repoURI string) string {
	if parsedRemote, parseError := ParseRemoteURL(repoURI); parseError == nil {
		return strings.ToLower(parsedRemote.Host)
	}
	if parsedURL, urlError := url.Parse(strings.TrimSpace(repoURI)); urlError == nil {
		return strings.ToLower(parsedURL.Hostname())
	}
	return ""
}
