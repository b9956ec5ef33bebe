package azuredevops

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/temirov/depflow/internal/gitprovider"
)

const (
	azureDevOpsHostConstant                 = "dev.azure.com"
	legacyHostSuffixConstant                = ".visualstudio.com"
	httpsSchemeConstant                     = "https"
	repositoryURLTemplateConstant           = "https://dev.azure.com/%s/%s/_git/%s"
	repositoryNotRecognizedMessageConstant  = "repository URL should be https://dev.azure.com/:account/:project/_git/:repo or https://:account.visualstudio.com/:project/_git/:repo"
	pullRequestNotRecognizedMessageConstant = "pull request URL should be https://dev.azure.com/:account/:project/_apis/git/repositories/:repo/pullRequests/:id"
	pullRequestIDOverflowMessageConstant    = "pull request number out of range"
)

var (
	repositoryPathPattern  = regexp.MustCompile(`^/([a-zA-Z0-9]+)/([a-zA-Z0-9-]+)/_git/([a-zA-Z0-9-.]+)/?$`)
	pullRequestPathPattern = regexp.MustCompile(`^/([a-zA-Z0-9]+)/([a-zA-Z0-9-]+)/_apis/git/repositories/([a-zA-Z0-9-.]+)/pullRequests/(\d+)/?$`)
)

type repositoryCoordinates struct {
	account    string
	project    string
	repository string
}

func (coordinates repositoryCoordinates) repoURI() string {
	return fmt.Sprintf(repositoryURLTemplateConstant, coordinates.account, coordinates.project, coordinates.repository)
}

type pullRequestCoordinates struct {
	repositoryCoordinates
	number int32
}

// NormalizeRepositoryURI drops user information and rewrites the legacy
// https://account.visualstudio.com host to https://dev.azure.com/account.
// Values that are not absolute URLs are returned unchanged.
func NormalizeRepositoryURI(uri string) string {
	trimmed := strings.TrimSpace(uri)
	parsedURL, parseError := url.Parse(trimmed)
	if parseError != nil || len(parsedURL.Host) == 0 {
		return trimmed
	}
	parsedURL.User = nil
	host := strings.ToLower(parsedURL.Hostname())
	if strings.HasSuffix(host, legacyHostSuffixConstant) {
		account := strings.TrimSuffix(host, legacyHostSuffixConstant)
		parsedURL.Host = azureDevOpsHostConstant
		parsedURL.Path = "/" + account + parsedURL.Path
		parsedURL.RawPath = ""
	}
	return parsedURL.String()
}

// ParseRepositoryURI extracts account, project and repository from a
// repository URL in either supported host form.
func ParseRepositoryURI(uri string) (string, string, string, error) {
	coordinates, parseError := parseRepositoryCoordinates(uri)
	if parseError != nil {
		return "", "", "", parseError
	}
	return coordinates.account, coordinates.project, coordinates.repository, nil
}

// ParsePullRequestURI extracts account, project, repository and number from a
// pull request API URL.
func ParsePullRequestURI(uri string) (string, string, string, int32, error) {
	coordinates, parseError := parsePullRequestCoordinates(uri)
	if parseError != nil {
		return "", "", "", 0, parseError
	}
	return coordinates.account, coordinates.project, coordinates.repository, coordinates.number, nil
}

func parseRepositoryCoordinates(uri string) (repositoryCoordinates, error) {
	matches, matchError := matchAzureDevOpsPath(NormalizeRepositoryURI(uri), repositoryPathPattern, repositoryNotRecognizedMessageConstant, uri)
	if matchError != nil {
		return repositoryCoordinates{}, matchError
	}
	return repositoryCoordinates{account: matches[1], project: matches[2], repository: matches[3]}, nil
}

func parsePullRequestCoordinates(uri string) (pullRequestCoordinates, error) {
	matches, matchError := matchAzureDevOpsPath(strings.TrimSpace(uri), pullRequestPathPattern, pullRequestNotRecognizedMessageConstant, uri)
	if matchError != nil {
		return pullRequestCoordinates{}, matchError
	}
	number, numberError := strconv.ParseInt(matches[4], 10, 32)
	if numberError != nil {
		return pullRequestCoordinates{}, gitprovider.MalformedInputError{Input: uri, Message: pullRequestIDOverflowMessageConstant, Cause: numberError}
	}
	return pullRequestCoordinates{
		repositoryCoordinates: repositoryCoordinates{account: matches[1], project: matches[2], repository: matches[3]},
		number:                int32(number),
	}, nil
}

func matchAzureDevOpsPath(candidate string, pattern *regexp.Regexp, message string, original string) ([]string, error) {
	parsedURL, parseError := url.Parse(candidate)
	if parseError != nil {
		return nil, gitprovider.MalformedInputError{Input: original, Message: message, Cause: parseError}
	}
	if parsedURL.Scheme != httpsSchemeConstant || !strings.EqualFold(parsedURL.Hostname(), azureDevOpsHostConstant) {
		return nil, gitprovider.MalformedInputError{Input: original, Message: message}
	}
	matches := pattern.FindStringSubmatch(parsedURL.Path)
	if matches == nil {
		return nil, gitprovider.MalformedInputError{Input: original, Message: message}
	}
	return matches, nil
}

// formatRepositoryEndpoint fills the repository segment of a project-relative
// endpoint template. Repository names are limited to URL-safe characters.
func formatRepositoryEndpoint(template string, coordinates repositoryCoordinates) string {
	return fmt.Sprintf(template, coordinates.repository)
}

func formatPullRequestEndpoint(template string, coordinates pullRequestCoordinates) string {
	return fmt.Sprintf(template, coordinates.repository, coordinates.number)
}
