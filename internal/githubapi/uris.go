package githubapi

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/temirov/depflow/internal/gitprovider"
)

const (
	unparsableURIMessageConstant         = "not a valid URI"
	pullRequestIDOverflowMessageConstant = "pull request number out of range"
	repositoryWebURLTemplateConstant     = "https://github.com/%s/%s"
)

var (
	repositoryPathPattern  = regexp.MustCompile(`^/([^/]+)/([^/]+)/?$`)
	pullRequestPathPattern = regexp.MustCompile(`^/repos/([^/]+)/([^/]+)/pulls/(\d+)$`)
)

// ParseRepositoryURI extracts the owner and repository name from a GitHub
// repository URL. Paths of any other shape yield empty strings without error.
func ParseRepositoryURI(uri string) (string, string, error) {
	parsedURL, parseError := parseAbsoluteURI(uri)
	if parseError != nil {
		return "", "", parseError
	}
	matches := repositoryPathPattern.FindStringSubmatch(parsedURL.Path)
	if matches == nil {
		return "", "", nil
	}
	return matches[1], matches[2], nil
}

// ParsePullRequestURI extracts owner, repository and number from a pull
// request API URL such as https://api.github.com/repos/o/r/pulls/1. Paths of
// any other shape yield a zero tuple without error.
func ParsePullRequestURI(uri string) (string, string, int32, error) {
	parsedURL, parseError := parseAbsoluteURI(uri)
	if parseError != nil {
		return "", "", 0, parseError
	}
	matches := pullRequestPathPattern.FindStringSubmatch(parsedURL.Path)
	if matches == nil {
		return "", "", 0, nil
	}
	number, numberError := strconv.ParseInt(matches[3], 10, 32)
	if numberError != nil {
		return "", "", 0, gitprovider.MalformedInputError{Input: uri, Message: pullRequestIDOverflowMessageConstant, Cause: numberError}
	}
	return matches[1], matches[2], int32(number), nil
}

// escapePathSegments escapes each slash-separated segment of a ref or file
// path for use in an endpoint path. Slashes are kept.
func escapePathSegments(value string) string {
	segments := strings.Split(value, "/")
	for index, segment := range segments {
		segments[index] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}

func parseAbsoluteURI(uri string) (*url.URL, error) {
	parsedURL, parseError := url.Parse(strings.TrimSpace(uri))
	if parseError != nil {
		return nil, gitprovider.MalformedInputError{Input: uri, Message: unparsableURIMessageConstant, Cause: parseError}
	}
	if !parsedURL.IsAbs() || len(parsedURL.Host) == 0 {
		return nil, gitprovider.MalformedInputError{Input: uri, Message: unparsableURIMessageConstant}
	}
	return parsedURL, nil
}

func repositoryWebURL(owner string, repository string) string {
	return fmt.Sprintf(repositoryWebURLTemplateConstant, owner, repository)
}
