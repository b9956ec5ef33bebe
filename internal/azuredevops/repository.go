package azuredevops

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/temirov/depflow/internal/gitprovider"
)

const (
	getItemOperationNameConstant       = OperationName("GetItem")
	listItemsOperationNameConstant     = OperationName("ListItems")
	getRepositoryOperationNameConstant = OperationName("GetRepository")
	listCommitsOperationNameConstant   = OperationName("ListCommits")
	itemsEndpointTemplateConstant      = "_apis/git/repositories/%s/items"
	repositoryEndpointTemplateConstant = "_apis/git/repositories/%s"
	commitsEndpointTemplateConstant    = "_apis/git/repositories/%s/commits"
	pathParameterConstant              = "path"
	scopePathParameterConstant         = "scopePath"
	versionParameterConstant           = "versionDescriptor.version"
	versionTypeParameterConstant       = "versionDescriptor.versionType"
	includeContentParameterConstant    = "includeContent"
	recursionLevelParameterConstant    = "recursionLevel"
	commitVersionParameterConstant     = "searchCriteria.itemVersion.version"
	topParameterConstant               = "searchCriteria.$top"
	versionTypeBranchConstant          = "branch"
	versionTypeCommitConstant          = "commit"
	versionTypeTagConstant             = "tag"
	recursionLevelFullConstant         = "full"
	trueParameterValueConstant         = "true"
	singleResultConstant               = "1"
	pathSeparatorConstant              = "/"
	clonerSettingNameConstant          = "cloner"
	cloneWithoutClonerMessageConstant  = "no cloner configured for hosted repositories"
)

// versionTypes is the order in which an ambiguous ref is tried. Azure DevOps
// needs the kind of a version spelled out.
var versionTypes = []string{versionTypeBranchConstant, versionTypeCommitConstant, versionTypeTagConstant}

type itemResponse struct {
	Path     string `json:"path"`
	Content  string `json:"content"`
	IsFolder bool   `json:"isFolder"`
}

// GetFileContents reads filePath at ref, trying ref as a branch, then as a
// commit, then as a tag. A file missing under every interpretation is
// reported as gitprovider.FileNotFoundError.
func (client *Client) GetFileContents(executionContext context.Context, filePath string, repoURI string, ref string) (string, error) {
	coordinates, coordinatesError := parseRepositoryCoordinates(repoURI)
	if coordinatesError != nil {
		return "", coordinatesError
	}

	var lastError error
	for _, versionType := range versionTypes {
		content, readError := client.getItem(executionContext, coordinates, filePath, ref, versionType)
		if readError == nil {
			return content, nil
		}
		if !isNotFoundOrBadRequest(readError) {
			return "", readError
		}
		lastError = readError
	}
	return "", gitprovider.FileNotFoundError{FilePath: filePath, RepoURI: repoURI, Ref: ref, Cause: lastError}
}

func (client *Client) getItem(executionContext context.Context, coordinates repositoryCoordinates, filePath string, version string, versionType string) (string, error) {
	var response itemResponse
	request := apiRequest{
		operation:   getItemOperationNameConstant,
		coordinates: coordinates,
		method:      http.MethodGet,
		endpoint:    formatRepositoryEndpoint(itemsEndpointTemplateConstant, coordinates),
		query: url.Values{
			pathParameterConstant:           []string{filePath},
			versionParameterConstant:        []string{version},
			versionTypeParameterConstant:    []string{versionType},
			includeContentParameterConstant: []string{trueParameterValueConstant},
		},
	}
	if requestError := client.do(executionContext, request, &response); requestError != nil {
		return "", requestError
	}
	return response.Content, nil
}

// GetFilesAtCommit reads every file below directory at commit.
func (client *Client) GetFilesAtCommit(executionContext context.Context, repoURI string, commit string, directory string) ([]gitprovider.GitFile, error) {
	coordinates, coordinatesError := parseRepositoryCoordinates(repoURI)
	if coordinatesError != nil {
		return nil, coordinatesError
	}

	var response struct {
		Value []itemResponse `json:"value"`
	}
	request := apiRequest{
		operation:   listItemsOperationNameConstant,
		coordinates: coordinates,
		method:      http.MethodGet,
		endpoint:    formatRepositoryEndpoint(itemsEndpointTemplateConstant, coordinates),
		query: url.Values{
			scopePathParameterConstant:      []string{directory},
			versionParameterConstant:        []string{commit},
			versionTypeParameterConstant:    []string{versionTypeCommitConstant},
			recursionLevelParameterConstant: []string{recursionLevelFullConstant},
		},
	}
	if requestError := client.do(executionContext, request, &response); requestError != nil {
		if errors.Is(requestError, gitprovider.ErrNotFound) {
			return nil, gitprovider.FileNotFoundError{FilePath: directory, RepoURI: repoURI, Ref: commit, Cause: requestError}
		}
		return nil, requestError
	}

	files := []gitprovider.GitFile{}
	for _, item := range response.Value {
		if item.IsFolder {
			continue
		}
		content, readError := client.getItem(executionContext, coordinates, item.Path, commit, versionTypeCommitConstant)
		if readError != nil {
			return nil, readError
		}
		files = append(files, gitprovider.GitFile{
			FilePath:        strings.TrimPrefix(item.Path, pathSeparatorConstant),
			Content:         content,
			ContentEncoding: gitprovider.ContentEncodingUTF8,
			Mode:            gitprovider.DefaultFileMode,
		})
	}
	return files, nil
}

// RepositoryExists reports whether repoURI names a reachable repository.
func (client *Client) RepositoryExists(executionContext context.Context, repoURI string) bool {
	coordinates, coordinatesError := parseRepositoryCoordinates(repoURI)
	if coordinatesError != nil {
		return false
	}
	request := apiRequest{
		operation:   getRepositoryOperationNameConstant,
		coordinates: coordinates,
		method:      http.MethodGet,
		endpoint:    formatRepositoryEndpoint(repositoryEndpointTemplateConstant, coordinates),
	}
	return client.do(executionContext, request, nil) == nil
}

// GetLastCommitSHA returns the tip of branch, or an empty string when the
// branch or repository is unknown.
func (client *Client) GetLastCommitSHA(executionContext context.Context, repoURI string, branch string) (string, error) {
	coordinates, coordinatesError := parseRepositoryCoordinates(repoURI)
	if coordinatesError != nil {
		return "", coordinatesError
	}
	return client.lastCommitSHA(executionContext, coordinates, branch)
}

func (client *Client) lastCommitSHA(executionContext context.Context, coordinates repositoryCoordinates, branch string) (string, error) {
	var response struct {
		Value []struct {
			CommitID string `json:"commitId"`
		} `json:"value"`
	}
	request := apiRequest{
		operation:   listCommitsOperationNameConstant,
		coordinates: coordinates,
		method:      http.MethodGet,
		endpoint:    formatRepositoryEndpoint(commitsEndpointTemplateConstant, coordinates),
		query: url.Values{
			commitVersionParameterConstant: []string{branch},
			topParameterConstant:           []string{singleResultConstant},
		},
	}
	if requestError := client.do(executionContext, request, &response); requestError != nil {
		if errors.Is(requestError, gitprovider.ErrNotFound) {
			return "", nil
		}
		return "", requestError
	}
	if len(response.Value) == 0 {
		return "", nil
	}
	return response.Value[0].CommitID, nil
}

// Clone delegates to the configured Cloner using the normalized repository URL.
func (client *Client) Clone(executionContext context.Context, options gitprovider.CloneOptions) error {
	if client.cloner == nil {
		return gitprovider.ConfigurationError{Setting: clonerSettingNameConstant, Message: cloneWithoutClonerMessageConstant}
	}
	options.RepoURI = NormalizeRepositoryURI(options.RepoURI)
	return client.cloner.Clone(executionContext, options)
}
