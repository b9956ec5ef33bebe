package githubapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/temirov/depflow/internal/gitprovider"
)

const (
	getContentsOperationNameConstant   = OperationName("GetContents")
	getTreeOperationNameConstant       = OperationName("GetTree")
	getGitCommitOperationNameConstant  = OperationName("GetGitCommit")
	contentsEndpointTemplateConstant   = "repos/%s/%s/contents/%s"
	treeEndpointTemplateConstant       = "repos/%s/%s/git/trees/%s"
	gitCommitEndpointTemplateConstant  = "repos/%s/%s/git/commits/%s"
	refParameterConstant               = "ref"
	recursiveParameterConstant         = "recursive"
	recursiveParameterValueConstant    = "1"
	treeEntryTypeBlobConstant          = "blob"
	treeEntryTypeTreeConstant          = "tree"
	pathSeparatorConstant              = "/"
	blobFetchConcurrencyConstant       = 8
	truncatedTreeErrorTemplateConstant = "%w: tree %s of %s/%s is too large to list recursively"
	cloneWithoutClonerMessageConstant  = "no cloner configured for hosted repositories"
	clonerSettingNameConstant          = "cloner"
)

// ErrTreeTruncated reports a recursive tree listing that GitHub cut short.
var ErrTreeTruncated = errors.New("tree listing truncated")

type treeEntry struct {
	Path string `json:"path"`
	Mode string `json:"mode"`
	Type string `json:"type"`
	SHA  string `json:"sha"`
}

type treeResponse struct {
	SHA       string      `json:"sha"`
	Tree      []treeEntry `json:"tree"`
	Truncated bool        `json:"truncated"`
}

// GetFileContents reads filePath at ref. A missing file is reported as
// gitprovider.FileNotFoundError.
func (client *Client) GetFileContents(executionContext context.Context, filePath string, repoURI string, ref string) (string, error) {
	owner, repository, coordinatesError := repositoryCoordinates(repoURI)
	if coordinatesError != nil {
		return "", coordinatesError
	}

	var response struct {
		Content  string `json:"content"`
		Encoding string `json:"encoding"`
	}
	request := apiRequest{
		operation: getContentsOperationNameConstant,
		repoURI:   repoURI,
		method:    http.MethodGet,
		endpoint:  fmt.Sprintf(contentsEndpointTemplateConstant, owner, repository, escapePathSegments(strings.TrimPrefix(filePath, pathSeparatorConstant))),
	}
	if len(ref) > 0 {
		request.query = url.Values{refParameterConstant: []string{ref}}
	}
	if requestError := client.do(executionContext, request, &response); requestError != nil {
		if isNotFound(requestError) {
			return "", gitprovider.FileNotFoundError{FilePath: filePath, RepoURI: repoURI, Ref: ref, Cause: requestError}
		}
		return "", requestError
	}
	return decodeContent(getContentsOperationNameConstant, response.Content, response.Encoding)
}

// GetFilesAtCommit reads every file below directory at commit. Blob contents
// are served from the blob cache when possible. A repoURI that does not name
// a GitHub repository yields no files.
func (client *Client) GetFilesAtCommit(executionContext context.Context, repoURI string, commit string, directory string) ([]gitprovider.GitFile, error) {
	owner, repository, parseError := ParseRepositoryURI(repoURI)
	if parseError != nil || len(owner) == 0 {
		return []gitprovider.GitFile{}, nil
	}

	treeSHA, treeError := client.resolveTreeForPath(executionContext, repoURI, owner, repository, commit, directory)
	if treeError != nil {
		return nil, treeError
	}

	var tree treeResponse
	request := apiRequest{
		operation: getTreeOperationNameConstant,
		repoURI:   repoURI,
		method:    http.MethodGet,
		endpoint:  fmt.Sprintf(treeEndpointTemplateConstant, owner, repository, treeSHA),
		query:     url.Values{recursiveParameterConstant: []string{recursiveParameterValueConstant}},
	}
	if requestError := client.do(executionContext, request, &tree); requestError != nil {
		return nil, requestError
	}
	if tree.Truncated {
		return nil, fmt.Errorf(truncatedTreeErrorTemplateConstant, ErrTreeTruncated, treeSHA, owner, repository)
	}

	prefix := strings.Trim(directory, pathSeparatorConstant)
	blobs := make([]treeEntry, 0, len(tree.Tree))
	for _, entry := range tree.Tree {
		if entry.Type == treeEntryTypeBlobConstant {
			blobs = append(blobs, entry)
		}
	}

	files := make([]gitprovider.GitFile, len(blobs))
	group, groupContext := errgroup.WithContext(executionContext)
	group.SetLimit(blobFetchConcurrencyConstant)
	for index, entry := range blobs {
		group.Go(func() error {
			filePath := entry.Path
			if len(prefix) > 0 {
				filePath = path.Join(prefix, entry.Path)
			}
			file, blobError := client.getBlob(groupContext, repoURI, BlobKey{Owner: owner, Repository: repository, SHA: entry.SHA}, filePath, entry.Mode)
			if blobError != nil {
				return blobError
			}
			files[index] = file
			return nil
		})
	}
	if waitError := group.Wait(); waitError != nil {
		return nil, waitError
	}
	return files, nil
}

// resolveTreeForPath walks from the root tree of commit down to directory
// one segment at a time.
func (client *Client) resolveTreeForPath(executionContext context.Context, repoURI string, owner string, repository string, commit string, directory string) (string, error) {
	var gitCommit struct {
		Tree struct {
			SHA string `json:"sha"`
		} `json:"tree"`
	}
	request := apiRequest{
		operation: getGitCommitOperationNameConstant,
		repoURI:   repoURI,
		method:    http.MethodGet,
		endpoint:  fmt.Sprintf(gitCommitEndpointTemplateConstant, owner, repository, commit),
	}
	if requestError := client.do(executionContext, request, &gitCommit); requestError != nil {
		return "", requestError
	}

	treeSHA := gitCommit.Tree.SHA
	walked := []string{}
	for _, segment := range strings.Split(strings.Trim(directory, pathSeparatorConstant), pathSeparatorConstant) {
		if len(segment) == 0 {
			continue
		}
		walked = append(walked, segment)

		var tree treeResponse
		level := apiRequest{
			operation: getTreeOperationNameConstant,
			repoURI:   repoURI,
			method:    http.MethodGet,
			endpoint:  fmt.Sprintf(treeEndpointTemplateConstant, owner, repository, treeSHA),
		}
		if requestError := client.do(executionContext, level, &tree); requestError != nil {
			return "", requestError
		}

		nextSHA := ""
		for _, entry := range tree.Tree {
			if entry.Type == treeEntryTypeTreeConstant && entry.Path == segment {
				nextSHA = entry.SHA
				break
			}
		}
		if len(nextSHA) == 0 {
			return "", gitprovider.FileNotFoundError{FilePath: strings.Join(walked, pathSeparatorConstant), RepoURI: repoURI, Ref: commit}
		}
		treeSHA = nextSHA
	}
	return treeSHA, nil
}

// Clone delegates to the configured Cloner.
func (client *Client) Clone(executionContext context.Context, options gitprovider.CloneOptions) error {
	if client.cloner == nil {
		return gitprovider.ConfigurationError{Setting: clonerSettingNameConstant, Message: cloneWithoutClonerMessageConstant}
	}
	return client.cloner.Clone(executionContext, options)
}
