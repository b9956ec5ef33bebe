package githubapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/temirov/depflow/internal/gitprovider"
)

const (
	getCommitOperationNameConstant         = OperationName("GetCommit")
	getBranchOperationNameConstant         = OperationName("GetBranch")
	updateReferenceOperationNameConstant   = OperationName("UpdateReference")
	createReferenceOperationNameConstant   = OperationName("CreateReference")
	deleteReferenceOperationNameConstant   = OperationName("DeleteReference")
	getRepositoryOperationNameConstant     = OperationName("GetRepository")
	commitEndpointTemplateConstant         = "repos/%s/%s/commits/%s"
	branchEndpointTemplateConstant         = "repos/%s/%s/branches/%s"
	headReferenceEndpointTemplateConstant  = "repos/%s/%s/git/refs/heads/%s"
	referencesEndpointTemplateConstant     = "repos/%s/%s/git/refs"
	repositoryEndpointTemplateConstant     = "repos/%s/%s"
	headReferenceTemplateConstant          = "refs/heads/%s"
	repositoryNotRecognizedMessageConstant = "not a GitHub repository URL"
	branchUpdateFailedMessageConstant      = "Failed to create or update branch"
)

type commitResponse struct {
	SHA    string `json:"sha"`
	Commit struct {
		Tree struct {
			SHA string `json:"sha"`
		} `json:"tree"`
	} `json:"commit"`
}

// repositoryCoordinates parses repoURI, failing when it does not name a repository.
func repositoryCoordinates(repoURI string) (string, string, error) {
	owner, repository, parseError := ParseRepositoryURI(repoURI)
	if parseError != nil {
		return "", "", parseError
	}
	if len(owner) == 0 {
		return "", "", gitprovider.MalformedInputError{Input: repoURI, Message: repositoryNotRecognizedMessageConstant}
	}
	return owner, repository, nil
}

func (client *Client) getCommit(executionContext context.Context, repoURI string, owner string, repository string, ref string) (commitResponse, error) {
	var response commitResponse
	request := apiRequest{
		operation: getCommitOperationNameConstant,
		repoURI:   repoURI,
		method:    http.MethodGet,
		endpoint:  fmt.Sprintf(commitEndpointTemplateConstant, owner, repository, escapePathSegments(ref)),
	}
	if requestError := client.do(executionContext, request, &response); requestError != nil {
		return commitResponse{}, requestError
	}
	return response, nil
}

// CreateOrUpdateBranch points newBranch at the tip of baseBranch, force-moving
// it when it already exists.
func (client *Client) CreateOrUpdateBranch(executionContext context.Context, repoURI string, baseBranch string, newBranch string) error {
	owner, repository, coordinatesError := repositoryCoordinates(repoURI)
	if coordinatesError != nil {
		return coordinatesError
	}

	baseCommit, commitError := client.getCommit(executionContext, repoURI, owner, repository, baseBranch)
	if commitError != nil {
		return client.logBranchFailure(repoURI, newBranch, commitError)
	}

	branchLookup := apiRequest{
		operation: getBranchOperationNameConstant,
		repoURI:   repoURI,
		method:    http.MethodGet,
		endpoint:  fmt.Sprintf(branchEndpointTemplateConstant, owner, repository, escapePathSegments(newBranch)),
		noRetry:   true,
	}
	branchError := client.do(executionContext, branchLookup, nil)
	switch {
	case branchError == nil:
		update := apiRequest{
			operation: updateReferenceOperationNameConstant,
			repoURI:   repoURI,
			method:    http.MethodPatch,
			endpoint:  fmt.Sprintf(headReferenceEndpointTemplateConstant, owner, repository, escapePathSegments(newBranch)),
			body:      map[string]any{"sha": baseCommit.SHA, "force": true},
		}
		if updateError := client.do(executionContext, update, nil); updateError != nil {
			return client.logBranchFailure(repoURI, newBranch, updateError)
		}
		return nil
	case errors.Is(branchError, gitprovider.ErrNotFound):
		create := apiRequest{
			operation: createReferenceOperationNameConstant,
			repoURI:   repoURI,
			method:    http.MethodPost,
			endpoint:  fmt.Sprintf(referencesEndpointTemplateConstant, owner, repository),
			body:      map[string]any{"ref": fmt.Sprintf(headReferenceTemplateConstant, newBranch), "sha": baseCommit.SHA},
		}
		if createError := client.do(executionContext, create, nil); createError != nil {
			return client.logBranchFailure(repoURI, newBranch, createError)
		}
		return nil
	default:
		return client.logBranchFailure(repoURI, newBranch, branchError)
	}
}

func (client *Client) logBranchFailure(repoURI string, branch string, failure error) error {
	client.logger.Error(branchUpdateFailedMessageConstant,
		zap.String(logFieldRepositoryConstant, repoURI),
		zap.String(logFieldBranchConstant, branch),
		zap.Error(failure),
	)
	return failure
}

// DeleteBranch removes branch from the repository.
func (client *Client) DeleteBranch(executionContext context.Context, repoURI string, branch string) error {
	owner, repository, coordinatesError := repositoryCoordinates(repoURI)
	if coordinatesError != nil {
		return coordinatesError
	}
	return client.deleteHeadReference(executionContext, repoURI, owner, repository, branch)
}

func (client *Client) deleteHeadReference(executionContext context.Context, repoURI string, owner string, repository string, branch string) error {
	request := apiRequest{
		operation: deleteReferenceOperationNameConstant,
		repoURI:   repoURI,
		method:    http.MethodDelete,
		endpoint:  fmt.Sprintf(headReferenceEndpointTemplateConstant, owner, repository, escapePathSegments(branch)),
	}
	return client.do(executionContext, request, nil)
}

// DoesBranchExist reports whether branch exists.
func (client *Client) DoesBranchExist(executionContext context.Context, repoURI string, branch string) (bool, error) {
	owner, repository, coordinatesError := repositoryCoordinates(repoURI)
	if coordinatesError != nil {
		return false, coordinatesError
	}
	request := apiRequest{
		operation: getBranchOperationNameConstant,
		repoURI:   repoURI,
		method:    http.MethodGet,
		endpoint:  fmt.Sprintf(branchEndpointTemplateConstant, owner, repository, escapePathSegments(branch)),
	}
	branchError := client.do(executionContext, request, nil)
	if branchError == nil {
		return true, nil
	}
	if errors.Is(branchError, gitprovider.ErrNotFound) {
		return false, nil
	}
	return false, branchError
}

// GetLastCommitSHA returns the tip of branch, or an empty string when the
// branch or repository is unknown.
func (client *Client) GetLastCommitSHA(executionContext context.Context, repoURI string, branch string) (string, error) {
	owner, repository, coordinatesError := repositoryCoordinates(repoURI)
	if coordinatesError != nil {
		return "", coordinatesError
	}
	commit, commitError := client.getCommit(executionContext, repoURI, owner, repository, branch)
	if commitError != nil {
		switch statusCode(commitError) {
		case http.StatusNotFound, http.StatusUnprocessableEntity:
			return "", nil
		}
		return "", commitError
	}
	return commit.SHA, nil
}

// RepositoryExists reports whether repoURI names a reachable repository. Any
// failure, including a missing token, yields false.
func (client *Client) RepositoryExists(executionContext context.Context, repoURI string) bool {
	owner, repository, coordinatesError := repositoryCoordinates(repoURI)
	if coordinatesError != nil {
		return false
	}
	request := apiRequest{
		operation: getRepositoryOperationNameConstant,
		repoURI:   repoURI,
		method:    http.MethodGet,
		endpoint:  fmt.Sprintf(repositoryEndpointTemplateConstant, owner, repository),
	}
	return client.do(executionContext, request, nil) == nil
}
