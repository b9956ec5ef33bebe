package azuredevops

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"
)

const (
	listRefsOperationNameConstant    = OperationName("ListRefs")
	updateRefsOperationNameConstant  = OperationName("UpdateRefs")
	refsEndpointTemplateConstant     = "_apis/git/repositories/%s/refs"
	filterParameterConstant          = "filter"
	headsFilterPrefixConstant        = "heads/"
	headsRefPrefixConstant           = "refs/heads/"
	zeroObjectIDConstant             = "0000000000000000000000000000000000000000"
	baseBranchMissingMessageConstant = "base branch %s has no commits"
	branchUpdatedMessageConstant     = "Azure DevOps branch updated"
	branchDeletedMessageConstant     = "Azure DevOps branch deleted"
)

type refResponse struct {
	Name     string `json:"name"`
	ObjectID string `json:"objectId"`
}

type refUpdate struct {
	Name        string `json:"name"`
	OldObjectID string `json:"oldObjectId"`
	NewObjectID string `json:"newObjectId"`
}

// CreateOrUpdateBranch points newBranch at the tip of baseBranch, creating it
// when it does not exist.
func (client *Client) CreateOrUpdateBranch(executionContext context.Context, repoURI string, baseBranch string, newBranch string) error {
	coordinates, coordinatesError := parseRepositoryCoordinates(repoURI)
	if coordinatesError != nil {
		return coordinatesError
	}

	baseSHA, baseError := client.lastCommitSHA(executionContext, coordinates, baseBranch)
	if baseError != nil {
		return baseError
	}
	if len(baseSHA) == 0 {
		return UnexpectedResponseError{Operation: listCommitsOperationNameConstant, Message: fmt.Sprintf(baseBranchMissingMessageConstant, baseBranch)}
	}

	existing, lookupError := client.findBranchRef(executionContext, coordinates, newBranch)
	if lookupError != nil {
		return lookupError
	}
	oldObjectID := zeroObjectIDConstant
	if existing != nil {
		oldObjectID = existing.ObjectID
	}

	if updateError := client.updateRef(executionContext, coordinates, refUpdate{
		Name:        headsRefPrefixConstant + newBranch,
		OldObjectID: oldObjectID,
		NewObjectID: baseSHA,
	}); updateError != nil {
		return updateError
	}
	client.logger.Debug(branchUpdatedMessageConstant,
		zap.String(logFieldRepositoryConstant, repoURI),
		zap.String(logFieldBranchConstant, newBranch),
	)
	return nil
}

// DeleteBranch removes branch. A branch that does not exist is left alone.
func (client *Client) DeleteBranch(executionContext context.Context, repoURI string, branch string) error {
	coordinates, coordinatesError := parseRepositoryCoordinates(repoURI)
	if coordinatesError != nil {
		return coordinatesError
	}
	return client.deleteBranch(executionContext, coordinates, branch)
}

func (client *Client) deleteBranch(executionContext context.Context, coordinates repositoryCoordinates, branch string) error {
	existing, lookupError := client.findBranchRef(executionContext, coordinates, branch)
	if lookupError != nil {
		return lookupError
	}
	if existing == nil {
		return nil
	}
	if updateError := client.updateRef(executionContext, coordinates, refUpdate{
		Name:        existing.Name,
		OldObjectID: existing.ObjectID,
		NewObjectID: zeroObjectIDConstant,
	}); updateError != nil {
		return updateError
	}
	client.logger.Debug(branchDeletedMessageConstant,
		zap.String(logFieldRepositoryConstant, coordinates.repoURI()),
		zap.String(logFieldBranchConstant, branch),
	)
	return nil
}

// DoesBranchExist reports whether branch exists in repoURI.
func (client *Client) DoesBranchExist(executionContext context.Context, repoURI string, branch string) (bool, error) {
	coordinates, coordinatesError := parseRepositoryCoordinates(repoURI)
	if coordinatesError != nil {
		return false, coordinatesError
	}
	existing, lookupError := client.findBranchRef(executionContext, coordinates, branch)
	if lookupError != nil {
		return false, lookupError
	}
	return existing != nil, nil
}

// findBranchRef returns the ref named exactly refs/heads/branch. The refs
// filter is a prefix match, so longer names sharing the prefix are skipped.
func (client *Client) findBranchRef(executionContext context.Context, coordinates repositoryCoordinates, branch string) (*refResponse, error) {
	var response struct {
		Value []refResponse `json:"value"`
	}
	request := apiRequest{
		operation:   listRefsOperationNameConstant,
		coordinates: coordinates,
		method:      http.MethodGet,
		endpoint:    formatRepositoryEndpoint(refsEndpointTemplateConstant, coordinates),
		query:       url.Values{filterParameterConstant: []string{headsFilterPrefixConstant + branch}},
	}
	if requestError := client.do(executionContext, request, &response); requestError != nil {
		return nil, requestError
	}
	expectedName := headsRefPrefixConstant + branch
	for index := range response.Value {
		if response.Value[index].Name == expectedName {
			return &response.Value[index], nil
		}
	}
	return nil, nil
}

func (client *Client) updateRef(executionContext context.Context, coordinates repositoryCoordinates, update refUpdate) error {
	request := apiRequest{
		operation:   updateRefsOperationNameConstant,
		coordinates: coordinates,
		method:      http.MethodPost,
		endpoint:    formatRepositoryEndpoint(refsEndpointTemplateConstant, coordinates),
		body:        []refUpdate{update},
	}
	return client.do(executionContext, request, nil)
}
