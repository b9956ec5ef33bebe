package azuredevops

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/temirov/depflow/internal/gitprovider"
)

const (
	createPullRequestOperationNameConstant      = OperationName("CreatePullRequest")
	updatePullRequestOperationNameConstant      = OperationName("UpdatePullRequest")
	getPullRequestOperationNameConstant         = OperationName("GetPullRequest")
	listPullRequestCommitsOperationNameConstant = OperationName("ListPullRequestCommits")
	mergePullRequestOperationNameConstant       = OperationName("MergePullRequest")
	pullRequestsEndpointTemplateConstant        = "_apis/git/repositories/%s/pullrequests"
	pullRequestEndpointTemplateConstant         = "_apis/git/repositories/%s/pullRequests/%d"
	pullRequestCommitsTemplateConstant          = "_apis/git/repositories/%s/pullRequests/%d/commits"
	pullRequestURLTemplateConstant              = "https://dev.azure.com/%s/%s/_apis/git/repositories/%s/pullRequests/%d"
	maximumDescriptionLengthConstant            = 4000
	completedStatusConstant                     = "completed"
	abandonedStatusConstant                     = "abandoned"
	legacyBotAuthorConstant                     = "DotNet-Bot"
	bypassReasonConstant                        = "All required checks were successful"
	refNamePrefixMissingTemplateConstant        = "expected source and target ref names with the refs/heads/ prefix, got %q and %q"
	notMergeableErrorTemplateConstant           = "%w: %s"
)

// notMergeableMessages are the policy failures that mean the pull request
// cannot be completed yet, rather than that the request itself was wrong.
var notMergeableMessages = []string{
	"The pull request needs a minimum number of approvals",
	"Proof of presence is required",
	"Failure while attempting to queue Build.",
	"Please re-approve the most recent pull request iteration",
}

type commitReference struct {
	CommitID string `json:"commitId"`
	Comment  string `json:"comment,omitempty"`
}

type pullRequestResponse struct {
	URL                   string          `json:"url"`
	Title                 string          `json:"title"`
	Description           string          `json:"description"`
	Status                string          `json:"status"`
	SourceRefName         string          `json:"sourceRefName"`
	TargetRefName         string          `json:"targetRefName"`
	LastMergeSourceCommit commitReference `json:"lastMergeSourceCommit"`
}

type pullRequestCommitResponse struct {
	CommitID string `json:"commitId"`
	Comment  string `json:"comment"`
	Author   struct {
		Name string `json:"name"`
	} `json:"author"`
}

// CreatePullRequest opens a pull request from pullRequest.HeadBranch into
// pullRequest.BaseBranch and returns its API URL.
func (client *Client) CreatePullRequest(executionContext context.Context, repoURI string, pullRequest gitprovider.PullRequest) (string, error) {
	coordinates, coordinatesError := parseRepositoryCoordinates(repoURI)
	if coordinatesError != nil {
		return "", coordinatesError
	}

	var response struct {
		PullRequestID int32  `json:"pullRequestId"`
		URL           string `json:"url"`
	}
	request := apiRequest{
		operation:   createPullRequestOperationNameConstant,
		coordinates: coordinates,
		method:      http.MethodPost,
		endpoint:    formatRepositoryEndpoint(pullRequestsEndpointTemplateConstant, coordinates),
		body: map[string]any{
			"title":         pullRequest.Title,
			"description":   truncateDescription(pullRequest.Description),
			"sourceRefName": headsRefPrefixConstant + pullRequest.HeadBranch,
			"targetRefName": headsRefPrefixConstant + pullRequest.BaseBranch,
		},
	}
	if requestError := client.do(executionContext, request, &response); requestError != nil {
		return "", requestError
	}
	if len(response.URL) > 0 {
		return response.URL, nil
	}
	return fmt.Sprintf(pullRequestURLTemplateConstant, coordinates.account, coordinates.project, coordinates.repository, response.PullRequestID), nil
}

// UpdatePullRequest replaces the title and description of a pull request.
func (client *Client) UpdatePullRequest(executionContext context.Context, pullRequestURL string, pullRequest gitprovider.PullRequest) error {
	coordinates, coordinatesError := parsePullRequestCoordinates(pullRequestURL)
	if coordinatesError != nil {
		return coordinatesError
	}
	request := apiRequest{
		operation:   updatePullRequestOperationNameConstant,
		coordinates: coordinates.repositoryCoordinates,
		method:      http.MethodPatch,
		endpoint:    formatPullRequestEndpoint(pullRequestEndpointTemplateConstant, coordinates),
		body: map[string]any{
			"title":       pullRequest.Title,
			"description": truncateDescription(pullRequest.Description),
		},
	}
	return client.do(executionContext, request, nil)
}

// GetPullRequest reads a pull request. Branch names are returned without
// the refs/heads/ prefix.
func (client *Client) GetPullRequest(executionContext context.Context, pullRequestURL string) (gitprovider.PullRequest, error) {
	coordinates, coordinatesError := parsePullRequestCoordinates(pullRequestURL)
	if coordinatesError != nil {
		return gitprovider.PullRequest{}, coordinatesError
	}
	response, requestError := client.getPullRequest(executionContext, coordinates)
	if requestError != nil {
		return gitprovider.PullRequest{}, requestError
	}
	if !strings.HasPrefix(response.SourceRefName, headsRefPrefixConstant) || !strings.HasPrefix(response.TargetRefName, headsRefPrefixConstant) {
		return gitprovider.PullRequest{}, UnexpectedResponseError{
			Operation: getPullRequestOperationNameConstant,
			Message:   fmt.Sprintf(refNamePrefixMissingTemplateConstant, response.SourceRefName, response.TargetRefName),
		}
	}
	return gitprovider.PullRequest{
		URL:           pullRequestURL,
		Title:         response.Title,
		Description:   response.Description,
		BaseBranch:    strings.TrimPrefix(response.TargetRefName, headsRefPrefixConstant),
		HeadBranch:    strings.TrimPrefix(response.SourceRefName, headsRefPrefixConstant),
		Status:        pullRequestStatus(response.Status),
		HeadCommitSHA: response.LastMergeSourceCommit.CommitID,
		UpdatedAt:     time.Now().UTC(),
	}, nil
}

func (client *Client) getPullRequest(executionContext context.Context, coordinates pullRequestCoordinates) (pullRequestResponse, error) {
	var response pullRequestResponse
	request := apiRequest{
		operation:   getPullRequestOperationNameConstant,
		coordinates: coordinates.repositoryCoordinates,
		method:      http.MethodGet,
		endpoint:    formatPullRequestEndpoint(pullRequestEndpointTemplateConstant, coordinates),
	}
	if requestError := client.do(executionContext, request, &response); requestError != nil {
		return pullRequestResponse{}, requestError
	}
	return response, nil
}

// pullRequestStatus maps the Azure DevOps status. Anything that is neither
// completed nor abandoned is treated as open.
func pullRequestStatus(status string) gitprovider.PullRequestStatus {
	switch strings.ToLower(status) {
	case completedStatusConstant:
		return gitprovider.PullRequestStatusMerged
	case abandonedStatusConstant:
		return gitprovider.PullRequestStatusClosed
	default:
		return gitprovider.PullRequestStatusOpen
	}
}

// GetPullRequestCommits lists the commits of a pull request. Commits by the
// legacy bot account are reported under gitprovider.BotName.
func (client *Client) GetPullRequestCommits(executionContext context.Context, pullRequestURL string) ([]gitprovider.Commit, error) {
	coordinates, coordinatesError := parsePullRequestCoordinates(pullRequestURL)
	if coordinatesError != nil {
		return nil, coordinatesError
	}
	var response struct {
		Value []pullRequestCommitResponse `json:"value"`
	}
	request := apiRequest{
		operation:   listPullRequestCommitsOperationNameConstant,
		coordinates: coordinates.repositoryCoordinates,
		method:      http.MethodGet,
		endpoint:    formatPullRequestEndpoint(pullRequestCommitsTemplateConstant, coordinates),
	}
	if requestError := client.do(executionContext, request, &response); requestError != nil {
		return nil, requestError
	}

	commits := make([]gitprovider.Commit, 0, len(response.Value))
	for _, entry := range response.Value {
		author := entry.Author.Name
		if author == legacyBotAuthorConstant {
			author = gitprovider.BotName
		}
		commits = append(commits, gitprovider.Commit{Author: author, SHA: entry.CommitID, Message: entry.Comment})
	}
	return commits, nil
}

// MergePullRequest completes a pull request, bypassing policies that the
// caller has already evaluated. Policy rejections that can clear on their
// own are reported as gitprovider.ErrPullRequestNotMergeable.
func (client *Client) MergePullRequest(executionContext context.Context, pullRequestURL string, parameters gitprovider.MergePullRequestParameters, commitMessage string) error {
	coordinates, coordinatesError := parsePullRequestCoordinates(pullRequestURL)
	if coordinatesError != nil {
		return coordinatesError
	}
	pullRequest, requestError := client.getPullRequest(executionContext, coordinates)
	if requestError != nil {
		return requestError
	}

	lastMergeSourceCommit := pullRequest.LastMergeSourceCommit.CommitID
	if len(parameters.CommitToMerge) > 0 {
		lastMergeSourceCommit = parameters.CommitToMerge
	}
	request := apiRequest{
		operation:   mergePullRequestOperationNameConstant,
		coordinates: coordinates.repositoryCoordinates,
		method:      http.MethodPatch,
		endpoint:    formatPullRequestEndpoint(pullRequestEndpointTemplateConstant, coordinates),
		body: map[string]any{
			"status": completedStatusConstant,
			"completionOptions": map[string]any{
				"mergeCommitMessage": commitMessage,
				"bypassPolicy":       true,
				"bypassReason":       bypassReasonConstant,
				"squashMerge":        parameters.SquashMerge,
				"deleteSourceBranch": parameters.DeleteSourceBranch,
			},
			"lastMergeSourceCommit": commitReference{CommitID: lastMergeSourceCommit, Comment: commitMessage},
		},
	}
	if mergeError := client.do(executionContext, request, nil); mergeError != nil {
		if isNotMergeable(mergeError) {
			return fmt.Errorf(notMergeableErrorTemplateConstant, gitprovider.ErrPullRequestNotMergeable, mergeError.Error())
		}
		return mergeError
	}
	return nil
}

func isNotMergeable(err error) bool {
	var statusError *StatusError
	if !errors.As(err, &statusError) {
		return false
	}
	for _, message := range notMergeableMessages {
		if strings.Contains(statusError.Body, message) {
			return true
		}
	}
	return false
}

// DeletePullRequestBranch deletes the source branch of a pull request.
func (client *Client) DeletePullRequestBranch(executionContext context.Context, pullRequestURL string) error {
	coordinates, coordinatesError := parsePullRequestCoordinates(pullRequestURL)
	if coordinatesError != nil {
		return coordinatesError
	}
	pullRequest, requestError := client.GetPullRequest(executionContext, pullRequestURL)
	if requestError != nil {
		return requestError
	}
	return client.deleteBranch(executionContext, coordinates.repositoryCoordinates, pullRequest.HeadBranch)
}

func truncateDescription(description string) string {
	if len(description) <= maximumDescriptionLengthConstant {
		return description
	}
	cut := maximumDescriptionLengthConstant
	for cut > 0 && !utf8.RuneStart(description[cut]) {
		cut--
	}
	return description[:cut]
}
