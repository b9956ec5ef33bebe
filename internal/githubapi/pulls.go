package githubapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/depflow/internal/gitprovider"
)

const (
	createPullRequestOperationNameConstant  = OperationName("CreatePullRequest")
	updatePullRequestOperationNameConstant  = OperationName("UpdatePullRequest")
	getPullRequestOperationNameConstant     = OperationName("GetPullRequest")
	listCommitsOperationNameConstant        = OperationName("ListPullRequestCommits")
	mergePullRequestOperationNameConstant   = OperationName("MergePullRequest")
	listReviewsOperationNameConstant        = OperationName("ListPullRequestReviews")
	pullsEndpointTemplateConstant           = "repos/%s/%s/pulls"
	pullRequestEndpointTemplateConstant     = "repos/%s/%s/pulls/%d"
	pullRequestCommitsTemplateConstant      = "repos/%s/%s/pulls/%d/commits"
	pullRequestMergeTemplateConstant        = "repos/%s/%s/pulls/%d/merge"
	pullRequestReviewsTemplateConstant      = "repos/%s/%s/pulls/%d/reviews"
	perPageParameterConstant                = "per_page"
	pageParameterConstant                   = "page"
	pageSizeConstant                        = 100
	openStateConstant                       = "open"
	squashMergeMethodConstant               = "squash"
	mergeMergeMethodConstant                = "merge"
	pullRequestNotRecognizedMessageConstant = "not a GitHub pull request URL"
	pullRequestConflictMessageConstant      = "a pull request for this head branch already exists or the branches cannot be compared"
	notMergeableErrorTemplateConstant       = "%w: %s"
	sourceBranchDeleteFailedMessageConstant = "Failed to delete pull request source branch"
)

type pullRequestResponse struct {
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	State     string    `json:"state"`
	Merged    bool      `json:"merged"`
	UpdatedAt time.Time `json:"updated_at"`
	Head      struct {
		Ref string `json:"ref"`
		SHA string `json:"sha"`
	} `json:"head"`
	Base struct {
		Ref string `json:"ref"`
	} `json:"base"`
}

type pullRequestCoordinates struct {
	owner      string
	repository string
	number     int32
	repoURI    string
}

func parsePullRequestCoordinates(pullRequestURL string) (pullRequestCoordinates, error) {
	owner, repository, number, parseError := ParsePullRequestURI(pullRequestURL)
	if parseError != nil {
		return pullRequestCoordinates{}, parseError
	}
	if len(owner) == 0 {
		return pullRequestCoordinates{}, gitprovider.MalformedInputError{Input: pullRequestURL, Message: pullRequestNotRecognizedMessageConstant}
	}
	return pullRequestCoordinates{
		owner:      owner,
		repository: repository,
		number:     number,
		repoURI:    repositoryWebURL(owner, repository),
	}, nil
}

// CreatePullRequest opens a pull request and returns its API URL.
func (client *Client) CreatePullRequest(executionContext context.Context, repoURI string, pullRequest gitprovider.PullRequest) (string, error) {
	owner, repository, coordinatesError := repositoryCoordinates(repoURI)
	if coordinatesError != nil {
		return "", coordinatesError
	}

	var response pullRequestResponse
	request := apiRequest{
		operation: createPullRequestOperationNameConstant,
		repoURI:   repoURI,
		method:    http.MethodPost,
		endpoint:  fmt.Sprintf(pullsEndpointTemplateConstant, owner, repository),
		body: map[string]any{
			"title": pullRequest.Title,
			"body":  pullRequest.Description,
			"head":  pullRequest.HeadBranch,
			"base":  pullRequest.BaseBranch,
		},
	}
	if requestError := client.do(executionContext, request, &response); requestError != nil {
		if statusCode(requestError) == http.StatusUnprocessableEntity {
			return "", gitprovider.OperationError{
				Operation: string(createPullRequestOperationNameConstant),
				Message:   pullRequestConflictMessageConstant,
				Cause:     requestError,
			}
		}
		return "", requestError
	}
	return response.URL, nil
}

// UpdatePullRequest replaces the title and description of a pull request.
func (client *Client) UpdatePullRequest(executionContext context.Context, pullRequestURL string, pullRequest gitprovider.PullRequest) error {
	coordinates, coordinatesError := parsePullRequestCoordinates(pullRequestURL)
	if coordinatesError != nil {
		return coordinatesError
	}
	request := apiRequest{
		operation: updatePullRequestOperationNameConstant,
		repoURI:   coordinates.repoURI,
		method:    http.MethodPatch,
		endpoint:  fmt.Sprintf(pullRequestEndpointTemplateConstant, coordinates.owner, coordinates.repository, coordinates.number),
		body:      map[string]any{"title": pullRequest.Title, "body": pullRequest.Description},
	}
	return client.do(executionContext, request, nil)
}

func (client *Client) getPullRequest(executionContext context.Context, coordinates pullRequestCoordinates) (pullRequestResponse, error) {
	var response pullRequestResponse
	request := apiRequest{
		operation: getPullRequestOperationNameConstant,
		repoURI:   coordinates.repoURI,
		method:    http.MethodGet,
		endpoint:  fmt.Sprintf(pullRequestEndpointTemplateConstant, coordinates.owner, coordinates.repository, coordinates.number),
	}
	if requestError := client.do(executionContext, request, &response); requestError != nil {
		return pullRequestResponse{}, requestError
	}
	return response, nil
}

// GetPullRequest returns the current state of a pull request.
func (client *Client) GetPullRequest(executionContext context.Context, pullRequestURL string) (gitprovider.PullRequest, error) {
	coordinates, coordinatesError := parsePullRequestCoordinates(pullRequestURL)
	if coordinatesError != nil {
		return gitprovider.PullRequest{}, coordinatesError
	}
	response, requestError := client.getPullRequest(executionContext, coordinates)
	if requestError != nil {
		return gitprovider.PullRequest{}, requestError
	}

	pullRequestAPIURL := response.URL
	if len(pullRequestAPIURL) == 0 {
		pullRequestAPIURL = pullRequestURL
	}
	return gitprovider.PullRequest{
		URL:           pullRequestAPIURL,
		Title:         response.Title,
		Description:   response.Body,
		BaseBranch:    response.Base.Ref,
		HeadBranch:    response.Head.Ref,
		Status:        pullRequestStatus(response.State, response.Merged),
		HeadCommitSHA: response.Head.SHA,
		UpdatedAt:     response.UpdatedAt,
	}, nil
}

func pullRequestStatus(state string, merged bool) gitprovider.PullRequestStatus {
	switch {
	case state == openStateConstant:
		return gitprovider.PullRequestStatusOpen
	case merged:
		return gitprovider.PullRequestStatusMerged
	default:
		return gitprovider.PullRequestStatusClosed
	}
}

// GetPullRequestCommits lists the commits of a pull request, oldest first.
func (client *Client) GetPullRequestCommits(executionContext context.Context, pullRequestURL string) ([]gitprovider.Commit, error) {
	coordinates, coordinatesError := parsePullRequestCoordinates(pullRequestURL)
	if coordinatesError != nil {
		return nil, coordinatesError
	}

	commits := []gitprovider.Commit{}
	for page := 1; ; page++ {
		var response []struct {
			SHA    string `json:"sha"`
			Commit struct {
				Message string `json:"message"`
				Author  struct {
					Name string `json:"name"`
				} `json:"author"`
			} `json:"commit"`
		}
		request := apiRequest{
			operation: listCommitsOperationNameConstant,
			repoURI:   coordinates.repoURI,
			method:    http.MethodGet,
			endpoint:  fmt.Sprintf(pullRequestCommitsTemplateConstant, coordinates.owner, coordinates.repository, coordinates.number),
			query:     pageQuery(page),
		}
		if requestError := client.do(executionContext, request, &response); requestError != nil {
			return nil, requestError
		}
		for _, entry := range response {
			commits = append(commits, gitprovider.Commit{Author: entry.Commit.Author.Name, SHA: entry.SHA, Message: entry.Commit.Message})
		}
		if len(response) < pageSizeConstant {
			return commits, nil
		}
	}
}

// MergePullRequest merges a pull request with commitMessage. Deleting the
// source branch afterwards is best effort.
func (client *Client) MergePullRequest(executionContext context.Context, pullRequestURL string, parameters gitprovider.MergePullRequestParameters, commitMessage string) error {
	coordinates, coordinatesError := parsePullRequestCoordinates(pullRequestURL)
	if coordinatesError != nil {
		return coordinatesError
	}
	pullRequest, requestError := client.getPullRequest(executionContext, coordinates)
	if requestError != nil {
		return requestError
	}

	mergeMethod := mergeMergeMethodConstant
	if parameters.SquashMerge {
		mergeMethod = squashMergeMethodConstant
	}
	body := map[string]any{"commit_message": commitMessage, "merge_method": mergeMethod}
	if len(parameters.CommitToMerge) > 0 {
		body["sha"] = parameters.CommitToMerge
	}
	merge := apiRequest{
		operation: mergePullRequestOperationNameConstant,
		repoURI:   coordinates.repoURI,
		method:    http.MethodPut,
		endpoint:  fmt.Sprintf(pullRequestMergeTemplateConstant, coordinates.owner, coordinates.repository, coordinates.number),
		body:      body,
	}
	if mergeError := client.do(executionContext, merge, nil); mergeError != nil {
		switch statusCode(mergeError) {
		case http.StatusMethodNotAllowed, http.StatusConflict:
			return fmt.Errorf(notMergeableErrorTemplateConstant, gitprovider.ErrPullRequestNotMergeable, mergeError.Error())
		}
		return mergeError
	}

	if parameters.DeleteSourceBranch {
		if deleteError := client.deleteHeadReference(executionContext, coordinates.repoURI, coordinates.owner, coordinates.repository, pullRequest.Head.Ref); deleteError != nil {
			client.logger.Info(sourceBranchDeleteFailedMessageConstant,
				zap.String(logFieldPullRequestConstant, pullRequestURL),
				zap.String(logFieldBranchConstant, pullRequest.Head.Ref),
				zap.Error(deleteError),
			)
		}
	}
	return nil
}

// DeletePullRequestBranch deletes the head branch of a pull request.
func (client *Client) DeletePullRequestBranch(executionContext context.Context, pullRequestURL string) error {
	coordinates, coordinatesError := parsePullRequestCoordinates(pullRequestURL)
	if coordinatesError != nil {
		return coordinatesError
	}
	pullRequest, requestError := client.getPullRequest(executionContext, coordinates)
	if requestError != nil {
		return requestError
	}
	return client.deleteHeadReference(executionContext, coordinates.repoURI, coordinates.owner, coordinates.repository, pullRequest.Head.Ref)
}

// GetLatestPullRequestReviews returns the latest actionable review of each reviewer.
func (client *Client) GetLatestPullRequestReviews(executionContext context.Context, pullRequestURL string) ([]gitprovider.Review, error) {
	coordinates, coordinatesError := parsePullRequestCoordinates(pullRequestURL)
	if coordinatesError != nil {
		return nil, coordinatesError
	}

	events := []ReviewEvent{}
	for page := 1; ; page++ {
		var response []struct {
			State       string    `json:"state"`
			SubmittedAt time.Time `json:"submitted_at"`
			User        struct {
				Login string `json:"login"`
			} `json:"user"`
		}
		request := apiRequest{
			operation: listReviewsOperationNameConstant,
			repoURI:   coordinates.repoURI,
			method:    http.MethodGet,
			endpoint:  fmt.Sprintf(pullRequestReviewsTemplateConstant, coordinates.owner, coordinates.repository, coordinates.number),
			query:     pageQuery(page),
		}
		if requestError := client.do(executionContext, request, &response); requestError != nil {
			return nil, requestError
		}
		for _, entry := range response {
			events = append(events, ReviewEvent{Author: entry.User.Login, RawState: entry.State, SubmittedAt: entry.SubmittedAt})
		}
		if len(response) < pageSizeConstant {
			return ReduceReviews(events, pullRequestURL), nil
		}
	}
}

func pageQuery(page int) url.Values {
	return url.Values{
		perPageParameterConstant: []string{strconv.Itoa(pageSizeConstant)},
		pageParameterConstant:    []string{strconv.Itoa(page)},
	}
}

// isNotFound reports whether err is a GitHub 404.
func isNotFound(err error) bool {
	return errors.Is(err, gitprovider.ErrNotFound)
}
