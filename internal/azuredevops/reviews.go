package azuredevops

import (
	"context"
	"fmt"
	"net/http"

	"github.com/temirov/depflow/internal/gitprovider"
)

const (
	listReviewersOperationNameConstant = OperationName("ListReviewers")
	reviewersEndpointTemplateConstant  = "_apis/git/repositories/%s/pullRequests/%d/reviewers"
	unknownVoteTemplateConstant        = "unknown review vote %d from %s"
)

// Reviewer votes.
const (
	voteApprovedConstant                = 10
	voteApprovedWithSuggestionsConstant = 5
	voteNoneConstant                    = 0
	voteWaitingForAuthorConstant        = -5
	voteRejectedConstant                = -10
)

type reviewerResponse struct {
	Vote        int    `json:"vote"`
	UniqueName  string `json:"uniqueName"`
	DisplayName string `json:"displayName"`
}

// GetLatestPullRequestReviews returns the current vote of every reviewer.
// Reviewers who have not voted are reported as gitprovider.ReviewStatePending.
func (client *Client) GetLatestPullRequestReviews(executionContext context.Context, pullRequestURL string) ([]gitprovider.Review, error) {
	coordinates, coordinatesError := parsePullRequestCoordinates(pullRequestURL)
	if coordinatesError != nil {
		return nil, coordinatesError
	}
	var response struct {
		Value []reviewerResponse `json:"value"`
	}
	request := apiRequest{
		operation:   listReviewersOperationNameConstant,
		coordinates: coordinates.repositoryCoordinates,
		method:      http.MethodGet,
		endpoint:    formatPullRequestEndpoint(reviewersEndpointTemplateConstant, coordinates),
	}
	if requestError := client.do(executionContext, request, &response); requestError != nil {
		return nil, requestError
	}

	reviews := make([]gitprovider.Review, 0, len(response.Value))
	for _, reviewer := range response.Value {
		author := reviewer.UniqueName
		if len(author) == 0 {
			author = reviewer.DisplayName
		}
		state, known := voteReviewState(reviewer.Vote)
		if !known {
			return nil, UnexpectedResponseError{
				Operation: listReviewersOperationNameConstant,
				Message:   fmt.Sprintf(unknownVoteTemplateConstant, reviewer.Vote, author),
			}
		}
		reviews = append(reviews, gitprovider.Review{Author: author, State: state, URL: pullRequestURL})
	}
	return reviews, nil
}

func voteReviewState(vote int) (gitprovider.ReviewState, bool) {
	switch vote {
	case voteApprovedConstant:
		return gitprovider.ReviewStateApproved, true
	case voteApprovedWithSuggestionsConstant:
		return gitprovider.ReviewStateCommented, true
	case voteNoneConstant:
		return gitprovider.ReviewStatePending, true
	case voteWaitingForAuthorConstant:
		return gitprovider.ReviewStateChangesRequested, true
	case voteRejectedConstant:
		return gitprovider.ReviewStateRejected, true
	default:
		return "", false
	}
}
