package githubapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/temirov/depflow/internal/gitprovider"
)

const (
	createCommentOperationNameConstant = OperationName("CreateComment")
	updateCommentOperationNameConstant = OperationName("UpdateComment")
	listCommentsOperationNameConstant  = OperationName("ListComments")
	issueCommentsTemplateConstant      = "repos/%s/%s/issues/%d/comments"
	issueCommentTemplateConstant       = "repos/%s/%s/issues/comments/%d"
)

type issueCommentResponse struct {
	ID   int64  `json:"id"`
	Body string `json:"body"`
}

// CommentPullRequest posts message as a new comment.
func (client *Client) CommentPullRequest(executionContext context.Context, pullRequestURL string, message string) error {
	coordinates, coordinatesError := parsePullRequestCoordinates(pullRequestURL)
	if coordinatesError != nil {
		return coordinatesError
	}
	return client.createComment(executionContext, coordinates, message)
}

// CreateOrUpdatePullRequestComment rewrites the last comment when depflow
// authored it and otherwise posts a new one.
func (client *Client) CreateOrUpdatePullRequestComment(executionContext context.Context, pullRequestURL string, message string) error {
	coordinates, coordinatesError := parsePullRequestCoordinates(pullRequestURL)
	if coordinatesError != nil {
		return coordinatesError
	}

	comments, listError := client.listComments(executionContext, coordinates)
	if listError != nil {
		return listError
	}
	if len(comments) > 0 {
		lastComment := comments[len(comments)-1]
		if strings.HasSuffix(lastComment.Body, gitprovider.CommentMarker) {
			request := apiRequest{
				operation: updateCommentOperationNameConstant,
				repoURI:   coordinates.repoURI,
				method:    http.MethodPatch,
				endpoint:  fmt.Sprintf(issueCommentTemplateConstant, coordinates.owner, coordinates.repository, lastComment.ID),
				body:      map[string]any{"body": message + gitprovider.CommentMarker},
			}
			return client.do(executionContext, request, nil)
		}
	}
	return client.createComment(executionContext, coordinates, message)
}

func (client *Client) createComment(executionContext context.Context, coordinates pullRequestCoordinates, message string) error {
	request := apiRequest{
		operation: createCommentOperationNameConstant,
		repoURI:   coordinates.repoURI,
		method:    http.MethodPost,
		endpoint:  fmt.Sprintf(issueCommentsTemplateConstant, coordinates.owner, coordinates.repository, coordinates.number),
		body:      map[string]any{"body": message + gitprovider.CommentMarker},
	}
	return client.do(executionContext, request, nil)
}

func (client *Client) listComments(executionContext context.Context, coordinates pullRequestCoordinates) ([]issueCommentResponse, error) {
	comments := []issueCommentResponse{}
	for page := 1; ; page++ {
		var response []issueCommentResponse
		request := apiRequest{
			operation: listCommentsOperationNameConstant,
			repoURI:   coordinates.repoURI,
			method:    http.MethodGet,
			endpoint:  fmt.Sprintf(issueCommentsTemplateConstant, coordinates.owner, coordinates.repository, coordinates.number),
			query:     pageQuery(page),
		}
		if requestError := client.do(executionContext, request, &response); requestError != nil {
			return nil, requestError
		}
		comments = append(comments, response...)
		if len(response) < pageSizeConstant {
			return comments, nil
		}
	}
}

