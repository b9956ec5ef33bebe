package azuredevops

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/depflow/internal/gitprovider"
)

const (
	listThreadsOperationNameConstant   = OperationName("ListThreads")
	createThreadOperationNameConstant  = OperationName("CreateThread")
	createCommentOperationNameConstant = OperationName("CreateComment")
	updateCommentOperationNameConstant = OperationName("UpdateComment")
	threadsEndpointTemplateConstant    = "_apis/git/repositories/%s/pullRequests/%d/threads"
	threadCommentsTemplateConstant     = "_apis/git/repositories/%s/pullRequests/%d/threads/%d/comments"
	threadCommentTemplateConstant      = "_apis/git/repositories/%s/pullRequests/%d/threads/%d/comments/%d"
	textCommentTypeConstant            = "text"
	activeThreadStatusConstant         = "active"
	unknownThreadStatusConstant        = "unknown"
	commentUpdatedMessageConstant      = "Updated existing pull request comment"
)

type threadCommentResponse struct {
	ID          int64  `json:"id"`
	Content     string `json:"content"`
	CommentType string `json:"commentType"`
}

type threadResponse struct {
	ID       int64                   `json:"id"`
	Status   string                  `json:"status"`
	Comments []threadCommentResponse `json:"comments"`
}

func (comment threadCommentResponse) isMarked() bool {
	return strings.EqualFold(comment.CommentType, textCommentTypeConstant) && strings.HasSuffix(comment.Content, gitprovider.CommentMarker)
}

// CommentPullRequest posts message in a new thread.
func (client *Client) CommentPullRequest(executionContext context.Context, pullRequestURL string, message string) error {
	coordinates, coordinatesError := parsePullRequestCoordinates(pullRequestURL)
	if coordinatesError != nil {
		return coordinatesError
	}
	return client.createThread(executionContext, coordinates, message)
}

// CreateOrUpdatePullRequestComment looks for the first open thread holding a
// depflow comment. When that thread ends with a depflow comment the comment
// is rewritten; otherwise message is appended to the thread. Without such a
// thread a new one is started.
func (client *Client) CreateOrUpdatePullRequestComment(executionContext context.Context, pullRequestURL string, message string) error {
	coordinates, coordinatesError := parsePullRequestCoordinates(pullRequestURL)
	if coordinatesError != nil {
		return coordinatesError
	}

	var response struct {
		Value []threadResponse `json:"value"`
	}
	request := apiRequest{
		operation:   listThreadsOperationNameConstant,
		coordinates: coordinates.repositoryCoordinates,
		method:      http.MethodGet,
		endpoint:    formatPullRequestEndpoint(threadsEndpointTemplateConstant, coordinates),
	}
	if requestError := client.do(executionContext, request, &response); requestError != nil {
		return requestError
	}

	for _, thread := range response.Value {
		if !isOpenThread(thread.Status) || !hasMarkedComment(thread.Comments) {
			continue
		}
		lastComment := thread.Comments[len(thread.Comments)-1]
		if lastComment.isMarked() {
			client.logger.Debug(commentUpdatedMessageConstant, zap.String(logFieldPullRequestConstant, pullRequestURL))
			return client.do(executionContext, apiRequest{
				operation:   updateCommentOperationNameConstant,
				coordinates: coordinates.repositoryCoordinates,
				method:      http.MethodPatch,
				endpoint:    fmt.Sprintf(threadCommentTemplateConstant, coordinates.repository, coordinates.number, thread.ID, lastComment.ID),
				body:        newComment(message),
			}, nil)
		}
		return client.do(executionContext, apiRequest{
			operation:   createCommentOperationNameConstant,
			coordinates: coordinates.repositoryCoordinates,
			method:      http.MethodPost,
			endpoint:    fmt.Sprintf(threadCommentsTemplateConstant, coordinates.repository, coordinates.number, thread.ID),
			body:        newComment(message),
		}, nil)
	}
	return client.createThread(executionContext, coordinates, message)
}

func (client *Client) createThread(executionContext context.Context, coordinates pullRequestCoordinates, message string) error {
	request := apiRequest{
		operation:   createThreadOperationNameConstant,
		coordinates: coordinates.repositoryCoordinates,
		method:      http.MethodPost,
		endpoint:    formatPullRequestEndpoint(threadsEndpointTemplateConstant, coordinates),
		body: map[string]any{
			"comments": []map[string]any{newComment(message)},
			"status":   activeThreadStatusConstant,
		},
	}
	return client.do(executionContext, request, nil)
}

func newComment(message string) map[string]any {
	return map[string]any{"content": message + gitprovider.CommentMarker, "commentType": textCommentTypeConstant}
}

// isOpenThread accepts threads without a status; active threads are
// sometimes reported that way.
func isOpenThread(status string) bool {
	switch strings.ToLower(status) {
	case "", activeThreadStatusConstant, unknownThreadStatusConstant:
		return true
	default:
		return false
	}
}

func hasMarkedComment(comments []threadCommentResponse) bool {
	for _, comment := range comments {
		if comment.isMarked() {
			return true
		}
	}
	return false
}
