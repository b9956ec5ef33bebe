package azuredevops

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/depflow/internal/gitprovider"
)

const (
	testCreatePullRequestRouteConstant = "POST " + testRepositoryPathConstant + "/pullrequests"
	testGetPullRequestRouteConstant    = "GET " + testPullRequestPathConstant
	testPatchPullRequestRouteConstant  = "PATCH " + testPullRequestPathConstant
)

func pullRequestBody(status string, sourceRef string, targetRef string) map[string]any {
	return map[string]any{
		"title":                 "[main] Update dependencies from dotnet/arcade",
		"description":           "body",
		"status":                status,
		"sourceRefName":         sourceRef,
		"targetRefName":         targetRef,
		"lastMergeSourceCommit": map[string]any{"commitId": testHeadSHAConstant},
	}
}

func TestGetPullRequest(testInstance *testing.T) {
	testCases := []struct {
		name           string
		body           map[string]any
		expectedStatus gitprovider.PullRequestStatus
		expectError    bool
	}{
		{name: "active_is_open", body: pullRequestBody("active", "refs/heads/darc/update", "refs/heads/main"), expectedStatus: gitprovider.PullRequestStatusOpen},
		{name: "completed_is_merged", body: pullRequestBody("completed", "refs/heads/darc/update", "refs/heads/main"), expectedStatus: gitprovider.PullRequestStatusMerged},
		{name: "abandoned_is_closed", body: pullRequestBody("abandoned", "refs/heads/darc/update", "refs/heads/main"), expectedStatus: gitprovider.PullRequestStatusClosed},
		{name: "ref_without_heads_prefix", body: pullRequestBody("active", "darc/update", "refs/heads/main"), expectError: true},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			fixture := newTestClientFixture(testInstance, zap.NewNop())
			fixture.fake.handle(testGetPullRequestRouteConstant, staticJSON(http.StatusOK, testCase.body))

			pullRequest, requestError := fixture.client.GetPullRequest(context.Background(), testPullRequestURLConstant)
			if testCase.expectError {
				var unexpected UnexpectedResponseError
				require.ErrorAs(testInstance, requestError, &unexpected)
				return
			}
			require.NoError(testInstance, requestError)
			require.Equal(testInstance, testCase.expectedStatus, pullRequest.Status)
			require.Equal(testInstance, "main", pullRequest.BaseBranch)
			require.Equal(testInstance, "darc/update", pullRequest.HeadBranch)
			require.Equal(testInstance, testHeadSHAConstant, pullRequest.HeadCommitSHA)
			require.Equal(testInstance, testPullRequestURLConstant, pullRequest.URL)
		})
	}
}

func TestCreatePullRequest(testInstance *testing.T) {
	fixture := newTestClientFixture(testInstance, zap.NewNop())
	fixture.fake.handle(testCreatePullRequestRouteConstant, staticJSON(http.StatusCreated, map[string]any{"pullRequestId": 42, "url": testPullRequestURLConstant}))

	pullRequestURL, createError := fixture.client.CreatePullRequest(context.Background(), testRepositoryURLConstant, gitprovider.PullRequest{
		Title:       "Update dependencies",
		Description: strings.Repeat("é", 2500),
		BaseBranch:  "main",
		HeadBranch:  "darc/update",
	})
	require.NoError(testInstance, createError)
	require.Equal(testInstance, testPullRequestURLConstant, pullRequestURL)

	body := fixture.fake.last(testCreatePullRequestRouteConstant).Body.(map[string]any)
	require.Equal(testInstance, "refs/heads/darc/update", body["sourceRefName"])
	require.Equal(testInstance, "refs/heads/main", body["targetRefName"])
	require.Equal(testInstance, strings.Repeat("é", 2000), body["description"])
}

func TestMergePullRequest(testInstance *testing.T) {
	testCases := []struct {
		name               string
		status             int
		message            string
		expectError        bool
		expectNotMergeable bool
	}{
		{name: "completed", status: http.StatusOK},
		{name: "approvals_missing", status: http.StatusBadRequest, message: "The pull request needs a minimum number of approvals", expectError: true, expectNotMergeable: true},
		{name: "re_approval_needed", status: http.StatusBadRequest, message: "TF401181: Please re-approve the most recent pull request iteration", expectError: true, expectNotMergeable: true},
		{name: "other_failure", status: http.StatusForbidden, message: "TF401027: You need the Git 'PullRequestBypassPolicy' permission", expectError: true},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			fixture := newTestClientFixture(testInstance, zap.NewNop())
			fixture.fake.handle(testGetPullRequestRouteConstant, staticJSON(http.StatusOK, pullRequestBody("active", "refs/heads/darc/update", "refs/heads/main")))
			fixture.fake.handle(testPatchPullRequestRouteConstant, staticJSON(testCase.status, map[string]any{"message": testCase.message}))

			mergeError := fixture.client.MergePullRequest(context.Background(), testPullRequestURLConstant, gitprovider.MergePullRequestParameters{SquashMerge: true, DeleteSourceBranch: true}, "Merged")
			if !testCase.expectError {
				require.NoError(testInstance, mergeError)
				body := fixture.fake.last(testPatchPullRequestRouteConstant).Body.(map[string]any)
				require.Equal(testInstance, "completed", body["status"])
				require.Equal(testInstance, map[string]any{"commitId": testHeadSHAConstant, "comment": "Merged"}, body["lastMergeSourceCommit"])
				options := body["completionOptions"].(map[string]any)
				require.Equal(testInstance, true, options["squashMerge"])
				require.Equal(testInstance, true, options["deleteSourceBranch"])
				require.Equal(testInstance, true, options["bypassPolicy"])
				return
			}
			require.Error(testInstance, mergeError)
			require.Equal(testInstance, testCase.expectNotMergeable, errors.Is(mergeError, gitprovider.ErrPullRequestNotMergeable))
		})
	}
}

func TestGetPullRequestCommitsRenamesLegacyBot(testInstance *testing.T) {
	fixture := newTestClientFixture(testInstance, zap.NewNop())
	fixture.fake.handle("GET "+testPullRequestPathConstant+"/commits", staticJSON(http.StatusOK, map[string]any{"value": []map[string]any{
		{"commitId": "aaa", "comment": "Update dependencies", "author": map[string]any{"name": "DotNet-Bot"}},
		{"commitId": "bbb", "comment": "Fix build", "author": map[string]any{"name": "Jane Doe"}},
	}}))

	commits, listError := fixture.client.GetPullRequestCommits(context.Background(), testPullRequestURLConstant)
	require.NoError(testInstance, listError)
	require.Equal(testInstance, []gitprovider.Commit{
		{Author: gitprovider.BotName, SHA: "aaa", Message: "Update dependencies"},
		{Author: "Jane Doe", SHA: "bbb", Message: "Fix build"},
	}, commits)
}

func TestDeletePullRequestBranch(testInstance *testing.T) {
	fixture := newTestClientFixture(testInstance, zap.NewNop())
	fixture.fake.handle(testGetPullRequestRouteConstant, staticJSON(http.StatusOK, pullRequestBody("completed", "refs/heads/darc/update", "refs/heads/main")))
	fixture.fake.handle(testRefsListRouteConstant, staticJSON(http.StatusOK, map[string]any{"value": []map[string]any{{"name": "refs/heads/darc/update", "objectId": testHeadSHAConstant}}}))
	fixture.fake.handle(testRefsUpdateRouteConstant, staticJSON(http.StatusOK, map[string]any{"value": []map[string]any{}}))

	require.NoError(testInstance, fixture.client.DeletePullRequestBranch(context.Background(), testPullRequestURLConstant))
	require.Equal(testInstance, "filter=heads%2Fdarc%2Fupdate", fixture.fake.last(testRefsListRouteConstant).Query)
	require.Equal(testInstance, 1, fixture.fake.count(testRefsUpdateRouteConstant))
}
