package azuredevops

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testRefsListRouteConstant   = "GET " + testRepositoryPathConstant + "/refs"
	testRefsUpdateRouteConstant = "POST " + testRepositoryPathConstant + "/refs"
	testBaseSHAConstant         = "1111111111111111111111111111111111111111"
	testHeadSHAConstant         = "2222222222222222222222222222222222222222"
)

func TestCreateOrUpdateBranch(testInstance *testing.T) {
	testCases := []struct {
		name          string
		refs          []map[string]any
		expectedOldID string
	}{
		{name: "new_branch_starts_from_zero", refs: []map[string]any{}, expectedOldID: zeroObjectIDConstant},
		{name: "prefix_match_is_not_the_branch", refs: []map[string]any{{"name": "refs/heads/darc/update-2", "objectId": testHeadSHAConstant}}, expectedOldID: zeroObjectIDConstant},
		{name: "existing_branch_moves", refs: []map[string]any{{"name": "refs/heads/darc/update", "objectId": testHeadSHAConstant}}, expectedOldID: testHeadSHAConstant},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			fixture := newTestClientFixture(testInstance, zap.NewNop())
			fixture.fake.handle(testCommitsRouteConstant, staticJSON(http.StatusOK, map[string]any{"value": []map[string]any{{"commitId": testBaseSHAConstant}}}))
			fixture.fake.handle(testRefsListRouteConstant, staticJSON(http.StatusOK, map[string]any{"value": testCase.refs}))
			fixture.fake.handle(testRefsUpdateRouteConstant, staticJSON(http.StatusOK, map[string]any{"value": []map[string]any{{"success": true}}}))

			updateError := fixture.client.CreateOrUpdateBranch(context.Background(), testRepositoryURLConstant, "main", "darc/update")
			require.NoError(testInstance, updateError)
			require.Equal(testInstance, []any{map[string]any{
				"name":        "refs/heads/darc/update",
				"oldObjectId": testCase.expectedOldID,
				"newObjectId": testBaseSHAConstant,
			}}, fixture.fake.last(testRefsUpdateRouteConstant).Body)
		})
	}
}

func TestCreateOrUpdateBranchRequiresBaseCommit(testInstance *testing.T) {
	fixture := newTestClientFixture(testInstance, zap.NewNop())
	fixture.fake.handle(testCommitsRouteConstant, staticJSON(http.StatusOK, map[string]any{"value": []map[string]any{}}))

	updateError := fixture.client.CreateOrUpdateBranch(context.Background(), testRepositoryURLConstant, "main", "darc/update")
	var unexpected UnexpectedResponseError
	require.ErrorAs(testInstance, updateError, &unexpected)
	require.Zero(testInstance, fixture.fake.count(testRefsUpdateRouteConstant))
}

func TestDeleteBranch(testInstance *testing.T) {
	testCases := []struct {
		name            string
		refs            []map[string]any
		expectedUpdates int
	}{
		{name: "existing_branch_is_zeroed", refs: []map[string]any{{"name": "refs/heads/darc/update", "objectId": testHeadSHAConstant}}, expectedUpdates: 1},
		{name: "missing_branch_is_ignored", refs: []map[string]any{}, expectedUpdates: 0},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			fixture := newTestClientFixture(testInstance, zap.NewNop())
			fixture.fake.handle(testRefsListRouteConstant, staticJSON(http.StatusOK, map[string]any{"value": testCase.refs}))
			fixture.fake.handle(testRefsUpdateRouteConstant, staticJSON(http.StatusOK, map[string]any{"value": []map[string]any{}}))

			require.NoError(testInstance, fixture.client.DeleteBranch(context.Background(), testRepositoryURLConstant, "darc/update"))
			require.Equal(testInstance, testCase.expectedUpdates, fixture.fake.count(testRefsUpdateRouteConstant))
			if testCase.expectedUpdates > 0 {
				update := fixture.fake.last(testRefsUpdateRouteConstant).Body.([]any)[0].(map[string]any)
				require.Equal(testInstance, zeroObjectIDConstant, update["newObjectId"])
				require.Equal(testInstance, testHeadSHAConstant, update["oldObjectId"])
			}
		})
	}
}

func TestDoesBranchExist(testInstance *testing.T) {
	fixture := newTestClientFixture(testInstance, zap.NewNop())
	fixture.fake.handle(testRefsListRouteConstant, staticJSON(http.StatusOK, map[string]any{"value": []map[string]any{
		{"name": "refs/heads/release/9.0-preview", "objectId": testHeadSHAConstant},
	}}))

	exists, lookupError := fixture.client.DoesBranchExist(context.Background(), testRepositoryURLConstant, "release/9.0")
	require.NoError(testInstance, lookupError)
	require.False(testInstance, exists)
	require.Equal(testInstance, "filter=heads%2Frelease%2F9.0", fixture.fake.last(testRefsListRouteConstant).Query)
}
