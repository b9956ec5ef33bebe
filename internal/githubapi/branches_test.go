package githubapi

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestCreateOrUpdateBranch(testInstance *testing.T) {
	testCases := []struct {
		name          string
		branchStatus  int
		expectedRoute string
		expectedBody  map[string]any
		expectFailure bool
	}{
		{
			name:          "existing_branch_is_force_updated",
			branchStatus:  http.StatusOK,
			expectedRoute: "PATCH /repos/dotnet/arcade/git/refs/heads/darc/update",
			expectedBody:  map[string]any{"sha": "base-sha", "force": true},
		},
		{
			name:          "missing_branch_is_created",
			branchStatus:  http.StatusNotFound,
			expectedRoute: "POST /repos/dotnet/arcade/git/refs",
			expectedBody:  map[string]any{"ref": "refs/heads/darc/update", "sha": "base-sha"},
		},
		{
			name:          "branch_lookup_failure_is_returned",
			branchStatus:  http.StatusInternalServerError,
			expectFailure: true,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			fixture := newTestClientFixture(testInstance, zap.New(core))
			fixture.fake.handle("GET /repos/dotnet/arcade/commits/main", staticJSON(http.StatusOK, map[string]any{"sha": "base-sha"}))
			fixture.fake.handle("GET /repos/dotnet/arcade/branches/darc/update", staticJSON(testCase.branchStatus, map[string]any{"name": "darc/update"}))
			fixture.fake.handle("PATCH /repos/dotnet/arcade/git/refs/heads/darc/update", staticJSON(http.StatusOK, map[string]any{}))
			fixture.fake.handle("POST /repos/dotnet/arcade/git/refs", staticJSON(http.StatusCreated, map[string]any{}))

			branchError := fixture.client.CreateOrUpdateBranch(context.Background(), testRepositoryURLConstant, "main", "darc/update")
			if testCase.expectFailure {
				require.Error(testInstance, branchError)
				require.Equal(testInstance, 1, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
				require.Zero(testInstance, fixture.fake.count("PATCH /repos/dotnet/arcade/git/refs/heads/darc/update"))
				require.Zero(testInstance, fixture.fake.count("POST /repos/dotnet/arcade/git/refs"))
				return
			}
			require.NoError(testInstance, branchError)
			require.Equal(testInstance, testCase.expectedBody, fixture.fake.last(testCase.expectedRoute).Body)
		})
	}
}

func TestBranchLookupIsNotRetried(testInstance *testing.T) {
	fixture := newTestClientFixture(testInstance, nil)
	fixture.fake.handle("GET /repos/dotnet/arcade/commits/main", staticJSON(http.StatusOK, map[string]any{"sha": "base-sha"}))
	fixture.fake.handle("GET /repos/dotnet/arcade/branches/darc/update", func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Retry-After", "1")
		respondJSON(writer, http.StatusForbidden, map[string]any{"message": "API rate limit exceeded"})
	})

	branchError := fixture.client.CreateOrUpdateBranch(context.Background(), testRepositoryURLConstant, "main", "darc/update")
	require.Error(testInstance, branchError)
	require.Equal(testInstance, 1, fixture.fake.count("GET /repos/dotnet/arcade/branches/darc/update"))
	require.Empty(testInstance, fixture.sleeper.delays)
}

func TestDoesBranchExist(testInstance *testing.T) {
	fixture := newTestClientFixture(testInstance, nil)
	fixture.fake.handle("GET /repos/dotnet/arcade/branches/main", staticJSON(http.StatusOK, map[string]any{"name": "main"}))

	exists, existsError := fixture.client.DoesBranchExist(context.Background(), testRepositoryURLConstant, "main")
	require.NoError(testInstance, existsError)
	require.True(testInstance, exists)

	exists, existsError = fixture.client.DoesBranchExist(context.Background(), testRepositoryURLConstant, "gone")
	require.NoError(testInstance, existsError)
	require.False(testInstance, exists)
}

func TestGetLastCommitSHAUnknownRefs(testInstance *testing.T) {
	fixture := newTestClientFixture(testInstance, nil)
	fixture.fake.handle("GET /repos/dotnet/arcade/commits/bad", staticJSON(http.StatusUnprocessableEntity, map[string]any{"message": "No commit found for SHA: bad"}))
	fixture.fake.handle("GET /repos/dotnet/arcade/commits/broken", staticJSON(http.StatusInternalServerError, map[string]any{}))

	for _, branch := range []string{"missing", "bad"} {
		sha, shaError := fixture.client.GetLastCommitSHA(context.Background(), testRepositoryURLConstant, branch)
		require.NoError(testInstance, shaError)
		require.Empty(testInstance, sha)
	}
	_, shaError := fixture.client.GetLastCommitSHA(context.Background(), testRepositoryURLConstant, "broken")
	require.Error(testInstance, shaError)
}

func TestRepositoryExists(testInstance *testing.T) {
	fixture := newTestClientFixture(testInstance, nil)
	fixture.fake.handle("GET /repos/dotnet/arcade", staticJSON(http.StatusOK, map[string]any{"full_name": "dotnet/arcade"}))

	require.True(testInstance, fixture.client.RepositoryExists(context.Background(), testRepositoryURLConstant))
	require.False(testInstance, fixture.client.RepositoryExists(context.Background(), "https://github.com/dotnet/missing"))
	require.False(testInstance, fixture.client.RepositoryExists(context.Background(), "not a url"))
}

func TestBranchEndpointsEscapeReferenceNames(testInstance *testing.T) {
	fixture := newTestClientFixture(testInstance, nil)
	fixture.fake.handle("GET /repos/dotnet/arcade/commits/release/9.0", staticJSON(http.StatusOK, map[string]any{"sha": "base-sha"}))
	fixture.fake.handle("GET /repos/dotnet/arcade/branches/darc/fix#42", staticJSON(http.StatusOK, map[string]any{"name": "darc/fix#42"}))
	fixture.fake.handle("PATCH /repos/dotnet/arcade/git/refs/heads/darc/fix#42", staticJSON(http.StatusOK, map[string]any{}))

	require.NoError(testInstance, fixture.client.CreateOrUpdateBranch(context.Background(), testRepositoryURLConstant, "release/9.0", "darc/fix#42"))
	require.Equal(testInstance, 1, fixture.fake.count("PATCH /repos/dotnet/arcade/git/refs/heads/darc/fix#42"))

	exists, existsError := fixture.client.DoesBranchExist(context.Background(), testRepositoryURLConstant, "darc/fix#42")
	require.NoError(testInstance, existsError)
	require.True(testInstance, exists)
}
