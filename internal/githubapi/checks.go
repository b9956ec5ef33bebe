package githubapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/temirov/depflow/internal/gitprovider"
)

const (
	combinedStatusOperationNameConstant = OperationName("GetCombinedStatus")
	checkRunsOperationNameConstant      = OperationName("ListCheckRuns")
	combinedStatusTemplateConstant      = "repos/%s/%s/commits/%s/status"
	checkRunsTemplateConstant           = "repos/%s/%s/commits/%s/check-runs"
	mergePolicyExternalIDPrefixConstant = "maestro-policy-"
	checkRunStatusQueuedConstant        = "queued"
	checkRunStatusInProgressConstant    = "in_progress"
	checkRunStatusCompletedConstant     = "completed"
)

var (
	commitStatusStates = map[string]gitprovider.CheckState{
		"pending": gitprovider.CheckStatePending,
		"error":   gitprovider.CheckStateError,
		"failure": gitprovider.CheckStateFailure,
		"success": gitprovider.CheckStateSuccess,
	}
	checkRunConclusionStates = map[string]gitprovider.CheckState{
		"success":         gitprovider.CheckStateSuccess,
		"skipped":         gitprovider.CheckStateSuccess,
		"action_required": gitprovider.CheckStateFailure,
		"cancelled":       gitprovider.CheckStateFailure,
		"failure":         gitprovider.CheckStateFailure,
		"neutral":         gitprovider.CheckStateFailure,
		"timed_out":       gitprovider.CheckStateFailure,
	}
)

// GetPullRequestChecks returns commit statuses followed by check runs for the
// last commit of a pull request.
func (client *Client) GetPullRequestChecks(executionContext context.Context, pullRequestURL string) ([]gitprovider.Check, error) {
	coordinates, coordinatesError := parsePullRequestCoordinates(pullRequestURL)
	if coordinatesError != nil {
		return nil, coordinatesError
	}
	commits, commitsError := client.GetPullRequestCommits(executionContext, pullRequestURL)
	if commitsError != nil {
		return nil, commitsError
	}
	if len(commits) == 0 {
		return []gitprovider.Check{}, nil
	}
	lastCommitSHA := commits[len(commits)-1].SHA

	var statusResponse struct {
		Statuses []struct {
			Context   string `json:"context"`
			TargetURL string `json:"target_url"`
			State     string `json:"state"`
		} `json:"statuses"`
	}
	statusRequest := apiRequest{
		operation: combinedStatusOperationNameConstant,
		repoURI:   coordinates.repoURI,
		method:    http.MethodGet,
		endpoint:  fmt.Sprintf(combinedStatusTemplateConstant, coordinates.owner, coordinates.repository, lastCommitSHA),
	}
	if requestError := client.do(executionContext, statusRequest, &statusResponse); requestError != nil {
		return nil, requestError
	}

	var checkRunsResponse struct {
		CheckRuns []struct {
			Name       string `json:"name"`
			HTMLURL    string `json:"html_url"`
			Status     string `json:"status"`
			Conclusion string `json:"conclusion"`
			ExternalID string `json:"external_id"`
		} `json:"check_runs"`
	}
	checkRunsRequest := apiRequest{
		operation: checkRunsOperationNameConstant,
		repoURI:   coordinates.repoURI,
		method:    http.MethodGet,
		endpoint:  fmt.Sprintf(checkRunsTemplateConstant, coordinates.owner, coordinates.repository, lastCommitSHA),
		query:     pageQuery(1),
	}
	if requestError := client.do(executionContext, checkRunsRequest, &checkRunsResponse); requestError != nil {
		return nil, requestError
	}

	checks := make([]gitprovider.Check, 0, len(statusResponse.Statuses)+len(checkRunsResponse.CheckRuns))
	for _, status := range statusResponse.Statuses {
		checks = append(checks, gitprovider.Check{
			Name:  status.Context,
			URL:   status.TargetURL,
			State: translateCommitStatus(status.State),
		})
	}
	for _, checkRun := range checkRunsResponse.CheckRuns {
		checks = append(checks, gitprovider.Check{
			Name:          checkRun.Name,
			URL:           checkRun.HTMLURL,
			State:         translateCheckRun(checkRun.Status, checkRun.Conclusion),
			IsMergePolicy: strings.HasPrefix(checkRun.ExternalID, mergePolicyExternalIDPrefixConstant),
		})
	}
	return checks, nil
}

func translateCommitStatus(state string) gitprovider.CheckState {
	if translated, known := commitStatusStates[strings.ToLower(state)]; known {
		return translated
	}
	return gitprovider.CheckStateNone
}

func translateCheckRun(status string, conclusion string) gitprovider.CheckState {
	switch strings.ToLower(status) {
	case checkRunStatusQueuedConstant, checkRunStatusInProgressConstant:
		return gitprovider.CheckStatePending
	case checkRunStatusCompletedConstant:
		if translated, known := checkRunConclusionStates[strings.ToLower(conclusion)]; known {
			return translated
		}
	}
	return gitprovider.CheckStateNone
}
