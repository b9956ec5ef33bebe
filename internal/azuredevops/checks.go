package azuredevops

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/temirov/depflow/internal/gitprovider"
)

const (
	getProjectOperationNameConstant        = OperationName("GetProject")
	listPolicyEvaluationsOperationConstant = OperationName("ListPolicyEvaluations")
	projectEndpointTemplateConstant        = "_apis/projects/%s"
	policyEvaluationsEndpointConstant      = "_apis/policy/evaluations"
	artifactIDParameterConstant            = "artifactId"
	artifactIDTemplateConstant             = "vstfs:///CodeReview/CodeReviewId/%s/%d"
	policyEvaluationsAPIVersionConstant    = "5.1-preview.1"
	policyStatusBrokenConstant             = "broken"
	policyStatusRejectedConstant           = "rejected"
	policyStatusQueuedConstant             = "queued"
	policyStatusRunningConstant            = "running"
	policyStatusApprovedConstant           = "approved"
	policyStatusNotApplicableConstant      = "notapplicable"
)

type policyEvaluationResponse struct {
	Status        string `json:"status"`
	Configuration struct {
		IsEnabled bool   `json:"isEnabled"`
		URL       string `json:"url"`
		Type      struct {
			DisplayName string `json:"displayName"`
		} `json:"type"`
	} `json:"configuration"`
}

// GetPullRequestChecks returns the enabled branch policy evaluations of a
// pull request. Evaluations in a status depflow does not know are skipped.
func (client *Client) GetPullRequestChecks(executionContext context.Context, pullRequestURL string) ([]gitprovider.Check, error) {
	coordinates, coordinatesError := parsePullRequestCoordinates(pullRequestURL)
	if coordinatesError != nil {
		return nil, coordinatesError
	}
	projectID, projectError := client.projectID(executionContext, coordinates.repositoryCoordinates)
	if projectError != nil {
		return nil, projectError
	}

	var response struct {
		Value []policyEvaluationResponse `json:"value"`
	}
	request := apiRequest{
		operation:   listPolicyEvaluationsOperationConstant,
		coordinates: coordinates.repositoryCoordinates,
		method:      http.MethodGet,
		endpoint:    policyEvaluationsEndpointConstant,
		query:       url.Values{artifactIDParameterConstant: []string{fmt.Sprintf(artifactIDTemplateConstant, projectID, coordinates.number)}},
		apiVersion:  policyEvaluationsAPIVersionConstant,
	}
	if requestError := client.do(executionContext, request, &response); requestError != nil {
		return nil, requestError
	}

	checks := []gitprovider.Check{}
	for _, evaluation := range response.Value {
		if !evaluation.Configuration.IsEnabled {
			continue
		}
		state, known := policyCheckState(evaluation.Status)
		if !known {
			continue
		}
		checks = append(checks, gitprovider.Check{
			Name:  evaluation.Configuration.Type.DisplayName,
			URL:   evaluation.Configuration.URL,
			State: state,
		})
	}
	return checks, nil
}

func policyCheckState(status string) (gitprovider.CheckState, bool) {
	switch strings.ToLower(status) {
	case policyStatusBrokenConstant:
		return gitprovider.CheckStateError, true
	case policyStatusRejectedConstant:
		return gitprovider.CheckStateFailure, true
	case policyStatusQueuedConstant, policyStatusRunningConstant:
		return gitprovider.CheckStatePending, true
	case policyStatusApprovedConstant:
		return gitprovider.CheckStateSuccess, true
	case policyStatusNotApplicableConstant:
		return gitprovider.CheckStateNone, true
	default:
		return "", false
	}
}

func (client *Client) projectID(executionContext context.Context, coordinates repositoryCoordinates) (string, error) {
	var response struct {
		ID string `json:"id"`
	}
	request := apiRequest{
		operation:     getProjectOperationNameConstant,
		coordinates:   coordinates,
		accountScoped: true,
		method:        http.MethodGet,
		endpoint:      fmt.Sprintf(projectEndpointTemplateConstant, url.PathEscape(coordinates.project)),
	}
	if requestError := client.do(executionContext, request, &response); requestError != nil {
		return "", requestError
	}
	return response.ID, nil
}
