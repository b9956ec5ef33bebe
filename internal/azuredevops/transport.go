package azuredevops

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/depflow/internal/gitprovider"
)

const (
	authorizationHeaderConstant        = "Authorization"
	acceptHeaderConstant               = "Accept"
	contentTypeHeaderConstant          = "Content-Type"
	acceptHeaderTemplateConstant       = "application/json;api-version=%s"
	jsonContentTypeConstant            = "application/json"
	errorBodySnippetLimitConstant      = 512
	statusErrorTemplateConstant        = "%s %s %s returned %d: %s"
	requestFailedErrorTemplateConstant = "%s %s %s failed: %w"
	apiRequestFailedMessageConstant    = "Azure DevOps API request failed"
	projectScopedPathTemplateConstant  = "%s/%s/%s/%s"
	accountScopedPathTemplateConstant  = "%s/%s/%s"
)

// StatusError reports a non-2xx Azure DevOps response. It matches
// gitprovider.ErrNotFound for 404.
type StatusError struct {
	Operation  OperationName
	Method     string
	URL        string
	StatusCode int
	Body       string
}

// Error describes the response.
func (statusError *StatusError) Error() string {
	return fmt.Sprintf(statusErrorTemplateConstant, statusError.Operation, statusError.Method, statusError.URL, statusError.StatusCode, statusError.Body)
}

// Is matches gitprovider.ErrNotFound for 404 responses.
func (statusError *StatusError) Is(target error) bool {
	return target == gitprovider.ErrNotFound && statusError.StatusCode == http.StatusNotFound
}

// apiRequest describes one REST call. endpoint is relative to the project, or
// to the account when accountScoped is set.
type apiRequest struct {
	operation     OperationName
	coordinates   repositoryCoordinates
	accountScoped bool
	method        string
	endpoint      string
	query         url.Values
	body          any
	apiVersion    string
}

// do sends request and decodes a successful JSON response into result, which may be nil.
func (client *Client) do(executionContext context.Context, request apiRequest, result any) error {
	authorization, authorizationError := client.authorization(executionContext, request.coordinates.repoURI())
	if authorizationError != nil {
		return authorizationError
	}
	httpRequest, buildError := client.newHTTPRequest(executionContext, authorization, request)
	if buildError != nil {
		return buildError
	}

	response, responseError := client.httpClient.Do(httpRequest)
	if responseError != nil {
		return fmt.Errorf(requestFailedErrorTemplateConstant, request.operation, httpRequest.Method, httpRequest.URL.Redacted(), responseError)
	}
	defer func() { _ = response.Body.Close() }()

	client.metrics.IncAPIRequest(string(request.operation), response.StatusCode)

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		limitedBody, _ := io.ReadAll(io.LimitReader(response.Body, errorBodySnippetLimitConstant))
		client.logger.Debug(apiRequestFailedMessageConstant,
			zap.String(logFieldOperationConstant, string(request.operation)),
			zap.Int(logFieldStatusCodeConstant, response.StatusCode),
		)
		return &StatusError{
			Operation:  request.operation,
			Method:     httpRequest.Method,
			URL:        httpRequest.URL.String(),
			StatusCode: response.StatusCode,
			Body:       strings.TrimSpace(strings.ReplaceAll(string(limitedBody), "\n", " ")),
		}
	}

	if result == nil || response.StatusCode == http.StatusNoContent {
		return nil
	}
	if decodingError := json.NewDecoder(response.Body).Decode(result); decodingError != nil {
		return ResponseDecodingError{Operation: request.operation, Cause: decodingError}
	}
	return nil
}

func (client *Client) newHTTPRequest(executionContext context.Context, authorization string, request apiRequest) (*http.Request, error) {
	endpoint := strings.TrimPrefix(request.endpoint, "/")
	target := fmt.Sprintf(projectScopedPathTemplateConstant, client.apiURL, request.coordinates.account, request.coordinates.project, endpoint)
	if request.accountScoped {
		target = fmt.Sprintf(accountScopedPathTemplateConstant, client.apiURL, request.coordinates.account, endpoint)
	}
	if len(request.query) > 0 {
		target += "?" + request.query.Encode()
	}

	var bodyReader io.Reader = http.NoBody
	if request.body != nil {
		payload, encodingError := json.Marshal(request.body)
		if encodingError != nil {
			return nil, encodingError
		}
		bodyReader = bytes.NewReader(payload)
	}

	httpRequest, requestError := http.NewRequestWithContext(executionContext, request.method, target, bodyReader)
	if requestError != nil {
		return nil, requestError
	}
	apiVersion := request.apiVersion
	if len(apiVersion) == 0 {
		apiVersion = client.apiVersion
	}
	httpRequest.Header.Set(authorizationHeaderConstant, authorization)
	httpRequest.Header.Set(acceptHeaderConstant, fmt.Sprintf(acceptHeaderTemplateConstant, apiVersion))
	if request.body != nil {
		httpRequest.Header.Set(contentTypeHeaderConstant, jsonContentTypeConstant)
	}
	return httpRequest, nil
}

// isNotFoundOrBadRequest reports the statuses Azure DevOps returns for a
// version of the wrong type.
func isNotFoundOrBadRequest(err error) bool {
	var statusError *StatusError
	if !errors.As(err, &statusError) {
		return false
	}
	return statusError.StatusCode == http.StatusNotFound || statusError.StatusCode == http.StatusBadRequest
}
