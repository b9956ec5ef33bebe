package githubapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/depflow/internal/gitprovider"
)

const (
	authorizationHeaderConstant        = "Authorization"
	acceptHeaderConstant               = "Accept"
	apiVersionHeaderConstant           = "X-GitHub-Api-Version"
	userAgentHeaderConstant            = "User-Agent"
	contentTypeHeaderConstant          = "Content-Type"
	retryAfterHeaderConstant           = "Retry-After"
	rateLimitRemainingHeaderConstant   = "X-RateLimit-Remaining"
	bearerPrefixConstant               = "Bearer "
	acceptHeaderValueConstant          = "application/vnd.github+json"
	apiVersionHeaderValueConstant      = "2022-11-28"
	userAgentHeaderValueConstant       = "depflow"
	jsonContentTypeConstant            = "application/json"
	rateLimitBodyMarkerConstant        = "rate limit"
	abuseBodyMarkerConstant            = "abuse"
	exhaustedRateLimitValueConstant    = "0"
	errorBodySnippetLimitConstant      = 512
	statusErrorTemplateConstant        = "%s %s %s returned %d: %s"
	requestFailedErrorTemplateConstant = "%s %s %s failed: %w"
	apiRequestFailedMessageConstant    = "GitHub API request failed"
)

// StatusError reports a non-2xx GitHub response. It matches
// gitprovider.ErrNotFound for 404 and gitprovider.ErrRateLimited when GitHub
// signalled throttling.
type StatusError struct {
	Operation   OperationName
	Method      string
	URL         string
	StatusCode  int
	Body        string
	RateLimited bool
	// RetryAfter is the server hint, valid when HasRetryAfter is set.
	RetryAfter    time.Duration
	HasRetryAfter bool
}

// Error describes the response.
func (statusError *StatusError) Error() string {
	return fmt.Sprintf(statusErrorTemplateConstant, statusError.Operation, statusError.Method, statusError.URL, statusError.StatusCode, statusError.Body)
}

// Is matches the provider sentinels implied by the status.
func (statusError *StatusError) Is(target error) bool {
	switch target {
	case gitprovider.ErrNotFound:
		return statusError.StatusCode == http.StatusNotFound
	case gitprovider.ErrRateLimited:
		return statusError.RateLimited
	default:
		return false
	}
}

func newStatusError(operation OperationName, request *http.Request, response *http.Response) *StatusError {
	limitedBody, _ := io.ReadAll(io.LimitReader(response.Body, errorBodySnippetLimitConstant))
	body := strings.TrimSpace(strings.ReplaceAll(string(limitedBody), "\n", " "))

	statusError := &StatusError{
		Operation:  operation,
		Method:     request.Method,
		URL:        request.URL.String(),
		StatusCode: response.StatusCode,
		Body:       body,
	}
	if seconds, parseError := strconv.Atoi(strings.TrimSpace(response.Header.Get(retryAfterHeaderConstant))); parseError == nil && seconds >= 0 {
		statusError.RetryAfter = time.Duration(seconds) * time.Second
		statusError.HasRetryAfter = true
	}
	statusError.RateLimited = isRateLimitResponse(response, body, statusError.HasRetryAfter)
	return statusError
}

func isRateLimitResponse(response *http.Response, body string, hasRetryAfter bool) bool {
	if response.StatusCode != http.StatusForbidden && response.StatusCode != http.StatusTooManyRequests {
		return false
	}
	if hasRetryAfter || strings.TrimSpace(response.Header.Get(rateLimitRemainingHeaderConstant)) == exhaustedRateLimitValueConstant {
		return true
	}
	lowered := strings.ToLower(body)
	return strings.Contains(lowered, rateLimitBodyMarkerConstant) || strings.Contains(lowered, abuseBodyMarkerConstant)
}

// apiRequest describes one REST call relative to the session's API root.
type apiRequest struct {
	operation OperationName
	repoURI   string
	method    string
	endpoint  string
	query     url.Values
	body      any
	// noRetry disables the rate-limit retry, for existence checks.
	noRetry bool
}

// do sends request and decodes a successful JSON response into result, which may be nil.
func (client *Client) do(executionContext context.Context, request apiRequest, result any) error {
	activeSession, sessionError := client.acquireSession(executionContext, request.repoURI)
	if sessionError != nil {
		return sessionError
	}
	if request.noRetry {
		return client.send(executionContext, activeSession, request, result)
	}
	return client.withRateLimitRetry(executionContext, request.operation, func() error {
		return client.send(executionContext, activeSession, request, result)
	})
}

func (client *Client) send(executionContext context.Context, activeSession *session, request apiRequest, result any) error {
	httpRequest, buildError := newHTTPRequest(executionContext, activeSession, request)
	if buildError != nil {
		return buildError
	}

	response, responseError := activeSession.httpClient.Do(httpRequest)
	if responseError != nil {
		return fmt.Errorf(requestFailedErrorTemplateConstant, request.operation, httpRequest.Method, httpRequest.URL.Redacted(), responseError)
	}
	defer func() { _ = response.Body.Close() }()

	client.metrics.IncAPIRequest(string(request.operation), response.StatusCode)

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		statusError := newStatusError(request.operation, httpRequest, response)
		client.logger.Debug(apiRequestFailedMessageConstant,
			zap.String(logFieldOperationConstant, string(request.operation)),
			zap.Int(logFieldStatusCodeConstant, response.StatusCode),
		)
		return statusError
	}

	if result == nil || response.StatusCode == http.StatusNoContent {
		return nil
	}
	if decodingError := json.NewDecoder(response.Body).Decode(result); decodingError != nil {
		return ResponseDecodingError{Operation: request.operation, Cause: decodingError}
	}
	return nil
}

func newHTTPRequest(executionContext context.Context, activeSession *session, request apiRequest) (*http.Request, error) {
	target := activeSession.apiURL + "/" + strings.TrimPrefix(request.endpoint, "/")
	if len(request.query) > 0 {
		target += "?" + request.query.Encode()
	}

	var bodyReader io.Reader = http.NoBody
	if request.body != nil {
		payload, encodingError := json.Marshal(request.body)
		if encodingError != nil {
			return nil, PayloadEncodingError{Operation: request.operation, Cause: encodingError}
		}
		bodyReader = bytes.NewReader(payload)
	}

	httpRequest, requestError := http.NewRequestWithContext(executionContext, request.method, target, bodyReader)
	if requestError != nil {
		return nil, requestError
	}
	httpRequest.Header.Set(authorizationHeaderConstant, activeSession.authorization)
	httpRequest.Header.Set(acceptHeaderConstant, acceptHeaderValueConstant)
	httpRequest.Header.Set(apiVersionHeaderConstant, apiVersionHeaderValueConstant)
	httpRequest.Header.Set(userAgentHeaderConstant, userAgentHeaderValueConstant)
	if request.body != nil {
		httpRequest.Header.Set(contentTypeHeaderConstant, jsonContentTypeConstant)
	}
	return httpRequest, nil
}

// statusCode returns the HTTP status carried by err, or zero.
func statusCode(err error) int {
	var statusError *StatusError
	if errors.As(err, &statusError) {
		return statusError.StatusCode
	}
	return 0
}
