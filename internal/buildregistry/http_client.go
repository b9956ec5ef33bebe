package buildregistry

import (
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
)

const (
	apiVersionParameterConstant    = "api-version"
	apiVersionValueConstant        = "2020-02-20"
	nameParameterConstant          = "name"
	versionParameterConstant       = "version"
	buildIDParameterConstant       = "buildId"
	nonShippingParameterConstant   = "nonShipping"
	assetsEndpointConstant         = "/api/assets"
	buildEndpointTemplateConstant  = "/api/builds/%d"
	authorizationHeaderConstant    = "Authorization"
	acceptHeaderConstant           = "Accept"
	bearerPrefixConstant           = "Bearer "
	jsonMediaTypeConstant          = "application/json"
	defaultHTTPTimeoutConstant     = 100 * time.Second
	errorBodySnippetLimitConstant  = 512
	baseURLMissingMessageConstant  = "build registry base URL not configured"
	statusErrorTemplateConstant    = "build registry %s returned %d: %s"
	requestErrorTemplateConstant   = "build registry %s failed: %w"
	decodingErrorTemplateConstant  = "build registry %s response decoding failed: %w"
	registryRequestMessageConstant = "Querying build registry"
	logFieldEndpointConstant       = "endpoint"
	logFieldStatusCodeConstant     = "status_code"
)

// ErrBaseURLNotConfigured indicates the client was constructed without a base URL.
var ErrBaseURLNotConfigured = errors.New(baseURLMissingMessageConstant)

// StatusError reports a non-2xx registry response.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

// Error describes the response.
func (statusError StatusError) Error() string {
	return fmt.Sprintf(statusErrorTemplateConstant, statusError.URL, statusError.StatusCode, statusError.Body)
}

// Dependencies enumerates collaborators used by HTTPClient.
type Dependencies struct {
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Options configures HTTPClient.
type Options struct {
	BaseURL string
	Token   string
}

// HTTPClient is a read-only Client over the registry REST API.
type HTTPClient struct {
	httpClient *http.Client
	logger     *zap.Logger
	baseURL    string
	token      string
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient constructs an HTTPClient.
func NewHTTPClient(dependencies Dependencies, options Options) (*HTTPClient, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(options.BaseURL), "/")
	if len(baseURL) == 0 {
		return nil, ErrBaseURLNotConfigured
	}
	client := &HTTPClient{
		httpClient: dependencies.HTTPClient,
		logger:     dependencies.Logger,
		baseURL:    baseURL,
		token:      strings.TrimSpace(options.Token),
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeoutConstant}
	}
	if client.logger == nil {
		client.logger = zap.NewNop()
	}
	return client, nil
}

// GetAssets lists the assets matching query.
func (client *HTTPClient) GetAssets(executionContext context.Context, query AssetQuery) ([]Asset, error) {
	parameters := url.Values{}
	if len(query.Name) > 0 {
		parameters.Set(nameParameterConstant, query.Name)
	}
	if len(query.Version) > 0 {
		parameters.Set(versionParameterConstant, query.Version)
	}
	if query.BuildID != nil {
		parameters.Set(buildIDParameterConstant, strconv.Itoa(*query.BuildID))
	}
	if query.NonShipping != nil {
		parameters.Set(nonShippingParameterConstant, strconv.FormatBool(*query.NonShipping))
	}

	assets := []Asset{}
	if requestError := client.get(executionContext, assetsEndpointConstant, parameters, &assets); requestError != nil {
		return nil, requestError
	}
	return assets, nil
}

// GetBuild returns the build with buildID.
func (client *HTTPClient) GetBuild(executionContext context.Context, buildID int) (Build, error) {
	var build Build
	if requestError := client.get(executionContext, fmt.Sprintf(buildEndpointTemplateConstant, buildID), url.Values{}, &build); requestError != nil {
		return Build{}, requestError
	}
	return build, nil
}

func (client *HTTPClient) get(executionContext context.Context, endpoint string, parameters url.Values, result any) error {
	parameters.Set(apiVersionParameterConstant, apiVersionValueConstant)
	target := client.baseURL + endpoint + "?" + parameters.Encode()

	request, requestError := http.NewRequestWithContext(executionContext, http.MethodGet, target, http.NoBody)
	if requestError != nil {
		return fmt.Errorf(requestErrorTemplateConstant, endpoint, requestError)
	}
	request.Header.Set(acceptHeaderConstant, jsonMediaTypeConstant)
	if len(client.token) > 0 {
		request.Header.Set(authorizationHeaderConstant, bearerPrefixConstant+client.token)
	}

	client.logger.Debug(registryRequestMessageConstant, zap.String(logFieldEndpointConstant, endpoint))
	response, responseError := client.httpClient.Do(request)
	if responseError != nil {
		return fmt.Errorf(requestErrorTemplateConstant, endpoint, responseError)
	}
	defer func() { _ = response.Body.Close() }()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		limitedBody, _ := io.ReadAll(io.LimitReader(response.Body, errorBodySnippetLimitConstant))
		client.logger.Debug(registryRequestMessageConstant,
			zap.String(logFieldEndpointConstant, endpoint),
			zap.Int(logFieldStatusCodeConstant, response.StatusCode),
		)
		return StatusError{URL: endpoint, StatusCode: response.StatusCode, Body: strings.TrimSpace(string(limitedBody))}
	}

	if decodingError := json.NewDecoder(response.Body).Decode(result); decodingError != nil {
		return fmt.Errorf(decodingErrorTemplateConstant, endpoint, decodingError)
	}
	return nil
}
