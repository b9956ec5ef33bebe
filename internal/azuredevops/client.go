package azuredevops

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/depflow/internal/gitprovider"
	"github.com/temirov/depflow/internal/metrics"
)

const (
	defaultAPIURLConstant                   = "https://dev.azure.com"
	defaultAPIVersionConstant               = "5.0"
	defaultHTTPTimeoutConstant              = 100 * time.Second
	tokenProviderMissingMessageConstant     = "azure devops token provider not configured"
	tokenSettingNameConstant                = "azure devops token"
	emptyTokenMessageTemplateConstant       = "no token resolved for %s"
	basicCredentialsTemplateConstant        = ":%s"
	basicPrefixConstant                     = "Basic "
	responseDecodingErrorTemplateConstant   = "%s response decoding failed: %s"
	unexpectedResponseErrorTemplateConstant = "%s returned an unexpected response: %s"
	logFieldOperationConstant               = "operation"
	logFieldStatusCodeConstant              = "status_code"
	logFieldRepositoryConstant              = "repository"
	logFieldPullRequestConstant             = "pull_request"
	logFieldBranchConstant                  = "branch"
)

// OperationName identifies an Azure DevOps API workflow for errors, logs and metrics.
type OperationName string

// ErrTokenProviderNotConfigured indicates the client was constructed without a token provider.
var ErrTokenProviderNotConfigured = errors.New(tokenProviderMissingMessageConstant)

// ResponseDecodingError indicates a response body that could not be decoded.
type ResponseDecodingError struct {
	Operation OperationName
	Cause     error
}

// Error describes the decoding failure.
func (decodingError ResponseDecodingError) Error() string {
	return fmt.Sprintf(responseDecodingErrorTemplateConstant, decodingError.Operation, decodingError.Cause)
}

// Unwrap exposes the underlying decoding error.
func (decodingError ResponseDecodingError) Unwrap() error {
	return decodingError.Cause
}

// UnexpectedResponseError reports a well-formed response whose content cannot
// be translated, such as an unknown review vote.
type UnexpectedResponseError struct {
	Operation OperationName
	Message   string
}

// Error describes the response.
func (responseError UnexpectedResponseError) Error() string {
	return fmt.Sprintf(unexpectedResponseErrorTemplateConstant, responseError.Operation, responseError.Message)
}

// Cloner clones repositories to disk.
type Cloner interface {
	Clone(ctx context.Context, options gitprovider.CloneOptions) error
}

// Dependencies enumerates collaborators required by Client.
type Dependencies struct {
	TokenProvider gitprovider.TokenProvider
	HTTPClient    *http.Client
	Cloner        Cloner
	Metrics       metrics.Recorder
	Logger        *zap.Logger
}

// Options configures a Client.
type Options struct {
	// APIURL is the organization root. Defaults to https://dev.azure.com.
	APIURL string
	// APIVersion is sent in the Accept header. Defaults to 5.0.
	APIVersion string
}

// Client talks to the Azure DevOps REST API. It is safe for concurrent use.
// Unlike the GitHub client, the token is resolved for each repository named.
type Client struct {
	tokenProvider gitprovider.TokenProvider
	httpClient    *http.Client
	cloner        Cloner
	metrics       metrics.Recorder
	logger        *zap.Logger
	apiURL        string
	apiVersion    string
}

var _ gitprovider.HostedRepository = (*Client)(nil)

// NewClient constructs a Client.
func NewClient(dependencies Dependencies, options Options) (*Client, error) {
	if dependencies.TokenProvider == nil {
		return nil, ErrTokenProviderNotConfigured
	}

	client := &Client{
		tokenProvider: dependencies.TokenProvider,
		httpClient:    dependencies.HTTPClient,
		cloner:        dependencies.Cloner,
		metrics:       metrics.Resolve(dependencies.Metrics),
		logger:        dependencies.Logger,
		apiURL:        strings.TrimRight(strings.TrimSpace(options.APIURL), "/"),
		apiVersion:    strings.TrimSpace(options.APIVersion),
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeoutConstant}
	}
	if client.logger == nil {
		client.logger = zap.NewNop()
	}
	if len(client.apiURL) == 0 {
		client.apiURL = defaultAPIURLConstant
	}
	if len(client.apiVersion) == 0 {
		client.apiVersion = defaultAPIVersionConstant
	}
	return client, nil
}

// authorization builds the Basic header value for the token of repoURI.
func (client *Client) authorization(executionContext context.Context, repoURI string) (string, error) {
	token, tokenError := client.tokenProvider.TokenForRepository(executionContext, repoURI)
	if tokenError != nil {
		return "", tokenError
	}
	token = strings.TrimSpace(token)
	if len(token) == 0 {
		return "", gitprovider.ConfigurationError{
			Setting: tokenSettingNameConstant,
			Message: fmt.Sprintf(emptyTokenMessageTemplateConstant, repoURI),
			Cause:   gitprovider.ErrMissingAccessToken,
		}
	}
	credentials := base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf(basicCredentialsTemplateConstant, token)))
	return basicPrefixConstant + credentials, nil
}
