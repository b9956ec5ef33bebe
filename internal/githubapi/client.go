package githubapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/temirov/depflow/internal/gitprovider"
	"github.com/temirov/depflow/internal/metrics"
)

const (
	defaultAPIURLConstant                 = "https://api.github.com"
	defaultRetryAfterConstant             = 60 * time.Second
	defaultHTTPTimeoutConstant            = 100 * time.Second
	tokenProviderMissingMessageConstant   = "github token provider not configured"
	tokenSettingNameConstant              = "github token"
	emptyTokenMessageTemplateConstant     = "no token resolved for %s"
	responseDecodingErrorTemplateConstant = "%s response decoding failed: %s"
	payloadEncodingErrorTemplateConstant  = "%s payload encoding failed: %s"
	sessionCreatedMessageConstant         = "Created GitHub session"
	logFieldRepositoryConstant            = "repository"
	logFieldOperationConstant             = "operation"
	logFieldStatusCodeConstant            = "status_code"
	logFieldDelayConstant                 = "delay"
	logFieldPullRequestConstant           = "pull_request"
	logFieldBranchConstant                = "branch"
	logFieldAPIURLConstant                = "api_url"
)

// OperationName identifies a GitHub API workflow for errors, logs and metrics.
type OperationName string

// ErrTokenProviderNotConfigured indicates the client was constructed without a token provider.
var ErrTokenProviderNotConfigured = errors.New(tokenProviderMissingMessageConstant)

// ResponseDecodingError indicates a GitHub response that could not be decoded.
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

// PayloadEncodingError indicates a request body that could not be encoded.
type PayloadEncodingError struct {
	Operation OperationName
	Cause     error
}

// Error describes the encoding failure.
func (encodingError PayloadEncodingError) Error() string {
	return fmt.Sprintf(payloadEncodingErrorTemplateConstant, encodingError.Operation, encodingError.Cause)
}

// Unwrap exposes the underlying encoding error.
func (encodingError PayloadEncodingError) Unwrap() error {
	return encodingError.Cause
}

// Cloner clones repositories to disk. gitworkspace.Workspace satisfies it and
// injects the authorization header for hosted URLs.
type Cloner interface {
	Clone(ctx context.Context, options gitprovider.CloneOptions) error
}

// SleepFunc waits for delay or until ctx is done.
type SleepFunc func(ctx context.Context, delay time.Duration) error

// Dependencies enumerates collaborators required by Client.
type Dependencies struct {
	TokenProvider gitprovider.TokenProvider
	HTTPClient    *http.Client
	BlobCache     BlobCache
	Cloner        Cloner
	Metrics       metrics.Recorder
	Logger        *zap.Logger
	Sleep         SleepFunc
}

// Options configures a Client.
type Options struct {
	// APIURL is the REST endpoint root. Defaults to https://api.github.com.
	APIURL string
	// DefaultRetryAfter is slept before the single retry of a rate-limited
	// request when GitHub sends no Retry-After hint. Defaults to one minute.
	DefaultRetryAfter time.Duration
}

type session struct {
	apiURL        string
	authorization string
	httpClient    *http.Client
}

// Client talks to the GitHub REST API. It is safe for concurrent use.
//
// The session, and therefore the token, is acquired for the first repository
// the client is used with and reused for every later call, whichever
// repository those calls name.
type Client struct {
	tokenProvider     gitprovider.TokenProvider
	httpClient        *http.Client
	blobCache         BlobCache
	blobGroup         singleflight.Group
	cloner            Cloner
	metrics           metrics.Recorder
	logger            *zap.Logger
	sleep             SleepFunc
	apiURL            string
	defaultRetryAfter time.Duration

	sessionMutex  sync.Mutex
	activeSession *session
}

var _ gitprovider.HostedRepository = (*Client)(nil)

// NewClient constructs a Client.
func NewClient(dependencies Dependencies, options Options) (*Client, error) {
	if dependencies.TokenProvider == nil {
		return nil, ErrTokenProviderNotConfigured
	}

	client := &Client{
		tokenProvider:     dependencies.TokenProvider,
		httpClient:        dependencies.HTTPClient,
		blobCache:         dependencies.BlobCache,
		cloner:            dependencies.Cloner,
		metrics:           metrics.Resolve(dependencies.Metrics),
		logger:            dependencies.Logger,
		sleep:             dependencies.Sleep,
		apiURL:            strings.TrimRight(strings.TrimSpace(options.APIURL), "/"),
		defaultRetryAfter: options.DefaultRetryAfter,
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeoutConstant}
	}
	if client.blobCache == nil {
		client.blobCache = NewMemoryBlobCache()
	}
	if client.logger == nil {
		client.logger = zap.NewNop()
	}
	if client.sleep == nil {
		client.sleep = sleepWithContext
	}
	if len(client.apiURL) == 0 {
		client.apiURL = defaultAPIURLConstant
	}
	if client.defaultRetryAfter <= 0 {
		client.defaultRetryAfter = defaultRetryAfterConstant
	}
	return client, nil
}

// acquireSession returns the cached session, creating it from the token for
// repoURI on first use. A failed acquisition is not cached.
func (client *Client) acquireSession(executionContext context.Context, repoURI string) (*session, error) {
	client.sessionMutex.Lock()
	defer client.sessionMutex.Unlock()

	if client.activeSession != nil {
		return client.activeSession, nil
	}

	token, tokenError := client.tokenProvider.TokenForRepository(executionContext, repoURI)
	if tokenError != nil {
		return nil, tokenError
	}
	token = strings.TrimSpace(token)
	if len(token) == 0 {
		return nil, gitprovider.ConfigurationError{
			Setting: tokenSettingNameConstant,
			Message: fmt.Sprintf(emptyTokenMessageTemplateConstant, repoURI),
			Cause:   gitprovider.ErrMissingAccessToken,
		}
	}

	client.activeSession = &session{
		apiURL:        client.apiURL,
		authorization: bearerPrefixConstant + token,
		httpClient:    client.httpClient,
	}
	client.logger.Debug(sessionCreatedMessageConstant,
		zap.String(logFieldRepositoryConstant, repoURI),
		zap.String(logFieldAPIURLConstant, client.apiURL),
	)
	return client.activeSession, nil
}

func sleepWithContext(executionContext context.Context, delay time.Duration) error {
	if delay <= 0 {
		return executionContext.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-executionContext.Done():
		return executionContext.Err()
	case <-timer.C:
		return nil
	}
}
