package githubapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/depflow/internal/gitprovider"
)

const (
	testRepositoryURLConstant  = "https://github.com/dotnet/arcade"
	testPullRequestURLConstant = "https://api.github.com/repos/dotnet/arcade/pulls/42"
	testTokenConstant          = "ghp_test"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   map[string]any
	Header http.Header
}

// fakeGitHub routes "METHOD /path" keys to handlers and answers 404 otherwise.
type fakeGitHub struct {
	mutex    sync.Mutex
	handlers map[string]http.HandlerFunc
	requests []recordedRequest
}

func newFakeGitHub() *fakeGitHub {
	return &fakeGitHub{handlers: map[string]http.HandlerFunc{}}
}

func (fake *fakeGitHub) handle(route string, handler http.HandlerFunc) {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()
	fake.handlers[route] = handler
}

func (fake *fakeGitHub) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	payload, _ := io.ReadAll(request.Body)
	var body map[string]any
	if len(payload) > 0 {
		_ = json.Unmarshal(payload, &body)
	}

	fake.mutex.Lock()
	fake.requests = append(fake.requests, recordedRequest{
		Method: request.Method,
		Path:   request.URL.Path,
		Query:  request.URL.RawQuery,
		Body:   body,
		Header: request.Header.Clone(),
	})
	handler, found := fake.handlers[request.Method+" "+request.URL.Path]
	fake.mutex.Unlock()

	if !found {
		respondJSON(writer, http.StatusNotFound, map[string]any{"message": "Not Found"})
		return
	}
	handler(writer, request)
}

func (fake *fakeGitHub) recorded() []recordedRequest {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()
	return append([]recordedRequest{}, fake.requests...)
}

func (fake *fakeGitHub) count(route string) int {
	total := 0
	for _, request := range fake.recorded() {
		if request.Method+" "+request.Path == route {
			total++
		}
	}
	return total
}

func (fake *fakeGitHub) last(route string) recordedRequest {
	requests := fake.recorded()
	for index := len(requests) - 1; index >= 0; index-- {
		if requests[index].Method+" "+requests[index].Path == route {
			return requests[index]
		}
	}
	return recordedRequest{}
}

func respondJSON(writer http.ResponseWriter, status int, body any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	_ = json.NewEncoder(writer).Encode(body)
}

func staticJSON(status int, body any) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		respondJSON(writer, status, body)
	}
}

type countingTokens struct {
	calls atomic.Int32
	token string
}

func (tokens *countingTokens) TokenForRepository(ctx context.Context, repoURI string) (string, error) {
	tokens.calls.Add(1)
	return tokens.token, nil
}

type recordingSleeper struct {
	mutex  sync.Mutex
	delays []time.Duration
}

func (sleeper *recordingSleeper) sleep(ctx context.Context, delay time.Duration) error {
	sleeper.mutex.Lock()
	defer sleeper.mutex.Unlock()
	sleeper.delays = append(sleeper.delays, delay)
	return ctx.Err()
}

type testClientFixture struct {
	client  *Client
	fake    *fakeGitHub
	tokens  *countingTokens
	sleeper *recordingSleeper
	cache   *MemoryBlobCache
}

func newTestClientFixture(testInstance *testing.T, logger *zap.Logger) testClientFixture {
	testInstance.Helper()
	fake := newFakeGitHub()
	server := httptest.NewServer(fake)
	testInstance.Cleanup(server.Close)

	fixture := testClientFixture{
		fake:    fake,
		tokens:  &countingTokens{token: testTokenConstant},
		sleeper: &recordingSleeper{},
		cache:   NewMemoryBlobCache(),
	}
	client, creationError := NewClient(Dependencies{
		TokenProvider: fixture.tokens,
		HTTPClient:    server.Client(),
		BlobCache:     fixture.cache,
		Logger:        logger,
		Sleep:         fixture.sleeper.sleep,
	}, Options{APIURL: server.URL})
	require.NoError(testInstance, creationError)
	fixture.client = client
	return fixture
}

var _ gitprovider.TokenProvider = (*countingTokens)(nil)
