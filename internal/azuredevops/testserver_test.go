package azuredevops

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/depflow/internal/gitprovider"
)

const (
	testRepositoryURLConstant   = "https://dev.azure.com/dnceng/internal/_git/dotnet-arcade"
	testPullRequestURLConstant  = "https://dev.azure.com/dnceng/internal/_apis/git/repositories/dotnet-arcade/pullRequests/42"
	testRepositoryPathConstant  = "/dnceng/internal/_apis/git/repositories/dotnet-arcade"
	testPullRequestPathConstant = testRepositoryPathConstant + "/pullRequests/42"
	testTokenConstant           = "azdo_test"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   any
	Header http.Header
}

// fakeAzureDevOps routes "METHOD /path" keys to handlers and answers 404 otherwise.
type fakeAzureDevOps struct {
	mutex    sync.Mutex
	handlers map[string]http.HandlerFunc
	requests []recordedRequest
}

func newFakeAzureDevOps() *fakeAzureDevOps {
	return &fakeAzureDevOps{handlers: map[string]http.HandlerFunc{}}
}

func (fake *fakeAzureDevOps) handle(route string, handler http.HandlerFunc) {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()
	fake.handlers[route] = handler
}

func (fake *fakeAzureDevOps) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	payload, _ := io.ReadAll(request.Body)
	var body any
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

func (fake *fakeAzureDevOps) recorded() []recordedRequest {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()
	return append([]recordedRequest{}, fake.requests...)
}

func (fake *fakeAzureDevOps) count(route string) int {
	total := 0
	for _, request := range fake.recorded() {
		if request.Method+" "+request.Path == route {
			total++
		}
	}
	return total
}

func (fake *fakeAzureDevOps) last(route string) recordedRequest {
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

type staticTokens struct {
	token string
}

func (tokens staticTokens) TokenForRepository(ctx context.Context, repoURI string) (string, error) {
	return tokens.token, nil
}

type testClientFixture struct {
	client *Client
	fake   *fakeAzureDevOps
}

func newTestClientFixture(testInstance *testing.T, logger *zap.Logger) testClientFixture {
	testInstance.Helper()
	fake := newFakeAzureDevOps()
	server := httptest.NewServer(fake)
	testInstance.Cleanup(server.Close)

	client, creationError := NewClient(Dependencies{
		TokenProvider: staticTokens{token: testTokenConstant},
		HTTPClient:    server.Client(),
		Logger:        logger,
	}, Options{APIURL: server.URL})
	require.NoError(testInstance, creationError)
	return testClientFixture{client: client, fake: fake}
}

var _ gitprovider.TokenProvider = staticTokens{}
