package gitworkspace

import (
	"context"
	"encoding/base64"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/depflow/internal/gitrepo"
)

const (
	authorizationHeaderArgumentConstant       = "--config-env=http.extraheader=" + authorizationEnvironmentVariableConstant
	authorizationEnvironmentVariableConstant  = "GIT_REMOTE_PAT"
	terminalPromptEnvironmentVariableConstant = "GIT_TERMINAL_PROMPT"
	terminalPromptDisabledValueConstant       = "0"
	basicAuthorizationPrefixConstant          = "Authorization: Basic "
	bearerAuthorizationPrefixConstant         = "Authorization: Bearer "
	basicCredentialsSeparatorConstant         = ":"
	basicAuthorizationUserConstant            = "dotnet-maestro[bot]"
	tokenResolutionFailedMessageConstant      = "Unable to resolve token for remote; continuing without authorization header"
)

// AuthorizationScheme selects how a token is presented in the extra HTTP header.
type AuthorizationScheme string

// Authorization schemes.
const (
	AuthorizationSchemeBasic  AuthorizationScheme = AuthorizationScheme("basic")
	AuthorizationSchemeBearer AuthorizationScheme = AuthorizationScheme("bearer")
	AuthorizationSchemeRaw    AuthorizationScheme = AuthorizationScheme("raw")
)

func defaultAuthorizationSchemes() map[gitrepo.RepositoryKind]AuthorizationScheme {
	return map[gitrepo.RepositoryKind]AuthorizationScheme{
		gitrepo.RepositoryKindGitHub:      AuthorizationSchemeBasic,
		gitrepo.RepositoryKindAzureDevOps: AuthorizationSchemeBearer,
	}
}

// AddGitAuthHeader prepends the extra header option to arguments and records
// the header value in environment when a token is available for repoURL.
// The token is resolved on every call. Unknown hosts and missing tokens leave
// both arguments and environment untouched.
func (workspace *Workspace) AddGitAuthHeader(executionContext context.Context, arguments []string, environment map[string]string, repoURL string) []string {
	kind := gitrepo.ClassifyRepository(repoURL)
	if kind != gitrepo.RepositoryKindGitHub && kind != gitrepo.RepositoryKindAzureDevOps {
		return arguments
	}
	if workspace.tokenProvider == nil || environment == nil {
		return arguments
	}

	token, tokenError := workspace.tokenProvider.TokenForRepository(executionContext, repoURL)
	if tokenError != nil {
		workspace.logger.Debug(tokenResolutionFailedMessageConstant, zap.String(logFieldRemoteURLConstant, repoURL), zap.Error(tokenError))
		return arguments
	}
	token = strings.TrimSpace(token)
	if len(token) == 0 {
		return arguments
	}

	environment[authorizationEnvironmentVariableConstant] = formatAuthorizationHeader(workspace.authorizationSchemes[kind], token)
	environment[terminalPromptEnvironmentVariableConstant] = terminalPromptDisabledValueConstant

	withHeader := make([]string, 0, len(arguments)+1)
	withHeader = append(withHeader, authorizationHeaderArgumentConstant)
	return append(withHeader, arguments...)
}

func formatAuthorizationHeader(scheme AuthorizationScheme, token string) string {
	switch scheme {
	case AuthorizationSchemeBasic:
		credentials := basicAuthorizationUserConstant + basicCredentialsSeparatorConstant + token
		return basicAuthorizationPrefixConstant + base64.StdEncoding.EncodeToString([]byte(credentials))
	case AuthorizationSchemeBearer:
		return bearerAuthorizationPrefixConstant + token
	default:
		return token
	}
}
