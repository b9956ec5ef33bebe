// Package githubauth resolves access tokens for repository URLs.
//
// Tokens come from per-host token sources (env:NAME or file:PATH) configured
// by the caller, falling back to the conventional GitHub and Azure DevOps
// environment variables.
package githubauth
