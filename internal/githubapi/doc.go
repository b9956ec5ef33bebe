// Package githubapi implements the hosted git provider on top of the GitHub
// REST API.
//
// The client acquires its session lazily, retries rate-limited requests once,
// caches blob contents per repository and translates GitHub responses into the
// provider-neutral records declared in gitprovider.
package githubapi
