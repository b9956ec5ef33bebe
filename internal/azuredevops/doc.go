// Package azuredevops implements the hosted git provider on top of the Azure
// DevOps REST API.
//
// Repository URLs take the dev.azure.com or legacy visualstudio.com form and
// pull request URLs the _apis form returned when a pull request is created.
// Requests authenticate with a personal access token resolved per repository.
package azuredevops
