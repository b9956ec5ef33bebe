// Package gitprovider defines the capabilities shared by hosted git services
// and local repositories, the records exchanged through them and the error
// kinds every implementation reports.
package gitprovider
