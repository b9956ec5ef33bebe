// Package metrics defines the Recorder hooks used by the git workspace, the
// hosted git client and the asset resolver, with a no-op default and a
// Prometheus implementation.
package metrics
