package metrics

import "time"

// Recorder receives observability events from depflow components. Components
// default to NoopRecorder when no recorder is injected.
type Recorder interface {
	ObserveGitCommand(subcommand string, duration time.Duration, succeeded bool)
	IncAPIRequest(operation string, statusCode int)
	IncRateLimitRetry(operation string)
	IncBlobCache(hit bool)
	IncBuildFetch()
	IncDependencyResolved(matched bool)
}

// NoopRecorder is a Recorder that does nothing.
type NoopRecorder struct{}

func (NoopRecorder) ObserveGitCommand(string, time.Duration, bool) {}
func (NoopRecorder) IncAPIRequest(string, int)                     {}
func (NoopRecorder) IncRateLimitRetry(string)                      {}
func (NoopRecorder) IncBlobCache(bool)                             {}
func (NoopRecorder) IncBuildFetch()                                {}
func (NoopRecorder) IncDependencyResolved(bool)                    {}

// Resolve returns recorder, or NoopRecorder when recorder is nil.
func Resolve(recorder Recorder) Recorder {
	if recorder == nil {
		return NoopRecorder{}
	}
	return recorder
}
