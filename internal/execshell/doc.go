// Package execshell runs external processes on behalf of depflow.
//
// OSCommandRunner starts a process through os/exec and reports its exit code,
// output and whether it was killed by the per-command timeout. ShellExecutor
// wraps a CommandRunner with zap logging and turns unsuccessful results into
// CommandFailedError values. A result counts as successful only when the
// process exited with code zero and did not time out.
package execshell
