package driven

// Reporter is the user-facing diagnostic channel, with the severities the
// deployment tooling renders: warning, error, success and notice.
type Reporter interface {
	Warning(msg string)
	Error(msg string)
	Success(msg string)
	Notice(msg string)
}
