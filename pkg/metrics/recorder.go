package metrics

// Recorder collects dispatcher statistics, implementations must be safe
// to call from the dispatch loop without blocking
type Recorder interface {
	IncTransition(axis string)
	IncHookRun(state string)
	AddScriptFailures(n int)
	IncHandleError()
	IncRescan()
	IncSignalDropped(reason string)
	SetInterfaces(n int)
}

// NoopRecorder is used when metrics are not configured
type NoopRecorder struct{}

func (NoopRecorder) IncTransition(string)    {}
func (NoopRecorder) IncHookRun(string)       {}
func (NoopRecorder) AddScriptFailures(int)   {}
func (NoopRecorder) IncHandleError()         {}
func (NoopRecorder) IncRescan()              {}
func (NoopRecorder) IncSignalDropped(string) {}
func (NoopRecorder) SetInterfaces(int)       {}
