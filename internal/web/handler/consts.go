package handler

const (
	// RouterRootPath is the root path of a route group.
	RouterRootPath = "/"

	// ErrNilAppEnvFatalLogMsg is used if the app or env pointer is nil.
	ErrNilAppEnvFatalLogMsg = "app or env is nil"
)
