package domain

import "errors"

// Soft failure classes. None of them crosses the orchestrator boundary; they
// are wrapped by the layer that raises them and absorbed into degraded results.
var (
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	ErrIndexBuild            = errors.New("index build failed")
	ErrRetrieval             = errors.New("retrieval failed")
	ErrModelCall             = errors.New("model call failed")
	ErrParse                 = errors.New("response parse failed")
	ErrPersistence           = errors.New("index persistence failed")
	ErrNotFound              = errors.New("not found")
)
