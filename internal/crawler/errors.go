package crawler

import "errors"

// Sentinel errors for the four locally recovered failure classes.
var (
	ErrDiscoveryRound = errors.New("discovery round failed")
	ErrFetchFailed    = errors.New("fetch failed")
	ErrLowQuality     = errors.New("low quality page")
	ErrPersistFailed  = errors.New("persist failed")
)
