package livedata

import "errors"

var (
	// ErrNotConfigured marks a feed whose required credential is absent. This
	// is a hard configuration error for that feed, not a degraded fetch.
	ErrNotConfigured = errors.New("live data feed not configured")

	// ErrUnavailable marks a feed whose entire provider chain, including the
	// temporal-cache fallback, produced nothing.
	ErrUnavailable = errors.New("live data unavailable")
)
