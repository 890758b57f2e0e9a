package domain

import "errors"

var (
	// ErrNoItems is returned when a comparison is requested with no usable items
	ErrNoItems = errors.New("no items provided")

	// ErrComparisonNotFound is returned when an override targets an unknown or expired comparison id
	ErrComparisonNotFound = errors.New("comparison not found")

	// ErrUnknownStore is returned when a store id is not in the configured registry
	ErrUnknownStore = errors.New("unknown store")

	// ErrCacheMiss is returned when cached search results are absent, expired, or unreadable
	ErrCacheMiss = errors.New("cache miss")

	// ErrAuthRequired is returned by a scraper when the store blocks automated
	// access behind a login or challenge page and needs operator attention
	ErrAuthRequired = errors.New("store authentication required")

	// ErrScrapeFailed is returned when a store search fails for an ordinary
	// operational reason (timeout, selector miss, blocked request)
	ErrScrapeFailed = errors.New("store search failed")
)
