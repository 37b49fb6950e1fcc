package permit

import "errors"

var (
	// ErrFetcherRequired is returned by NewEngine without a fetcher.
	ErrFetcherRequired = errors.New("permit: fetcher is required")

	// ErrAccessDenied is returned by Enforce when a required code is missing.
	ErrAccessDenied = errors.New("permit: access denied")

	// ErrFetchFailed wraps a failed permission fetch.
	ErrFetchFailed = errors.New("permit: permission fetch failed")

	// ErrPermissionsUnavailable is returned by Enforce when access cannot
	// be verified because the fetch failed.
	ErrPermissionsUnavailable = errors.New("permit: permissions unavailable")

	// ErrScopeRequired is returned for a project-scope request without a
	// scope id.
	ErrScopeRequired = errors.New("permit: project scope requires a scope id")

	// ErrResolverClosed is returned by Resolver.Wait after Close.
	ErrResolverClosed = errors.New("permit: resolver closed")

	// ErrInvalidCheckMode is returned for an unknown CheckMode.
	ErrInvalidCheckMode = errors.New("permit: invalid check mode")
)
