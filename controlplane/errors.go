package controlplane

import "errors"

// Sources and providers wrap their failures in one of these so callers can tell a missing policy
// from an unreachable backend with errors.Is.
var (
	ErrProviderUnavailable = errors.New("cadence: policy provider unavailable")
	ErrPolicyNotFound      = errors.New("cadence: policy not found")
	// ErrPolicyFetchFailed covers every fetch failure that is neither unavailability nor corruption.
	ErrPolicyFetchFailed = errors.New("cadence: policy fetch failed")
	// ErrPolicyCorrupt means a policy was fetched but could not be decoded or normalized.
	ErrPolicyCorrupt = errors.New("cadence: policy corrupt")
)
