package pixcache

// CachePolicy governs which tiers a load may read from and populate.
// Read-side checks consult only the tiers the policy enables.
type CachePolicy struct {
	DiskEnabled   bool
	MemoryEnabled bool
}

// DefaultPolicy caches to both tiers.
func DefaultPolicy() CachePolicy {
	return CachePolicy{DiskEnabled: true, MemoryEnabled: true}
}

// CacheDisabled skips the disk tier entirely. With allowMemory the result
// is still retained in memory (useful for content that must not touch
// persistent storage but is cheap to keep resident); otherwise nothing is
// cached and repeated identical loads re-fetch.
func CacheDisabled(allowMemory bool) CachePolicy {
	return CachePolicy{DiskEnabled: false, MemoryEnabled: allowMemory}
}

// PolicyResolver is an optional caller-supplied hook consulted per load
// when the request itself does not pin a policy.
type PolicyResolver func(locator string) CachePolicy
