package ipc

// KeyFor derives a stable IPC key from a human-readable name so cooperating
// processes can agree on keys without a shared constant. It is an FNV-1a hash
// folded into the non-negative range; the empty string maps to exactly 0.
//
// Segment keys and semaphore keys live in independent kernel namespaces, but
// callers conventionally offset the semaphore key (KeyFor(name)+1) so the two
// never coincide when protecting the same data.
func KeyFor(name string) int {
	if name == "" {
		return 0
	}
	const (
		offsetBasis = 2166136261
		prime       = 16777619
	)
	h := uint32(offsetBasis)
	for i := 0; i < len(name); i++ {
		h ^= uint32(name[i])
		h *= prime
	}
	v := int64(int32(h))
	if v < 0 {
		v = -v
	}
	return int(v)
}
