package utils

import (
	"fmt"
	"hash/fnv"
)

func HashStringToUint64(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

// CacheKey builds a compact, stable key for a namespaced lookup.
func CacheKey(namespace string, raw string) string {
	return fmt.Sprintf("%s:%016x", namespace, HashStringToUint64(raw))
}
