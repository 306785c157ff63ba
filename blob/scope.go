package blob

import (
	"strings"

	"github.com/bignyap/tenantstore/apperror"
)

// ScopeKey prefixes a caller-supplied key with the tenant namespace.
// UnscopeKey(ns, ScopeKey(ns, key)) == key for every valid key.
func ScopeKey(namespace, key string) string {
	return namespace + key
}

// UnscopeKey strips the tenant namespace from a scoped key, restoring
// the key the caller originally supplied.
func UnscopeKey(namespace, key string) string {
	return strings.TrimPrefix(key, namespace)
}

// ValidateKey rejects keys that could escape the tenant namespace once
// prefixed.
func ValidateKey(key string) error {
	if key == "" {
		return apperror.Validation("object key must not be empty", nil)
	}
	if strings.HasPrefix(key, "/") {
		return apperror.Validation("object key must not start with a slash", nil)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return apperror.Validation("object key must not contain path traversal", nil)
		}
	}
	return nil
}
