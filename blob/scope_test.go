package blob_test

import (
	"testing"

	"github.com/bignyap/tenantstore/apperror"
	"github.com/bignyap/tenantstore/blob"
	"github.com/stretchr/testify/assert"
)

func TestScopeUnscopeRoundTrip(t *testing.T) {
	ns := "tenants/acme/"
	keys := []string{
		"report.pdf",
		"nested/dir/file.txt",
		"with spaces and #chars",
		"tenants/other/looks-scoped",
	}
	for _, key := range keys {
		assert.Equal(t, key, blob.UnscopeKey(ns, blob.ScopeKey(ns, key)))
	}
}

func TestScopeKeyPrefix(t *testing.T) {
	assert.Equal(t, "tenants/acme/report.pdf", blob.ScopeKey("tenants/acme/", "report.pdf"))
}

func TestUnscopeKeyForeignPrefixUntouched(t *testing.T) {
	assert.Equal(t, "tenants/other/x", blob.UnscopeKey("tenants/acme/", "tenants/other/x"))
}

func TestValidateKey(t *testing.T) {
	assert.NoError(t, blob.ValidateKey("report.pdf"))
	assert.NoError(t, blob.ValidateKey("a/b/c"))

	for _, key := range []string{"", "/absolute", "../escape", "a/../b"} {
		err := blob.ValidateKey(key)
		assert.Error(t, err, "key %q", key)
		assert.True(t, apperror.IsKind(err, apperror.KindValidation))
	}
}
