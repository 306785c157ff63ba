package tenant

import "time"

// ResourceKind names a class of stored data for permission checks.
type ResourceKind string

const (
	ResourceBlob   ResourceKind = "blob"
	ResourceRecord ResourceKind = "record"
	ResourceAudit  ResourceKind = "audit"
)

// Role is the caller's role within a tenant. Role assignment itself is
// an external concern; the resolver is injected into the Manager.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// ParseRole maps an external role string onto a known Role. Unknown
// strings fall back to viewer, the least-privileged role.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleAdmin, RoleEditor, RoleViewer:
		return Role(s)
	default:
		return RoleViewer
	}
}

// QuotaConfig holds the configured ceilings for one tenant.
type QuotaConfig struct {
	MaxBlobStorageBytes int64 `json:"max_blob_storage_bytes"`
	MaxBlobCount        int64 `json:"max_blob_count"`
	MaxBlobSizeBytes    int64 `json:"max_blob_size_bytes"`
	MaxRecords          int64 `json:"max_records"`
	MaxDataSizeBytes    int64 `json:"max_data_size_bytes"`
	MaxListLength       int   `json:"max_list_length"`
}

// DefaultQuota returns the quota applied to tenants provisioned
// without an explicit configuration.
func DefaultQuota() QuotaConfig {
	return QuotaConfig{
		MaxBlobStorageBytes: 1 << 30, // 1 GiB
		MaxBlobCount:        10000,
		MaxBlobSizeBytes:    100 << 20, // 100 MiB
		MaxRecords:          100000,
		MaxDataSizeBytes:    256 << 20, // 256 MiB
		MaxListLength:       1000,
	}
}

// Usage holds a tenant's current resource footprint. Counters are
// mutated by every storage operation that changes it and clamped at
// zero on negative adjustments.
type Usage struct {
	BlobStorageBytes int64 `json:"blob_storage_bytes"`
	BlobCount        int64 `json:"blob_count"`
	Records          int64 `json:"records"`
	DataSizeBytes    int64 `json:"data_size_bytes"`
}

// Tenant is one isolated customer. Created at provisioning time;
// deprovisioning is out of scope.
type Tenant struct {
	ID        string      `json:"id"`
	Quota     QuotaConfig `json:"quota"`
	Usage     Usage       `json:"usage"`
	CreatedAt time.Time   `json:"created_at"`
}

// Namespace returns the key prefix scoping all of the tenant's storage
// keys. Scoped keys are namespace + key with no leading slash.
func (t *Tenant) Namespace() string {
	return "tenants/" + t.ID + "/"
}
