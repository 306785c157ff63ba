package tenant

// Permission is the capability set for one resource kind.
type Permission struct {
	Read   bool
	Write  bool
	Delete bool
}

// TenantContext is a short-lived, per-request capability object bound
// to a quota and usage snapshot taken when it was issued. It is never
// persisted; callers obtain a fresh one per logical request.
type TenantContext struct {
	TenantID  string
	UserID    string
	Role      Role
	Namespace string
	Quota     QuotaConfig
	Usage     Usage

	perms map[ResourceKind]Permission
}

// CanRead reports whether the caller may read the resource kind.
func (c *TenantContext) CanRead(kind ResourceKind) bool {
	return c.perms[kind].Read
}

// CanWrite reports whether the caller may create or update the
// resource kind.
func (c *TenantContext) CanWrite(kind ResourceKind) bool {
	return c.perms[kind].Write
}

// CanDelete reports whether the caller may delete the resource kind.
func (c *TenantContext) CanDelete(kind ResourceKind) bool {
	return c.perms[kind].Delete
}

// CanUploadBlob reports whether a blob of the given size fits within
// the snapshot's quota. This is an advisory pre-check; the Manager's
// ReserveBlob performs the authoritative atomic reservation.
func (c *TenantContext) CanUploadBlob(size int64) bool {
	if size < 0 || size > c.Quota.MaxBlobSizeBytes {
		return false
	}
	if c.Usage.BlobStorageBytes+size > c.Quota.MaxBlobStorageBytes {
		return false
	}
	return c.Usage.BlobCount+1 <= c.Quota.MaxBlobCount
}

// CanStoreRecord reports whether one more record of the given size
// fits within the snapshot's quota.
func (c *TenantContext) CanStoreRecord(size int64) bool {
	if size < 0 {
		return false
	}
	if c.Usage.Records+1 > c.Quota.MaxRecords {
		return false
	}
	return c.Usage.DataSizeBytes+size <= c.Quota.MaxDataSizeBytes
}

// permissionsFor maps a role onto capability sets per resource kind.
func permissionsFor(role Role) map[ResourceKind]Permission {
	switch role {
	case RoleAdmin:
		all := Permission{Read: true, Write: true, Delete: true}
		return map[ResourceKind]Permission{
			ResourceBlob:   all,
			ResourceRecord: all,
			ResourceAudit:  {Read: true},
		}
	case RoleEditor:
		return map[ResourceKind]Permission{
			ResourceBlob:   {Read: true, Write: true, Delete: true},
			ResourceRecord: {Read: true, Write: true, Delete: true},
		}
	case RoleViewer:
		return map[ResourceKind]Permission{
			ResourceBlob:   {Read: true},
			ResourceRecord: {Read: true},
		}
	default:
		return map[ResourceKind]Permission{}
	}
}
