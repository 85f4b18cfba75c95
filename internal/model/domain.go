package model

// DomainStatus is a two-state lifecycle for allowlist entries. Removal is a
// soft delete: rows move to retired and are never physically deleted.
type DomainStatus string

const (
	DomainActive  DomainStatus = "active"
	DomainRetired DomainStatus = "retired"
)

type AllowedDomain struct {
	ID        int64        `json:"id"`
	Domain    string       `json:"domain"`
	Status    DomainStatus `json:"status"`
	IsPrimary bool         `json:"isPrimary"`
}
