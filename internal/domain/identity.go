package domain

import "time"

// SubjectType differentiates customer vs staff sessions.
type SubjectType string

const (
	SubjectTypeCustomer SubjectType = "CUSTOMER"
	SubjectTypeStaff    SubjectType = "STAFF"
)

// Customer is the identity record for utility customers, supplied by the
// external identity layer. The service desk core reads it for display
// names and notification addresses only.
type Customer struct {
	ID            string
	TenantID      string
	Email         string
	FirstName     string
	LastName      string
	Phone         string
	AccountNumber string
	PasswordHash  string
	IsVerified    bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// FullName returns the customer's display name.
func (c *Customer) FullName() string {
	if c.FirstName == "" && c.LastName == "" {
		return c.Email
	}
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// StaffRole enumerates utility operator roles.
type StaffRole string

const (
	RoleAdmin      StaffRole = "admin"
	RoleSupervisor StaffRole = "supervisor"
	RoleFieldTech  StaffRole = "field_tech"
	RoleSupport    StaffRole = "support"
)

// Staff is the identity record for utility staff members.
type Staff struct {
	ID           string
	TenantID     string
	Email        string
	Name         string
	Role         StaffRole
	PasswordHash string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CanAssign reports whether the role may assign requests to others.
func (s *Staff) CanAssign() bool {
	return s.Role == RoleAdmin || s.Role == RoleSupervisor
}

// AssetRef is a read-only reference into the external infrastructure
// inventory. The core never mutates assets.
type AssetRef struct {
	ID        string
	AssetCode string
	Name      string
	AssetType string
	Location  *GeoPoint
}
