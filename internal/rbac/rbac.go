// Package rbac holds the static role/permission table that drives every
// authorization decision in the API.
package rbac

// Role is one of the four fixed roles a user account can hold.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleManager  Role = "MANAGER"
	RoleEmployee Role = "EMPLOYEE"
	RoleAuditor  Role = "AUDITOR"
)

// Permission names a capability a handler requires before acting.
type Permission string

const (
	PermDocumentView    Permission = "DOCUMENT_VIEW"
	PermDocumentCreate  Permission = "DOCUMENT_CREATE"
	PermDocumentEdit    Permission = "DOCUMENT_EDIT"
	PermDocumentDelete  Permission = "DOCUMENT_DELETE"
	PermDocumentApprove Permission = "DOCUMENT_APPROVE"
	PermAuditView       Permission = "AUDIT_VIEW"
	PermUserManage      Permission = "USER_MANAGE"
	PermUserView        Permission = "USER_VIEW"
	PermUserUpdate      Permission = "USER_UPDATE"
	PermUserDelete      Permission = "USER_DELETE"
	PermComplianceView  Permission = "COMPLIANCE_VIEW"
	PermComplianceEdit  Permission = "COMPLIANCE_EDIT"
)

var allowSets = map[Permission][]Role{
	PermDocumentView:    {RoleAdmin, RoleManager, RoleEmployee, RoleAuditor},
	PermDocumentCreate:  {RoleAdmin, RoleManager},
	PermDocumentEdit:    {RoleAdmin, RoleManager},
	PermDocumentDelete:  {RoleAdmin},
	PermDocumentApprove: {RoleAdmin, RoleManager},
	PermAuditView:       {RoleAdmin, RoleAuditor},
	PermUserManage:      {RoleAdmin},
	PermUserView:        {RoleAdmin},
	PermUserUpdate:      {RoleAdmin},
	PermUserDelete:      {RoleAdmin},
	PermComplianceView:  {RoleAdmin, RoleManager, RoleAuditor},
	PermComplianceEdit:  {RoleAdmin, RoleManager},
}

// Allowed reports whether role may exercise perm. Unknown permissions
// deny for every role.
func Allowed(role Role, perm Permission) bool {
	for _, r := range allowSets[perm] {
		if r == role {
			return true
		}
	}
	return false
}

// Roles returns the fixed role enumeration.
func Roles() []Role {
	return []Role{RoleAdmin, RoleManager, RoleEmployee, RoleAuditor}
}

// ParseRole validates an inbound role string against the enumeration.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RoleManager, RoleEmployee, RoleAuditor:
		return Role(s), true
	}
	return "", false
}
