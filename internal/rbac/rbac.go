// Package rbac maps roles to the capabilities they may exercise.
//
// The table is built once at startup and handed to every component that
// authorizes callers. It has no mutators; lookups are pure.
package rbac

import (
	"fmt"

	dErrors "aip/pkg/domain-errors"
)

// Role is an opaque role name carried in the caller's token.
type Role string

const (
	RoleAdmin           Role = "admin"
	RoleVerifier        Role = "verifier"
	RolePartnerVerifier Role = "partner_verifier"
	RoleSponsor         Role = "sponsor"
	RoleInvestor        Role = "investor"
	RoleGovernment      Role = "government"
	RoleEPC             Role = "epc"
)

// Permission is a named capability.
type Permission string

// Wildcard grants every permission.
const Wildcard Permission = "*"

const (
	CreateProject        Permission = "create_project"
	UpdateOwnProject     Permission = "update_own_project"
	UpdateAnyProject     Permission = "update_any_project"
	DeleteProject        Permission = "delete_project"
	ViewAllProjects      Permission = "view_all_projects"
	VerifyProjects       Permission = "verify_projects"
	ApproveVerification  Permission = "approve_verification"
	UploadDocuments      Permission = "upload_documents"
	ViewPrivateDocuments Permission = "view_private_documents"
	RequestAccess        Permission = "request_access"
	GrantAccess          Permission = "grant_access"
	CreateDealroom       Permission = "create_dealroom"
	ManageUsers          Permission = "manage_users"
	ViewAuditLogs        Permission = "view_audit_logs"

	RequestVerification    Permission = "request_verification"
	AssignVerification     Permission = "assign_verification"
	SkipVerificationLevels Permission = "skip_verification_levels"
	AnchorDecisions        Permission = "anchor_decisions"
)

type capabilitySet map[Permission]struct{}

// Table is an immutable role to capability mapping.
type Table struct {
	roles map[Role]capabilitySet
}

// NewTable copies grants into a new Table. Later changes to grants have no effect.
func NewTable(grants map[Role][]Permission) *Table {
	roles := make(map[Role]capabilitySet, len(grants))
	for role, perms := range grants {
		set := make(capabilitySet, len(perms))
		for _, p := range perms {
			set[p] = struct{}{}
		}
		roles[role] = set
	}
	return &Table{roles: roles}
}

// DefaultTable returns the platform's role table.
func DefaultTable() *Table {
	return NewTable(map[Role][]Permission{
		RoleAdmin: {Wildcard},
		RoleVerifier: {
			ViewAllProjects,
			VerifyProjects,
			ApproveVerification,
			ViewPrivateDocuments,
			UpdateAnyProject,
			ViewAuditLogs,
			RequestVerification,
			AssignVerification,
			SkipVerificationLevels,
			AnchorDecisions,
		},
		RolePartnerVerifier: {
			VerifyProjects,
			ViewPrivateDocuments,
		},
		RoleSponsor: {
			CreateProject,
			UpdateOwnProject,
			UploadDocuments,
			GrantAccess,
			RequestVerification,
		},
		RoleInvestor: {
			RequestAccess,
			CreateDealroom,
			RequestVerification,
		},
		RoleGovernment: {
			CreateProject,
			UpdateOwnProject,
			UploadDocuments,
			ViewAllProjects,
		},
		RoleEPC: {
			RequestAccess,
		},
	})
}

// Permissions lists the grants of role. The result is a copy.
func (t *Table) Permissions(role Role) []Permission {
	set := t.roles[role]
	out := make([]Permission, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	return out
}

// Gate answers authorization questions against a Table.
type Gate struct {
	table *Table
}

func NewGate(table *Table) *Gate {
	if table == nil {
		table = DefaultTable()
	}
	return &Gate{table: table}
}

// Check reports whether role holds perm. Admin always does; so does any role
// whose set contains the wildcard.
func (g *Gate) Check(role string, perm Permission) bool {
	r := Role(role)
	if r == RoleAdmin {
		return true
	}
	set, ok := g.table.roles[r]
	if !ok {
		return false
	}
	if _, ok := set[perm]; ok {
		return true
	}
	_, ok = set[Wildcard]
	return ok
}

// Require returns a forbidden error when Check is false.
func (g *Gate) Require(role string, perm Permission) error {
	if g.Check(role, perm) {
		return nil
	}
	return dErrors.New(dErrors.CodeForbidden, fmt.Sprintf("permission denied: %s required", perm))
}
