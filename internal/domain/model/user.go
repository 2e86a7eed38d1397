package model

import "time"

// AccessLevelUnknown is the license display name Azure DevOps reports for
// identities without a resolvable entitlement. Users carrying it are
// excluded from every user-facing aggregate.
const AccessLevelUnknown = "Unknown"

// ProjectRef identifies a project inside an entitlement.
type ProjectRef struct {
	ID   string
	Name string
}

// ProjectEntitlement ties a user to a project with a human role label.
// Role is a comma-joined union of the group-derived roles the user reaches
// the project through.
type ProjectEntitlement struct {
	ProjectRef ProjectRef
	Role       string
}

// User is the merge of a graph identity with its user entitlement, joined
// on lowercased principal name (global listing) or descriptor
// (project-scoped listing). ID, AccessLevel, and the date fields come from
// the entitlement and are zero-valued when no entitlement matched.
type User struct {
	ID               string // entitlement GUID
	PrincipalName    string // email
	Descriptor       string // opaque stable graph identifier
	DisplayName      string
	AvatarURL        string
	AccessLevel      string
	DateCreated      time.Time
	LastAccessedDate time.Time

	ProjectEntitlements []ProjectEntitlement
}

// HasUsableAccessLevel reports whether the user carries entitlement data
// that qualifies it for user-facing listings.
func (u User) HasUsableAccessLevel() bool {
	return u.AccessLevel != "" && u.AccessLevel != AccessLevelUnknown
}
