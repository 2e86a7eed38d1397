// Package model contains the domain types shared across ports, adapters,
// and application services. All remote-resource types are read-only
// snapshots of Azure DevOps state; none are mutated locally.
package model

import "time"

// Project is a team project within the configured organization.
type Project struct {
	ID             string
	Name           string
	Description    string
	LastUpdateTime time.Time
}
