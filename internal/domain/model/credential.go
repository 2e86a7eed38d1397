package model

import "time"

// Credential holds a stored configuration secret. Name identifies the
// value ("pat", "organization"); Value is plaintext at the domain boundary.
type Credential struct {
	ID        int64
	Name      string
	Value     string
	UpdatedAt time.Time
}
