package model

import "time"

// PRStatus represents the state of a pull request.
type PRStatus string

const (
	PRStatusActive    PRStatus = "active"
	PRStatusCompleted PRStatus = "completed"
	PRStatusAbandoned PRStatus = "abandoned"
)

// PullRequest is a pull request snapshot scoped to one repository of one
// project. Repository and creator IDs are opaque strings compared for
// equality only.
type PullRequest struct {
	ID             int
	Title          string
	Status         PRStatus
	CreatedBy      string
	CreatorID      string
	CreationDate   time.Time
	RepositoryID   string
	RepositoryName string
	URL            string
}
