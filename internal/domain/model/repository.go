package model

// Repository is a git repository within a project. URL is the browsable
// web URL, not the API resource URL.
type Repository struct {
	ID            string
	Name          string
	URL           string
	DefaultBranch string
	Size          int64
}

// Branch is a head ref of a repository. Name carries no refs/heads/ prefix.
type Branch struct {
	Name     string
	ObjectID string // commit SHA
	URL      string
}
