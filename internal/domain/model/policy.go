package model

// PolicyType describes the kind of a branch policy configuration.
type PolicyType struct {
	ID          string
	DisplayName string
}

// PolicyScope restricts a policy to refs of a repository.
type PolicyScope struct {
	RefName      string
	MatchKind    string // exact or prefix
	RepositoryID string
}

// PolicySettings holds the settings common to the policy types the
// dashboard displays. Policy types carry many more settings remotely; only
// these survive the boundary parse.
type PolicySettings struct {
	MinimumApproverCount int
	CreatorVoteCounts    bool
	AllowDownvotes       bool
	BuildDefinitionID    int
	Scope                []PolicyScope
}

// Policy is a branch policy configuration scoped to one project.
type Policy struct {
	ID         int
	URL        string
	Type       PolicyType
	IsBlocking bool
	IsEnabled  bool
	IsDeleted  bool
	Settings   PolicySettings
}
