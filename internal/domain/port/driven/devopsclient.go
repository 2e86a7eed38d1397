// Package driven defines the driven ports (outbound dependencies) of the
// application layer.
package driven

import (
	"context"

	"github.com/pvanburen/azpanel/internal/domain/model"
)

// DevOpsReader defines the driven port for reading organizational data from
// the Azure DevOps REST surfaces. Implementations own pagination, retries,
// batched fan-out, and the identity/entitlement join; callers receive
// fully-materialized snapshots.
//
// Error contract: an invalid or expired credential surfaces as an
// *AuthError (after invalidating the session-scoped credential) and a
// missing resource as a *NotFoundError; both are matchable with errors.As.
// Best-effort sub-fetches degrade to empty contributions instead of
// failing the call.
type DevOpsReader interface {
	// Projects returns every project in the organization, in API order.
	Projects(ctx context.Context) ([]model.Project, error)
	// Project returns a single project by ID or name.
	Project(ctx context.Context, idOrName string) (*model.Project, error)

	// Users returns the organization's users: graph identities joined with
	// user entitlements. Identities without a usable access level are
	// excluded.
	Users(ctx context.Context) ([]model.User, error)
	// UsersForProject returns the users reachable through the project's
	// group membership graph, each carrying a single project entitlement
	// with the group-derived role label.
	UsersForProject(ctx context.Context, projectID, projectName string) ([]model.User, error)
	// User returns a single user by graph descriptor, refreshed against
	// the entitlement surface when one exists. Returns (nil, nil) when no
	// such user is listed.
	User(ctx context.Context, descriptor string) (*model.User, error)

	// RepositoriesForProject returns the project's git repositories.
	RepositoriesForProject(ctx context.Context, projectID string) ([]model.Repository, error)
	// Repository returns a single repository of a project.
	Repository(ctx context.Context, projectID, repositoryID string) (*model.Repository, error)
	// Branches returns the repository's head refs.
	Branches(ctx context.Context, projectID, repositoryID string) ([]model.Branch, error)
	// BranchPolicies returns the project's branch policy configurations.
	BranchPolicies(ctx context.Context, projectID string) ([]model.Policy, error)

	// BuildsForProject returns builds queued within the last `days` days.
	BuildsForProject(ctx context.Context, projectID string, days int) ([]model.Build, error)
	// DeploymentsForProject returns classic release deployments started
	// within the last `days` days. Projects without release pipelines
	// yield an empty slice, not an error.
	DeploymentsForProject(ctx context.Context, projectID string, days int) ([]model.Deployment, error)
	// PullRequestsForProject returns pull requests of every repository in
	// the project created within the last `days` days.
	PullRequestsForProject(ctx context.Context, projectID string, days int) ([]model.PullRequest, error)
	// PullRequestsForUser returns pull requests created by the given user
	// across the given projects within the last `days` days, newest first.
	PullRequestsForUser(ctx context.Context, userID string, projects []model.ProjectRef, days int) ([]model.PullRequest, error)

	// AnalyticsBuildOutcomes queries the Analytics OData surface for build
	// counts by outcome over the last `days` days. Best-effort:
	// organizations without the Analytics extension yield (nil, nil).
	// Auth failures still propagate.
	AnalyticsBuildOutcomes(ctx context.Context, days int) (map[string]int, error)
}
