package azdevops

import (
	"context"
	"fmt"
	"strings"

	"github.com/pvanburen/azpanel/internal/domain/model"
)

type repositoryJSON struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	WebURL        string `json:"webUrl"`
	DefaultBranch string `json:"defaultBranch"`
	Size          int64  `json:"size"`
}

type refJSON struct {
	Name     string `json:"name"`
	ObjectID string `json:"objectId"`
	URL      string `json:"url"`
}

type policyJSON struct {
	ID  int    `json:"id"`
	URL string `json:"url"`
	Type struct {
		ID          string `json:"id"`
		DisplayName string `json:"displayName"`
	} `json:"type"`
	IsBlocking bool `json:"isBlocking"`
	IsEnabled  bool `json:"isEnabled"`
	IsDeleted  bool `json:"isDeleted"`
	Settings   struct {
		MinimumApproverCount int  `json:"minimumApproverCount"`
		CreatorVoteCounts    bool `json:"creatorVoteCounts"`
		AllowDownvotes       bool `json:"allowDownvotes"`
		BuildDefinitionID    int  `json:"buildDefinitionId"`
		Scope                []struct {
			RefName      string `json:"refName"`
			MatchKind    string `json:"matchKind"`
			RepositoryID string `json:"repositoryId"`
		} `json:"scope"`
	} `json:"settings"`
}

// RepositoriesForProject returns the project's git repositories.
func (c *Client) RepositoriesForProject(ctx context.Context, projectID string) ([]model.Repository, error) {
	var page valueList[repositoryJSON]
	endpoint := fmt.Sprintf("%s/_apis/git/repositories?api-version=%s", projectID, apiVersionCore)
	if err := c.getCore(ctx, endpoint, &page); err != nil {
		return nil, err
	}

	repos := make([]model.Repository, 0, len(page.Value))
	for _, r := range page.Value {
		repos = append(repos, mapRepository(r))
	}
	return repos, nil
}

// Repository returns a single repository of a project.
func (c *Client) Repository(ctx context.Context, projectID, repositoryID string) (*model.Repository, error) {
	var r repositoryJSON
	endpoint := fmt.Sprintf("%s/_apis/git/repositories/%s?api-version=%s", projectID, repositoryID, apiVersionCore)
	if err := c.getCore(ctx, endpoint, &r); err != nil {
		return nil, err
	}
	repo := mapRepository(r)
	return &repo, nil
}

// Branches returns the repository's head refs with the refs/heads/ prefix
// stripped from names.
func (c *Client) Branches(ctx context.Context, projectID, repositoryID string) ([]model.Branch, error) {
	var page valueList[refJSON]
	endpoint := fmt.Sprintf("%s/_apis/git/repositories/%s/refs?filter=heads/&api-version=%s", projectID, repositoryID, apiVersionCore)
	if err := c.getCore(ctx, endpoint, &page); err != nil {
		return nil, err
	}

	branches := make([]model.Branch, 0, len(page.Value))
	for _, ref := range page.Value {
		branches = append(branches, model.Branch{
			Name:     strings.TrimPrefix(ref.Name, "refs/heads/"),
			ObjectID: ref.ObjectID,
			URL:      ref.URL,
		})
	}
	return branches, nil
}

// BranchPolicies returns the project's branch policy configurations.
func (c *Client) BranchPolicies(ctx context.Context, projectID string) ([]model.Policy, error) {
	var page valueList[policyJSON]
	endpoint := fmt.Sprintf("%s/_apis/policy/configurations?api-version=%s", projectID, apiVersionCore)
	if err := c.getCore(ctx, endpoint, &page); err != nil {
		return nil, err
	}

	policies := make([]model.Policy, 0, len(page.Value))
	for _, p := range page.Value {
		policies = append(policies, mapPolicy(p))
	}
	return policies, nil
}

func mapRepository(r repositoryJSON) model.Repository {
	return model.Repository{
		ID:            r.ID,
		Name:          r.Name,
		URL:           r.WebURL,
		DefaultBranch: r.DefaultBranch,
		Size:          r.Size,
	}
}

func mapPolicy(p policyJSON) model.Policy {
	scope := make([]model.PolicyScope, 0, len(p.Settings.Scope))
	for _, s := range p.Settings.Scope {
		scope = append(scope, model.PolicyScope{
			RefName:      s.RefName,
			MatchKind:    s.MatchKind,
			RepositoryID: s.RepositoryID,
		})
	}

	return model.Policy{
		ID:         p.ID,
		URL:        p.URL,
		Type:       model.PolicyType{ID: p.Type.ID, DisplayName: p.Type.DisplayName},
		IsBlocking: p.IsBlocking,
		IsEnabled:  p.IsEnabled,
		IsDeleted:  p.IsDeleted,
		Settings: model.PolicySettings{
			MinimumApproverCount: p.Settings.MinimumApproverCount,
			CreatorVoteCounts:    p.Settings.CreatorVoteCounts,
			AllowDownvotes:       p.Settings.AllowDownvotes,
			BuildDefinitionID:    p.Settings.BuildDefinitionID,
			Scope:                scope,
		},
	}
}
