package azdevops

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/pvanburen/azpanel/internal/domain/model"
	"github.com/pvanburen/azpanel/internal/domain/port/driven"
)

type pullRequestJSON struct {
	PullRequestID int    `json:"pullRequestId"`
	Title         string `json:"title"`
	Status        string `json:"status"`
	CreatedBy     struct {
		DisplayName string `json:"displayName"`
		ID          string `json:"id"`
	} `json:"createdBy"`
	CreationDate time.Time `json:"creationDate"`
	Repository   struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"repository"`
	Links struct {
		Self struct {
			Href string `json:"href"`
		} `json:"self"`
	} `json:"_links"`
}

// PullRequestsForProject returns pull requests across all repositories of
// a project created within the last `days` days. The listing fans out per
// repository in batches of 10; a repository whose listing fails (deleted,
// permissions changed) contributes nothing instead of failing the whole
// project.
func (c *Client) PullRequestsForProject(ctx context.Context, projectID string, days int) ([]model.PullRequest, error) {
	repos, err := c.RepositoriesForProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if len(repos) == 0 {
		return []model.PullRequest{}, nil
	}

	cutoff := time.Now().AddDate(0, 0, -days)

	perRepo, err := forEachBatch(ctx, repos, repoPRBatchSize, func(ctx context.Context, repo model.Repository) ([]model.PullRequest, error) {
		endpoint := fmt.Sprintf("%s/_apis/git/repositories/%s/pullrequests?searchCriteria.status=all&api-version=%s",
			projectID, repo.ID, apiVersionCore)

		var page valueList[pullRequestJSON]
		err := c.getCore(ctx, endpoint, &page)
		if err := softFail(err, "pull request fetch skipped", "project", projectID, "repository", repo.ID); err != nil {
			return nil, err
		}
		if err != nil {
			return nil, nil
		}

		var prs []model.PullRequest
		for _, pr := range page.Value {
			if pr.CreationDate.After(cutoff) {
				prs = append(prs, mapPullRequest(pr))
			}
		}
		return prs, nil
	})
	if err != nil {
		return nil, err
	}

	all := []model.PullRequest{}
	for _, prs := range perRepo {
		all = append(all, prs...)
	}
	return all, nil
}

// PullRequestsForUser returns pull requests created by the given user
// across the given projects within the last `days` days, newest first.
// The per-project query is heavier than the per-repository one, so the
// fan-out batch is smaller. A 404 for a project the user cannot access is
// dropped without even a log line.
func (c *Client) PullRequestsForUser(ctx context.Context, userID string, projects []model.ProjectRef, days int) ([]model.PullRequest, error) {
	if userID == "" || len(projects) == 0 {
		return []model.PullRequest{}, nil
	}

	cutoff := time.Now().AddDate(0, 0, -days)

	perProject, err := forEachBatch(ctx, projects, userPRBatchSize, func(ctx context.Context, project model.ProjectRef) ([]model.PullRequest, error) {
		endpoint := fmt.Sprintf("%s/_apis/git/pullrequests?searchCriteria.creatorId=%s&searchCriteria.status=all&api-version=%s",
			project.ID, url.QueryEscape(userID), apiVersionCore)

		var page valueList[pullRequestJSON]
		err := c.getCore(ctx, endpoint, &page)
		if driven.IsNotFound(err) {
			return nil, nil
		}
		if err := softFail(err, "user pull request fetch skipped", "user", userID, "project", project.ID); err != nil {
			return nil, err
		}
		if err != nil {
			return nil, nil
		}

		prs := make([]model.PullRequest, 0, len(page.Value))
		for _, pr := range page.Value {
			prs = append(prs, mapPullRequest(pr))
		}
		return prs, nil
	})
	if err != nil {
		return nil, err
	}

	all := []model.PullRequest{}
	for _, prs := range perProject {
		for _, pr := range prs {
			if !pr.CreationDate.Before(cutoff) {
				all = append(all, pr)
			}
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreationDate.After(all[j].CreationDate)
	})
	return all, nil
}

func mapPullRequest(pr pullRequestJSON) model.PullRequest {
	return model.PullRequest{
		ID:             pr.PullRequestID,
		Title:          pr.Title,
		Status:         model.PRStatus(pr.Status),
		CreatedBy:      pr.CreatedBy.DisplayName,
		CreatorID:      pr.CreatedBy.ID,
		CreationDate:   pr.CreationDate,
		RepositoryID:   pr.Repository.ID,
		RepositoryName: pr.Repository.Name,
		URL:            pr.Links.Self.Href,
	}
}
