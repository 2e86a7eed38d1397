package azdevops

import (
	"context"
	"net/url"
	"time"

	"github.com/pvanburen/azpanel/internal/domain/model"
)

type projectJSON struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	LastUpdateTime time.Time `json:"lastUpdateTime"`
}

// Projects returns every project in the organization, following the
// continuation-token response header across pages.
func (c *Client) Projects(ctx context.Context) ([]model.Project, error) {
	raw, err := collectPages(ctx, func(ctx context.Context, token string) ([]projectJSON, string, error) {
		u := c.coreURL + "/_apis/projects?$top=100&api-version=" + apiVersionProjects
		if token != "" {
			u += "&continuationToken=" + url.QueryEscape(token)
		}

		var page valueList[projectJSON]
		next, err := c.getPage(ctx, u, &page)
		if err != nil {
			return nil, "", err
		}
		return page.Value, next, nil
	})
	if err != nil {
		return nil, err
	}

	projects := make([]model.Project, 0, len(raw))
	for _, p := range raw {
		projects = append(projects, mapProject(p))
	}
	return projects, nil
}

// Project returns a single project by ID or name.
func (c *Client) Project(ctx context.Context, idOrName string) (*model.Project, error) {
	var p projectJSON
	if err := c.getCore(ctx, "_apis/projects/"+url.PathEscape(idOrName)+"?api-version="+apiVersionProjects, &p); err != nil {
		return nil, err
	}
	project := mapProject(p)
	return &project, nil
}

func mapProject(p projectJSON) model.Project {
	return model.Project{
		ID:             p.ID,
		Name:           p.Name,
		Description:    p.Description,
		LastUpdateTime: p.LastUpdateTime,
	}
}
