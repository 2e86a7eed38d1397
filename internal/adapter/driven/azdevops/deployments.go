package azdevops

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/pvanburen/azpanel/internal/domain/model"
	"github.com/pvanburen/azpanel/internal/domain/port/driven"
)

type deploymentJSON struct {
	ID      int `json:"id"`
	Release struct {
		Name string `json:"name"`
	} `json:"release"`
	DeploymentStatus string    `json:"deploymentStatus"`
	QueuedOn         time.Time `json:"queuedOn"`
}

// DeploymentsForProject returns classic release deployments started within
// the last `days` days. The release surface 404s for projects that never
// configured release pipelines, and can be flaky for those that did, so
// every failure short of an auth failure degrades to an empty slice.
func (c *Client) DeploymentsForProject(ctx context.Context, projectID string, days int) ([]model.Deployment, error) {
	minTime := minTimeParam(time.Now(), days)
	endpoint := fmt.Sprintf("%s/_apis/release/deployments?minStartedTime=%s&api-version=%s", projectID, url.QueryEscape(minTime), apiVersionCore)

	var page valueList[deploymentJSON]
	err := c.getRelease(ctx, endpoint, &page)
	if err != nil {
		if driven.IsNotFound(err) {
			slog.Debug("project has no release pipelines", "project", projectID)
			return []model.Deployment{}, nil
		}
		if err := softFail(err, "deployment fetch skipped", "project", projectID); err != nil {
			return nil, err
		}
		return []model.Deployment{}, nil
	}

	deployments := make([]model.Deployment, 0, len(page.Value))
	for _, d := range page.Value {
		deployments = append(deployments, model.Deployment{
			ID:          d.ID,
			ReleaseName: d.Release.Name,
			Status:      model.DeploymentStatus(d.DeploymentStatus),
			QueuedOn:    d.QueuedOn,
		})
	}
	return deployments, nil
}
