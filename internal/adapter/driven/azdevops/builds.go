package azdevops

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/pvanburen/azpanel/internal/domain/model"
)

type buildJSON struct {
	ID          int       `json:"id"`
	BuildNumber string    `json:"buildNumber"`
	Status      string    `json:"status"`
	Result      string    `json:"result"`
	QueueTime   time.Time `json:"queueTime"`
	StartTime   time.Time `json:"startTime"`
	FinishTime  time.Time `json:"finishTime"`
}

// BuildsForProject returns builds from the last `days` days. Unfinished
// builds come back with a zero FinishTime.
func (c *Client) BuildsForProject(ctx context.Context, projectID string, days int) ([]model.Build, error) {
	minTime := minTimeParam(time.Now(), days)
	endpoint := fmt.Sprintf("%s/_apis/build/builds?minTime=%s&api-version=%s", projectID, url.QueryEscape(minTime), apiVersionCore)

	var page valueList[buildJSON]
	if err := c.getCore(ctx, endpoint, &page); err != nil {
		return nil, err
	}

	builds := make([]model.Build, 0, len(page.Value))
	for _, b := range page.Value {
		builds = append(builds, model.Build{
			ID:          b.ID,
			BuildNumber: b.BuildNumber,
			Status:      b.Status,
			Result:      model.BuildResult(b.Result),
			QueueTime:   b.QueueTime,
			StartTime:   b.StartTime,
			FinishTime:  b.FinishTime,
		})
	}
	return builds, nil
}
