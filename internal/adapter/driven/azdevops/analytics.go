package azdevops

import (
	"context"
	"fmt"
	"time"
)

type analyticsOutcomeJSON struct {
	BuildOutcome string `json:"BuildOutcome"`
	Count        int    `json:"Count"`
}

// AnalyticsBuildOutcomes queries the Analytics OData surface for build
// counts grouped by outcome over the last `days` days. The surface is an
// optional extension, so the result is best-effort: (nil, nil) when it is
// absent or failing. Auth failures still propagate.
func (c *Client) AnalyticsBuildOutcomes(ctx context.Context, days int) (map[string]int, error) {
	since := time.Now().UTC().AddDate(0, 0, -days).Format("2006-01-02T15:04:05Z")
	query := fmt.Sprintf("Builds?%%24apply=filter(FinishedDate%%20ge%%20%s)/groupby((BuildOutcome),%%20aggregate(%%24count%%20as%%20Count))", since)

	var page valueList[analyticsOutcomeJSON]
	ok, err := c.getAnalytics(ctx, query, &page)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	outcomes := make(map[string]int, len(page.Value))
	for _, o := range page.Value {
		outcomes[o.BuildOutcome] = o.Count
	}
	return outcomes, nil
}
