// Package application contains use-case orchestration services.
package application

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pvanburen/azpanel/internal/domain/model"
)

// dashboardProjectCap bounds how many projects feed the dashboard. Larger
// organizations get an intentionally partial dashboard rather than a fan
// of thousands of requests.
const dashboardProjectCap = 50

// Fetch windows, in days.
const (
	deploymentWindowDays  = 90
	pullRequestWindowDays = 30
	buildWindowDays       = 30
	buildChartDays        = 7
)

// StatsService aggregates projects, users, builds, deployments, and pull
// requests into the chart-ready dashboard summary. Nothing is cached:
// every call recomputes from fresh fetches.
type StatsService struct {
	provider *ClientProvider
	now      func() time.Time
}

// StatsOption configures a StatsService.
type StatsOption func(*StatsService)

// WithClock overrides the time source used for chart windowing.
func WithClock(now func() time.Time) StatsOption {
	return func(s *StatsService) { s.now = now }
}

// NewStatsService creates a StatsService over the given client provider.
func NewStatsService(provider *ClientProvider, opts ...StatsOption) *StatsService {
	s := &StatsService{
		provider: provider,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DashboardStats fetches and reduces the dashboard summary. Projects and
// users are fetched concurrently; then deployments, pull requests, and
// builds are fetched concurrently for each of the first
// dashboardProjectCap projects. All reductions are deterministic for a
// given snapshot regardless of fetch completion order.
func (s *StatsService) DashboardStats(ctx context.Context) (*model.DashboardStats, error) {
	client := s.provider.Get()
	start := time.Now()

	var (
		projects []model.Project
		users    []model.User
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		projects, err = client.Projects(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		users, err = client.Users(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	subset := projects
	if len(subset) > dashboardProjectCap {
		subset = subset[:dashboardProjectCap]
	}

	type projectDetail struct {
		deployments  []model.Deployment
		pullRequests []model.PullRequest
		builds       []model.Build
	}
	details := make([]projectDetail, len(subset))

	pg, pgctx := errgroup.WithContext(ctx)
	for i, p := range subset {
		pg.Go(func() error {
			deployments, err := client.DeploymentsForProject(pgctx, p.ID, deploymentWindowDays)
			if err != nil {
				return err
			}
			details[i].deployments = deployments
			return nil
		})
		pg.Go(func() error {
			prs, err := client.PullRequestsForProject(pgctx, p.ID, pullRequestWindowDays)
			if err != nil {
				return err
			}
			details[i].pullRequests = prs
			return nil
		})
		pg.Go(func() error {
			builds, err := client.BuildsForProject(pgctx, p.ID, buildWindowDays)
			if err != nil {
				return err
			}
			details[i].builds = builds
			return nil
		})
	}
	if err := pg.Wait(); err != nil {
		return nil, err
	}

	var (
		allDeployments []model.Deployment
		allPRs         []model.PullRequest
		allBuilds      []model.Build
	)
	for _, d := range details {
		allDeployments = append(allDeployments, d.deployments...)
		allPRs = append(allPRs, d.pullRequests...)
		allBuilds = append(allBuilds, d.builds...)
	}

	stats := &model.DashboardStats{
		TotalProjects:        len(projects),
		TotalUsers:           len(users),
		TotalPRs:             len(allPRs),
		PipelineSuccessRatio: pipelineSuccessRatio(allBuilds),
		Builds:               buildChart(allBuilds, s.now()),
		Deployments:          deploymentChart(allDeployments),
		PullRequests:         prCounts(allPRs),
		AccessLevels:         accessLevelHistogram(users),
	}

	// Opportunistic enrichment; only auth failures surface from here.
	outcomes, err := client.AnalyticsBuildOutcomes(ctx, buildWindowDays)
	if err != nil {
		return nil, err
	}
	stats.AnalyticsBuildOutcomes = outcomes

	slog.Info("dashboard stats computed",
		"projects", len(projects),
		"users", len(users),
		"builds", len(allBuilds),
		"deployments", len(allDeployments),
		"pull_requests", len(allPRs),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return stats, nil
}

// prCounts tallies pull requests by terminal status. Active PRs count
// toward the total but neither bucket.
func prCounts(prs []model.PullRequest) model.PRCounts {
	var counts model.PRCounts
	for _, pr := range prs {
		switch pr.Status {
		case model.PRStatusCompleted:
			counts.Approved++
		case model.PRStatusAbandoned:
			counts.Rejected++
		}
	}
	return counts
}

// buildChart buckets builds that finished within the last buildChartDays
// by UTC calendar date. Canceled and partially-succeeded builds fall in
// neither bucket; the chart shows clean pass/fail only.
func buildChart(builds []model.Build, now time.Time) []model.BuildDayCount {
	cutoff := now.AddDate(0, 0, -buildChartDays)

	type dayCount struct{ passed, failed int }
	byDay := make(map[string]*dayCount)

	for _, b := range builds {
		if b.FinishTime.IsZero() || !b.FinishTime.After(cutoff) {
			continue
		}
		day := b.FinishTime.UTC().Format("2006-01-02")
		if byDay[day] == nil {
			byDay[day] = &dayCount{}
		}
		switch b.Result {
		case model.BuildSucceeded:
			byDay[day].passed++
		case model.BuildFailed:
			byDay[day].failed++
		}
	}

	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	chart := make([]model.BuildDayCount, 0, len(days))
	for _, day := range days {
		d, _ := time.Parse("2006-01-02", day)
		chart = append(chart, model.BuildDayCount{
			Date:   d.Format("Jan 2"),
			Passed: byDay[day].passed,
			Failed: byDay[day].failed,
		})
	}
	return chart
}

// deploymentChart buckets deployments by UTC month, ordered
// January→December over the months actually present. A partially
// succeeded deployment counts as failed: something did not ship.
func deploymentChart(deployments []model.Deployment) []model.DeploymentMonthCount {
	type monthCount struct{ successful, failed int }
	byMonth := make(map[time.Month]*monthCount)

	for _, d := range deployments {
		month := d.QueuedOn.UTC().Month()
		if byMonth[month] == nil {
			byMonth[month] = &monthCount{}
		}
		switch d.Status {
		case model.DeploymentSucceeded:
			byMonth[month].successful++
		case model.DeploymentFailed, model.DeploymentPartiallySucceeded:
			byMonth[month].failed++
		}
	}

	chart := make([]model.DeploymentMonthCount, 0, len(byMonth))
	for month := time.January; month <= time.December; month++ {
		counts, ok := byMonth[month]
		if !ok {
			continue
		}
		chart = append(chart, model.DeploymentMonthCount{
			Month:      month.String()[:3],
			Successful: counts.successful,
			Failed:     counts.failed,
		})
	}
	return chart
}

// pipelineSuccessRatio is successful builds over all fetched builds, 0
// when there are none.
func pipelineSuccessRatio(builds []model.Build) float64 {
	if len(builds) == 0 {
		return 0
	}
	succeeded := 0
	for _, b := range builds {
		if b.Result == model.BuildSucceeded {
			succeeded++
		}
	}
	return float64(succeeded) / float64(len(builds))
}

// accessLevelHistogram counts users per access level, sorted by level
// name. The "Unknown" bucket is dropped even if raw data carries it.
func accessLevelHistogram(users []model.User) []model.AccessLevelCount {
	counts := make(map[string]int)
	for _, u := range users {
		if u.AccessLevel != "" && u.AccessLevel != model.AccessLevelUnknown {
			counts[u.AccessLevel]++
		}
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	histogram := make([]model.AccessLevelCount, 0, len(names))
	for _, name := range names {
		histogram = append(histogram, model.AccessLevelCount{Name: name, Value: counts[name]})
	}
	return histogram
}
