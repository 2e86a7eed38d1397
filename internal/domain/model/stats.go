package model

// BuildDayCount is one build-chart bucket: builds finishing on one UTC
// calendar date.
type BuildDayCount struct {
	Date   string // "Jan 2" label, UTC
	Passed int
	Failed int
}

// DeploymentMonthCount is one deployment-chart bucket, keyed by UTC month.
type DeploymentMonthCount struct {
	Month      string // three-letter month label
	Successful int
	Failed     int
}

// PRCounts summarizes pull requests by terminal status.
type PRCounts struct {
	Approved int // status "completed"
	Rejected int // status "abandoned"
}

// AccessLevelCount is one access-level histogram bucket.
type AccessLevelCount struct {
	Name  string
	Value int
}

// DashboardStats is the chart-ready aggregate the dashboard renders.
// It is derived on every request and never persisted.
type DashboardStats struct {
	TotalProjects        int
	TotalUsers           int
	TotalPRs             int
	PipelineSuccessRatio float64
	Builds               []BuildDayCount
	Deployments          []DeploymentMonthCount
	PullRequests         PRCounts
	AccessLevels         []AccessLevelCount

	// AnalyticsBuildOutcomes is opportunistic enrichment from the
	// Analytics surface; nil when the surface is unavailable.
	AnalyticsBuildOutcomes map[string]int
}
