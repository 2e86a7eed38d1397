package model

import "time"

// BuildResult is the terminal outcome of a build.
type BuildResult string

const (
	BuildSucceeded          BuildResult = "succeeded"
	BuildFailed             BuildResult = "failed"
	BuildCanceled           BuildResult = "canceled"
	BuildPartiallySucceeded BuildResult = "partiallySucceeded"
)

// Build is a pipeline run snapshot scoped to one project.
type Build struct {
	ID          int
	BuildNumber string
	Status      string // completed, inProgress, notStarted
	Result      BuildResult
	QueueTime   time.Time
	StartTime   time.Time
	FinishTime  time.Time
}
