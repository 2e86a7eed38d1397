package model

import "time"

// DeploymentStatus is the outcome of a classic release deployment.
type DeploymentStatus string

const (
	DeploymentSucceeded          DeploymentStatus = "succeeded"
	DeploymentFailed             DeploymentStatus = "failed"
	DeploymentPartiallySucceeded DeploymentStatus = "partiallySucceeded"
	DeploymentInProgress         DeploymentStatus = "inProgress"
	DeploymentNotDeployed        DeploymentStatus = "notDeployed"
)

// Deployment is a classic release deployment snapshot scoped to one project.
type Deployment struct {
	ID          int
	ReleaseName string
	Status      DeploymentStatus
	QueuedOn    time.Time
}
