package azdevops

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pvanburen/azpanel/internal/domain/model"
)

func TestBuildsForProject(t *testing.T) {
	var gotMinTime string
	mux := http.NewServeMux()
	mux.HandleFunc("/p1/_apis/build/builds", func(w http.ResponseWriter, r *http.Request) {
		gotMinTime = r.URL.Query().Get("minTime")
		fmt.Fprint(w, `{"value":[
			{"id":10,"buildNumber":"20240601.1","status":"completed","result":"succeeded",
			 "queueTime":"2024-06-01T10:00:00Z","finishTime":"2024-06-01T10:05:00Z"},
			{"id":11,"buildNumber":"20240601.2","status":"inProgress"}
		]}`)
	})

	c := newTestClient(t, mux)

	builds, err := c.BuildsForProject(context.Background(), "p1", 30)
	require.NoError(t, err)

	require.Len(t, builds, 2)
	assert.Equal(t, model.BuildSucceeded, builds[0].Result)
	assert.False(t, builds[0].FinishTime.IsZero())
	assert.True(t, builds[1].FinishTime.IsZero(), "unfinished builds carry a zero FinishTime")

	minTime, err := time.Parse(time.RFC3339, gotMinTime)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC().AddDate(0, 0, -30), minTime, time.Minute)
}

func TestDeploymentsForProject(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/p1/_apis/release/deployments", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"value":[
			{"id":1,"release":{"name":"Release-42"},"deploymentStatus":"succeeded","queuedOn":"2024-05-01T08:00:00Z"},
			{"id":2,"release":{"name":"Release-43"},"deploymentStatus":"failed","queuedOn":"2024-05-02T08:00:00Z"}
		]}`)
	})

	c := newTestClient(t, mux)

	deployments, err := c.DeploymentsForProject(context.Background(), "p1", 90)
	require.NoError(t, err)

	require.Len(t, deployments, 2)
	assert.Equal(t, "Release-42", deployments[0].ReleaseName)
	assert.Equal(t, model.DeploymentSucceeded, deployments[0].Status)
	assert.Equal(t, model.DeploymentFailed, deployments[1].Status)
}

func TestDeploymentsForProject_NoReleasePipelines(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/p1/_apis/release/deployments", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})

	c := newTestClient(t, mux)

	deployments, err := c.DeploymentsForProject(context.Background(), "p1", 90)
	require.NoError(t, err)
	assert.Empty(t, deployments)
}

func TestDeploymentsForProject_FlakySurfaceDegrades(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/p1/_apis/release/deployments", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	c := newTestClient(t, mux)

	deployments, err := c.DeploymentsForProject(context.Background(), "p1", 90)
	require.NoError(t, err, "release surface failures short of auth degrade to empty")
	assert.Empty(t, deployments)
}

func TestDeploymentsForProject_AuthFailurePropagates(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/p1/_apis/release/deployments", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	c := newTestClient(t, mux)

	_, err := c.DeploymentsForProject(context.Background(), "p1", 90)
	require.Error(t, err)
}
