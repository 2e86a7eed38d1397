package azdevops

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyticsBuildOutcomes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/_odata/v3.0-preview/Builds", func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.RawQuery, "groupby")
		fmt.Fprint(w, `{"value":[
			{"BuildOutcome":"Succeed","Count":42},
			{"BuildOutcome":"Failed","Count":7}
		]}`)
	})

	c := newTestClient(t, mux)

	outcomes, err := c.AnalyticsBuildOutcomes(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Succeed": 42, "Failed": 7}, outcomes)
}

func TestAnalyticsBuildOutcomes_SurfaceAbsent(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/_odata/v3.0-preview/Builds", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no analytics here", http.StatusNotFound)
	})

	c := newTestClient(t, mux)

	outcomes, err := c.AnalyticsBuildOutcomes(context.Background(), 30)
	require.NoError(t, err, "organizations without the extension degrade to nil")
	assert.Nil(t, outcomes)
}

func TestAnalyticsBuildOutcomes_AuthFailurePropagates(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/_odata/v3.0-preview/Builds", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	c := newTestClient(t, mux)

	_, err := c.AnalyticsBuildOutcomes(context.Background(), 30)
	require.Error(t, err)
}
