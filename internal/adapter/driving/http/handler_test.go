package httphandler_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httphandler "github.com/pvanburen/azpanel/internal/adapter/driving/http"
	"github.com/pvanburen/azpanel/internal/application"
	"github.com/pvanburen/azpanel/internal/domain/model"
	"github.com/pvanburen/azpanel/internal/domain/port/driven"
)

// --- Mock implementations ---

type mockReader struct {
	projects     []model.Project
	project      *model.Project
	users        []model.User
	projectUsers []model.User
	user         *model.User
	repos        []model.Repository
	branches     []model.Branch
	policies     []model.Policy
	prs          []model.PullRequest
	userPRs      []model.PullRequest

	err error
}

var _ driven.DevOpsReader = (*mockReader)(nil)

func (m *mockReader) Projects(_ context.Context) ([]model.Project, error) {
	return m.projects, m.err
}
func (m *mockReader) Project(_ context.Context, _ string) (*model.Project, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.project == nil {
		return nil, &driven.NotFoundError{Resource: "project"}
	}
	return m.project, nil
}
func (m *mockReader) Users(_ context.Context) ([]model.User, error) {
	return m.users, m.err
}
func (m *mockReader) UsersForProject(_ context.Context, _, _ string) ([]model.User, error) {
	return m.projectUsers, m.err
}
func (m *mockReader) User(_ context.Context, _ string) (*model.User, error) {
	return m.user, m.err
}
func (m *mockReader) RepositoriesForProject(_ context.Context, _ string) ([]model.Repository, error) {
	return m.repos, m.err
}
func (m *mockReader) Repository(_ context.Context, _, repoID string) (*model.Repository, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, r := range m.repos {
		if r.ID == repoID {
			return &r, nil
		}
	}
	return nil, &driven.NotFoundError{Resource: "repository " + repoID}
}
func (m *mockReader) Branches(_ context.Context, _, _ string) ([]model.Branch, error) {
	return m.branches, m.err
}
func (m *mockReader) BranchPolicies(_ context.Context, _ string) ([]model.Policy, error) {
	return m.policies, m.err
}
func (m *mockReader) BuildsForProject(_ context.Context, _ string, _ int) ([]model.Build, error) {
	return nil, nil
}
func (m *mockReader) DeploymentsForProject(_ context.Context, _ string, _ int) ([]model.Deployment, error) {
	return nil, nil
}
func (m *mockReader) PullRequestsForProject(_ context.Context, _ string, _ int) ([]model.PullRequest, error) {
	return m.prs, m.err
}
func (m *mockReader) PullRequestsForUser(_ context.Context, _ string, _ []model.ProjectRef, _ int) ([]model.PullRequest, error) {
	return m.userPRs, m.err
}
func (m *mockReader) AnalyticsBuildOutcomes(_ context.Context, _ int) (map[string]int, error) {
	return nil, nil
}

type mockSession struct {
	override   string
	defaultPAT string
	cleared    bool
}

func (m *mockSession) SetOverride(token string) { m.override = token }
func (m *mockSession) ClearOverride()           { m.cleared = true }
func (m *mockSession) SetDefault(token string)  { m.defaultPAT = token }

type mockCredStore struct {
	saved map[string]string
	err   error
}

func (m *mockCredStore) Set(_ context.Context, name, plaintext string) error {
	if m.err != nil {
		return m.err
	}
	if m.saved == nil {
		m.saved = make(map[string]string)
	}
	m.saved[name] = plaintext
	return nil
}
func (m *mockCredStore) Get(_ context.Context, _ string) (string, error) { return "", m.err }
func (m *mockCredStore) List(_ context.Context) ([]model.Credential, error) {
	return nil, m.err
}
func (m *mockCredStore) Delete(_ context.Context, _ string) error { return m.err }

type fixture struct {
	reader    *mockReader
	session   *mockSession
	creds     *mockCredStore
	provider  *application.ClientProvider
	newOrg    string
	newReader *mockReader
	server    http.Handler
}

func newFixture(t *testing.T, reader *mockReader) *fixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &fixture{
		reader:    reader,
		session:   &mockSession{},
		creds:     &mockCredStore{},
		provider:  application.NewClientProvider(reader, "contoso"),
		newReader: &mockReader{},
	}

	stats := application.NewStatsService(f.provider)
	h := httphandler.NewHandler(f.provider, stats, f.session, f.creds, func(org string) driven.DevOpsReader {
		f.newOrg = org
		return f.newReader
	}, logger)
	f.server = httphandler.NewServeMux(h, logger)
	return f
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

// --- Tests ---

func TestHealth(t *testing.T) {
	f := newFixture(t, &mockReader{})

	rec := f.do(http.MethodGet, "/api/v1/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[httphandler.HealthResponse](t, rec)
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestDashboard(t *testing.T) {
	f := newFixture(t, &mockReader{
		projects: []model.Project{{ID: "p1", Name: "Alpha"}},
		users:    []model.User{{ID: "u1", AccessLevel: "Basic"}},
	})

	rec := f.do(http.MethodGet, "/api/v1/dashboard", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[httphandler.DashboardResponse](t, rec)
	assert.Equal(t, 1, resp.TotalProjects)
	assert.Equal(t, 1, resp.TotalUsers)
}

func TestListProjects(t *testing.T) {
	f := newFixture(t, &mockReader{
		projects: []model.Project{
			{ID: "p1", Name: "Alpha", LastUpdateTime: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)},
			{ID: "p2", Name: "Beta"},
		},
	})

	rec := f.do(http.MethodGet, "/api/v1/projects", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[[]httphandler.ProjectResponse](t, rec)
	require.Len(t, resp, 2)
	assert.Equal(t, "Alpha", resp[0].Name)
	assert.Equal(t, "2024-06-01T00:00:00Z", resp[0].LastUpdateTime)
}

func TestListProjects_AuthFailure(t *testing.T) {
	f := newFixture(t, &mockReader{err: &driven.AuthError{}})

	rec := f.do(http.MethodGet, "/api/v1/projects", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var resp struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "token_required", resp.Code)
}

func TestGetProject_NotFound(t *testing.T) {
	f := newFixture(t, &mockReader{})

	rec := f.do(http.MethodGet, "/api/v1/projects/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListProjectUsers_ResolvesProjectName(t *testing.T) {
	f := newFixture(t, &mockReader{
		project: &model.Project{ID: "p1", Name: "Alpha"},
		projectUsers: []model.User{
			{ID: "u1", DisplayName: "Ada", AccessLevel: "Basic", ProjectEntitlements: []model.ProjectEntitlement{
				{ProjectRef: model.ProjectRef{ID: "p1", Name: "Alpha"}, Role: "Contributors"},
			}},
		},
	})

	rec := f.do(http.MethodGet, "/api/v1/projects/p1/users", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[[]httphandler.UserResponse](t, rec)
	require.Len(t, resp, 1)
	require.Len(t, resp[0].ProjectEntitlements, 1)
	assert.Equal(t, "Contributors", resp[0].ProjectEntitlements[0].Role)
}

func TestGetRepository(t *testing.T) {
	f := newFixture(t, &mockReader{
		repos: []model.Repository{{ID: "r1", Name: "api", DefaultBranch: "refs/heads/main"}},
	})

	rec := f.do(http.MethodGet, "/api/v1/projects/p1/repositories/r1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[httphandler.RepositoryResponse](t, rec)
	assert.Equal(t, "api", resp.Name)

	rec = f.do(http.MethodGet, "/api/v1/projects/p1/repositories/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetUser_NotListed(t *testing.T) {
	f := newFixture(t, &mockReader{user: nil})

	rec := f.do(http.MethodGet, "/api/v1/users/aad.abc123", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListUserPullRequests(t *testing.T) {
	f := newFixture(t, &mockReader{
		user: &model.User{
			ID:         "u1",
			Descriptor: "aad.abc123",
			ProjectEntitlements: []model.ProjectEntitlement{
				{ProjectRef: model.ProjectRef{ID: "p1", Name: "Alpha"}},
			},
		},
		userPRs: []model.PullRequest{
			{ID: 7, Title: "Fix flaky deploy", Status: model.PRStatusActive},
		},
	})

	rec := f.do(http.MethodGet, "/api/v1/users/aad.abc123/pullrequests", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[[]httphandler.PullRequestResponse](t, rec)
	require.Len(t, resp, 1)
	assert.Equal(t, 7, resp[0].ID)
}

func TestSetToken(t *testing.T) {
	f := newFixture(t, &mockReader{})

	rec := f.do(http.MethodPost, "/api/v1/token", `{"token":"  new-pat  "}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "new-pat", f.session.override)
}

func TestSetToken_Empty(t *testing.T) {
	f := newFixture(t, &mockReader{})

	rec := f.do(http.MethodPost, "/api/v1/token", `{"token":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClearToken(t *testing.T) {
	f := newFixture(t, &mockReader{})

	rec := f.do(http.MethodDelete, "/api/v1/token", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, f.session.cleared)
}

func TestSaveCredentials_PersistsAndAppliesPAT(t *testing.T) {
	f := newFixture(t, &mockReader{})

	rec := f.do(http.MethodPost, "/api/v1/credentials", `{"pat":"stored-pat"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	assert.Equal(t, "stored-pat", f.creds.saved["pat"])
	assert.Equal(t, "stored-pat", f.session.defaultPAT)
	// Organization untouched, so no client swap.
	assert.Equal(t, "contoso", f.provider.Org())
}

func TestSaveCredentials_OrganizationSwapsClient(t *testing.T) {
	f := newFixture(t, &mockReader{})

	rec := f.do(http.MethodPost, "/api/v1/credentials", `{"organization":"fabrikam"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	assert.Equal(t, "fabrikam", f.creds.saved["organization"])
	assert.Equal(t, "fabrikam", f.newOrg)
	assert.Equal(t, "fabrikam", f.provider.Org())
	assert.Same(t, driven.DevOpsReader(f.newReader), f.provider.Get())
}

func TestSaveCredentials_SameOrganizationKeepsClient(t *testing.T) {
	f := newFixture(t, &mockReader{})

	rec := f.do(http.MethodPost, "/api/v1/credentials", `{"organization":"contoso"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	assert.Empty(t, f.newOrg)
	assert.Same(t, driven.DevOpsReader(f.reader), f.provider.Get())
}

func TestSaveCredentials_Empty(t *testing.T) {
	f := newFixture(t, &mockReader{})

	rec := f.do(http.MethodPost, "/api/v1/credentials", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
