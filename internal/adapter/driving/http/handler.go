// Package httphandler is the HTTP driving adapter serving the JSON API.
package httphandler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/pvanburen/azpanel/internal/application"
	"github.com/pvanburen/azpanel/internal/domain/model"
	"github.com/pvanburen/azpanel/internal/domain/port/driven"
)

// Credential store keys for the persistent settings endpoint.
const (
	credentialPAT          = "pat"
	credentialOrganization = "organization"
)

// Lookback windows for the pull request listings, in days. The per-user
// listing reaches further back because it powers a profile view rather
// than a recent-activity chart.
const (
	projectPRWindowDays = 30
	userPRWindowDays    = 90
)

// SessionController is the slice of the credential session the token
// endpoints drive.
type SessionController interface {
	SetOverride(token string)
	ClearOverride()
	SetDefault(token string)
}

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	provider  *application.ClientProvider
	stats     *application.StatsService
	session   SessionController
	creds     driven.CredentialStore
	newClient func(org string) driven.DevOpsReader
	logger    *slog.Logger
}

// NewHandler creates a Handler with all required dependencies. newClient
// builds a fresh DevOps client for an organization; it is invoked when the
// credentials endpoint changes the configured organization.
func NewHandler(
	provider *application.ClientProvider,
	stats *application.StatsService,
	session SessionController,
	creds driven.CredentialStore,
	newClient func(org string) driven.DevOpsReader,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		provider:  provider,
		stats:     stats,
		session:   session,
		creds:     creds,
		newClient: newClient,
		logger:    logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and
// wrapped with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.HandleFunc("GET /api/v1/dashboard", h.Dashboard)

	mux.HandleFunc("GET /api/v1/projects", h.ListProjects)
	mux.HandleFunc("GET /api/v1/projects/{id}", h.GetProject)
	mux.HandleFunc("GET /api/v1/projects/{id}/users", h.ListProjectUsers)
	mux.HandleFunc("GET /api/v1/projects/{id}/repositories", h.ListRepositories)
	mux.HandleFunc("GET /api/v1/projects/{id}/repositories/{repoID}", h.GetRepository)
	mux.HandleFunc("GET /api/v1/projects/{id}/repositories/{repoID}/branches", h.ListBranches)
	mux.HandleFunc("GET /api/v1/projects/{id}/policies", h.ListPolicies)
	mux.HandleFunc("GET /api/v1/projects/{id}/pullrequests", h.ListProjectPullRequests)

	mux.HandleFunc("GET /api/v1/users", h.ListUsers)
	mux.HandleFunc("GET /api/v1/users/{descriptor}", h.GetUser)
	mux.HandleFunc("GET /api/v1/users/{descriptor}/pullrequests", h.ListUserPullRequests)

	mux.HandleFunc("POST /api/v1/token", h.SetToken)
	mux.HandleFunc("DELETE /api/v1/token", h.ClearToken)
	mux.HandleFunc("POST /api/v1/credentials", h.SaveCredentials)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// Dashboard returns the aggregated organization statistics.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.DashboardStats(r.Context())
	if err != nil {
		writeDomainError(w, h.logger, "failed to compute dashboard stats", err)
		return
	}

	writeJSON(w, http.StatusOK, toDashboardResponse(stats))
}

// ListProjects returns every project in the organization.
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.provider.Get().Projects(r.Context())
	if err != nil {
		writeDomainError(w, h.logger, "failed to list projects", err)
		return
	}

	resp := make([]ProjectResponse, 0, len(projects))
	for _, p := range projects {
		resp = append(resp, toProjectResponse(p))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetProject returns a single project by ID or name.
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	project, err := h.provider.Get().Project(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, h.logger, "failed to get project", err)
		return
	}

	writeJSON(w, http.StatusOK, toProjectResponse(*project))
}

// ListProjectUsers returns the users reachable through the project's group
// membership graph. The project is resolved first because the group scope
// lookup needs its canonical name.
func (h *Handler) ListProjectUsers(w http.ResponseWriter, r *http.Request) {
	client := h.provider.Get()

	project, err := client.Project(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, h.logger, "failed to get project", err)
		return
	}

	users, err := client.UsersForProject(r.Context(), project.ID, project.Name)
	if err != nil {
		writeDomainError(w, h.logger, "failed to list project users", err)
		return
	}

	resp := make([]UserResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, toUserResponse(u))
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListRepositories returns the project's git repositories.
func (h *Handler) ListRepositories(w http.ResponseWriter, r *http.Request) {
	repos, err := h.provider.Get().RepositoriesForProject(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, h.logger, "failed to list repositories", err)
		return
	}

	resp := make([]RepositoryResponse, 0, len(repos))
	for _, repo := range repos {
		resp = append(resp, toRepositoryResponse(repo))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetRepository returns a single repository of a project.
func (h *Handler) GetRepository(w http.ResponseWriter, r *http.Request) {
	repo, err := h.provider.Get().Repository(r.Context(), r.PathValue("id"), r.PathValue("repoID"))
	if err != nil {
		writeDomainError(w, h.logger, "failed to get repository", err)
		return
	}

	writeJSON(w, http.StatusOK, toRepositoryResponse(*repo))
}

// ListBranches returns the repository's head refs.
func (h *Handler) ListBranches(w http.ResponseWriter, r *http.Request) {
	branches, err := h.provider.Get().Branches(r.Context(), r.PathValue("id"), r.PathValue("repoID"))
	if err != nil {
		writeDomainError(w, h.logger, "failed to list branches", err)
		return
	}

	resp := make([]BranchResponse, 0, len(branches))
	for _, b := range branches {
		resp = append(resp, toBranchResponse(b))
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListPolicies returns the project's branch policy configurations.
func (h *Handler) ListPolicies(w http.ResponseWriter, r *http.Request) {
	policies, err := h.provider.Get().BranchPolicies(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, h.logger, "failed to list policies", err)
		return
	}

	resp := make([]PolicyResponse, 0, len(policies))
	for _, p := range policies {
		resp = append(resp, toPolicyResponse(p))
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListProjectPullRequests returns recent pull requests across all
// repositories of a project.
func (h *Handler) ListProjectPullRequests(w http.ResponseWriter, r *http.Request) {
	prs, err := h.provider.Get().PullRequestsForProject(r.Context(), r.PathValue("id"), projectPRWindowDays)
	if err != nil {
		writeDomainError(w, h.logger, "failed to list project pull requests", err)
		return
	}

	resp := make([]PullRequestResponse, 0, len(prs))
	for _, pr := range prs {
		resp = append(resp, toPullRequestResponse(pr))
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListUsers returns the organization's users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.provider.Get().Users(r.Context())
	if err != nil {
		writeDomainError(w, h.logger, "failed to list users", err)
		return
	}

	resp := make([]UserResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, toUserResponse(u))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetUser returns a single user by graph descriptor.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.provider.Get().User(r.Context(), r.PathValue("descriptor"))
	if err != nil {
		writeDomainError(w, h.logger, "failed to get user", err)
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(*user))
}

// ListUserPullRequests returns recent pull requests created by a user
// across the projects their entitlement covers, newest first.
func (h *Handler) ListUserPullRequests(w http.ResponseWriter, r *http.Request) {
	client := h.provider.Get()

	user, err := client.User(r.Context(), r.PathValue("descriptor"))
	if err != nil {
		writeDomainError(w, h.logger, "failed to get user", err)
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	refs := make([]model.ProjectRef, 0, len(user.ProjectEntitlements))
	for _, e := range user.ProjectEntitlements {
		refs = append(refs, e.ProjectRef)
	}

	prs, err := client.PullRequestsForUser(r.Context(), user.ID, refs, userPRWindowDays)
	if err != nil {
		writeDomainError(w, h.logger, "failed to list user pull requests", err)
		return
	}

	resp := make([]PullRequestResponse, 0, len(prs))
	for _, pr := range prs {
		resp = append(resp, toPullRequestResponse(pr))
	}

	writeJSON(w, http.StatusOK, resp)
}

// SetToken installs a session-scoped token override. The override takes
// precedence over the configured default until cleared or invalidated by a
// 401.
func (h *Handler) SetToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token := strings.TrimSpace(req.Token)
	if token == "" {
		writeError(w, http.StatusBadRequest, "token must not be empty")
		return
	}

	h.session.SetOverride(token)
	w.WriteHeader(http.StatusNoContent)
}

// ClearToken removes the session-scoped token override, falling back to
// the configured default.
func (h *Handler) ClearToken(w http.ResponseWriter, _ *http.Request) {
	h.session.ClearOverride()
	w.WriteHeader(http.StatusNoContent)
}

// SaveCredentials persists the PAT and organization to the encrypted
// store and applies them to the running process. A changed organization
// hot-swaps the DevOps client so the next request targets the new
// organization without a restart.
func (h *Handler) SaveCredentials(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pat := strings.TrimSpace(req.PAT)
	org := strings.TrimSpace(req.Organization)
	if pat == "" && org == "" {
		writeError(w, http.StatusBadRequest, "nothing to save")
		return
	}

	if pat != "" {
		if err := h.creds.Set(r.Context(), credentialPAT, pat); err != nil {
			h.logger.Error("failed to store pat", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to store credentials")
			return
		}
		h.session.SetDefault(pat)
	}

	if org != "" {
		if err := h.creds.Set(r.Context(), credentialOrganization, org); err != nil {
			h.logger.Error("failed to store organization", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to store credentials")
			return
		}
		if org != h.provider.Org() {
			h.provider.Replace(h.newClient(org), org)
			h.logger.Info("organization switched", "organization", org)
		}
	}

	w.WriteHeader(http.StatusNoContent)
}
