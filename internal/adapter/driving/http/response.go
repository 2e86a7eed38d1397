package httphandler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/pvanburen/azpanel/internal/domain/model"
	"github.com/pvanburen/azpanel/internal/domain/port/driven"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeDomainError maps a driven-port error to its HTTP shape: auth
// failures become 401 with a machine-readable code so the frontend can
// prompt for a token, missing resources become 404, everything else is a
// logged 500.
func writeDomainError(w http.ResponseWriter, logger *slog.Logger, msg string, err error) {
	switch {
	case driven.IsAuthFailure(err):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error(), Code: "token_required"})
	case driven.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		logger.Error(msg, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// ProjectResponse is the JSON representation of a team project.
type ProjectResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	LastUpdateTime string `json:"last_update_time"`
}

// ProjectRefResponse identifies a project inside an entitlement.
type ProjectRefResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ProjectEntitlementResponse ties a user to a project with a role label.
type ProjectEntitlementResponse struct {
	Project ProjectRefResponse `json:"project"`
	Role    string             `json:"role"`
}

// UserResponse is the JSON representation of an organization user.
type UserResponse struct {
	ID                  string                       `json:"id"`
	PrincipalName       string                       `json:"principal_name"`
	Descriptor          string                       `json:"descriptor"`
	DisplayName         string                       `json:"display_name"`
	AvatarURL           string                       `json:"avatar_url"`
	AccessLevel         string                       `json:"access_level"`
	DateCreated         string                       `json:"date_created,omitempty"`
	LastAccessedDate    string                       `json:"last_accessed_date,omitempty"`
	ProjectEntitlements []ProjectEntitlementResponse `json:"project_entitlements"`
}

// RepositoryResponse is the JSON representation of a git repository.
type RepositoryResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	URL           string `json:"url"`
	DefaultBranch string `json:"default_branch"`
	Size          int64  `json:"size"`
}

// BranchResponse is the JSON representation of a head ref.
type BranchResponse struct {
	Name     string `json:"name"`
	ObjectID string `json:"object_id"`
	URL      string `json:"url"`
}

// PolicyResponse is the JSON representation of a branch policy configuration.
type PolicyResponse struct {
	ID         int                    `json:"id"`
	Type       string                 `json:"type"`
	IsBlocking bool                   `json:"is_blocking"`
	IsEnabled  bool                   `json:"is_enabled"`
	Settings   PolicySettingsResponse `json:"settings"`
}

// PolicySettingsResponse carries the policy settings the dashboard displays.
type PolicySettingsResponse struct {
	MinimumApproverCount int                   `json:"minimum_approver_count"`
	CreatorVoteCounts    bool                  `json:"creator_vote_counts"`
	AllowDownvotes       bool                  `json:"allow_downvotes"`
	BuildDefinitionID    int                   `json:"build_definition_id"`
	Scope                []PolicyScopeResponse `json:"scope"`
}

// PolicyScopeResponse restricts a policy to refs of a repository.
type PolicyScopeResponse struct {
	RefName      string `json:"ref_name"`
	MatchKind    string `json:"match_kind"`
	RepositoryID string `json:"repository_id"`
}

// PullRequestResponse is the JSON representation of a pull request.
type PullRequestResponse struct {
	ID             int    `json:"id"`
	Title          string `json:"title"`
	Status         string `json:"status"`
	CreatedBy      string `json:"created_by"`
	CreationDate   string `json:"creation_date"`
	RepositoryID   string `json:"repository_id"`
	RepositoryName string `json:"repository_name"`
	URL            string `json:"url"`
}

// BuildDayCountResponse is one build-chart bucket.
type BuildDayCountResponse struct {
	Date   string `json:"date"`
	Passed int    `json:"passed"`
	Failed int    `json:"failed"`
}

// DeploymentMonthCountResponse is one deployment-chart bucket.
type DeploymentMonthCountResponse struct {
	Month      string `json:"month"`
	Successful int    `json:"successful"`
	Failed     int    `json:"failed"`
}

// PRCountsResponse summarizes pull requests by terminal status.
type PRCountsResponse struct {
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}

// AccessLevelCountResponse is one access-level histogram bucket.
type AccessLevelCountResponse struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// DashboardResponse is the chart-ready dashboard aggregate.
type DashboardResponse struct {
	TotalProjects          int                            `json:"total_projects"`
	TotalUsers             int                            `json:"total_users"`
	TotalPRs               int                            `json:"total_prs"`
	PipelineSuccessRatio   float64                        `json:"pipeline_success_ratio"`
	Builds                 []BuildDayCountResponse        `json:"builds"`
	Deployments            []DeploymentMonthCountResponse `json:"deployments"`
	PullRequests           PRCountsResponse               `json:"pull_requests"`
	AccessLevels           []AccessLevelCountResponse     `json:"access_levels"`
	AnalyticsBuildOutcomes map[string]int                 `json:"analytics_build_outcomes,omitempty"`
}

// TokenRequest is the JSON body for the session token endpoint.
type TokenRequest struct {
	Token string `json:"token"`
}

// CredentialsRequest is the JSON body for the persistent credentials
// endpoint. Empty fields are left unchanged.
type CredentialsRequest struct {
	PAT          string `json:"pat"`
	Organization string `json:"organization"`
}

func toProjectResponse(p model.Project) ProjectResponse {
	return ProjectResponse{
		ID:             p.ID,
		Name:           p.Name,
		Description:    p.Description,
		LastUpdateTime: p.LastUpdateTime.UTC().Format(time.RFC3339),
	}
}

func toUserResponse(u model.User) UserResponse {
	entitlements := make([]ProjectEntitlementResponse, 0, len(u.ProjectEntitlements))
	for _, e := range u.ProjectEntitlements {
		entitlements = append(entitlements, ProjectEntitlementResponse{
			Project: ProjectRefResponse{ID: e.ProjectRef.ID, Name: e.ProjectRef.Name},
			Role:    e.Role,
		})
	}

	resp := UserResponse{
		ID:                  u.ID,
		PrincipalName:       u.PrincipalName,
		Descriptor:          u.Descriptor,
		DisplayName:         u.DisplayName,
		AvatarURL:           u.AvatarURL,
		AccessLevel:         u.AccessLevel,
		ProjectEntitlements: entitlements,
	}
	if !u.DateCreated.IsZero() {
		resp.DateCreated = u.DateCreated.UTC().Format(time.RFC3339)
	}
	if !u.LastAccessedDate.IsZero() {
		resp.LastAccessedDate = u.LastAccessedDate.UTC().Format(time.RFC3339)
	}
	return resp
}

func toRepositoryResponse(r model.Repository) RepositoryResponse {
	return RepositoryResponse{
		ID:            r.ID,
		Name:          r.Name,
		URL:           r.URL,
		DefaultBranch: r.DefaultBranch,
		Size:          r.Size,
	}
}

func toBranchResponse(b model.Branch) BranchResponse {
	return BranchResponse{
		Name:     b.Name,
		ObjectID: b.ObjectID,
		URL:      b.URL,
	}
}

func toPolicyResponse(p model.Policy) PolicyResponse {
	scope := make([]PolicyScopeResponse, 0, len(p.Settings.Scope))
	for _, s := range p.Settings.Scope {
		scope = append(scope, PolicyScopeResponse{
			RefName:      s.RefName,
			MatchKind:    s.MatchKind,
			RepositoryID: s.RepositoryID,
		})
	}

	return PolicyResponse{
		ID:         p.ID,
		Type:       p.Type.DisplayName,
		IsBlocking: p.IsBlocking,
		IsEnabled:  p.IsEnabled,
		Settings: PolicySettingsResponse{
			MinimumApproverCount: p.Settings.MinimumApproverCount,
			CreatorVoteCounts:    p.Settings.CreatorVoteCounts,
			AllowDownvotes:       p.Settings.AllowDownvotes,
			BuildDefinitionID:    p.Settings.BuildDefinitionID,
			Scope:                scope,
		},
	}
}

func toPullRequestResponse(pr model.PullRequest) PullRequestResponse {
	return PullRequestResponse{
		ID:             pr.ID,
		Title:          pr.Title,
		Status:         string(pr.Status),
		CreatedBy:      pr.CreatedBy,
		CreationDate:   pr.CreationDate.UTC().Format(time.RFC3339),
		RepositoryID:   pr.RepositoryID,
		RepositoryName: pr.RepositoryName,
		URL:            pr.URL,
	}
}

func toDashboardResponse(stats *model.DashboardStats) DashboardResponse {
	builds := make([]BuildDayCountResponse, 0, len(stats.Builds))
	for _, b := range stats.Builds {
		builds = append(builds, BuildDayCountResponse{Date: b.Date, Passed: b.Passed, Failed: b.Failed})
	}

	deployments := make([]DeploymentMonthCountResponse, 0, len(stats.Deployments))
	for _, d := range stats.Deployments {
		deployments = append(deployments, DeploymentMonthCountResponse{
			Month:      d.Month,
			Successful: d.Successful,
			Failed:     d.Failed,
		})
	}

	accessLevels := make([]AccessLevelCountResponse, 0, len(stats.AccessLevels))
	for _, a := range stats.AccessLevels {
		accessLevels = append(accessLevels, AccessLevelCountResponse{Name: a.Name, Value: a.Value})
	}

	return DashboardResponse{
		TotalProjects:        stats.TotalProjects,
		TotalUsers:           stats.TotalUsers,
		TotalPRs:             stats.TotalPRs,
		PipelineSuccessRatio: stats.PipelineSuccessRatio,
		Builds:               builds,
		Deployments:          deployments,
		PullRequests: PRCountsResponse{
			Approved: stats.PullRequests.Approved,
			Rejected: stats.PullRequests.Rejected,
		},
		AccessLevels:           accessLevels,
		AnalyticsBuildOutcomes: stats.AnalyticsBuildOutcomes,
	}
}
