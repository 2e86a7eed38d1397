package azdevops

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"github.com/pvanburen/azpanel/internal/domain/model"
	"github.com/pvanburen/azpanel/internal/domain/port/driven"
)

const (
	// groupDescriptorPrefix marks graph descriptors that denote groups
	// rather than users in membership listings.
	groupDescriptorPrefix = "vssgp."

	// infraGroupMarker identifies platform-managed infrastructure groups
	// that carry no meaningful role information.
	infraGroupMarker = "team foundation"

	// allValidUsersGroup is the catch-all group every project member
	// belongs to; listing it would label everyone with the same role.
	allValidUsersGroup = "project valid users"

	// defaultRole labels members whose every group was filtered out.
	defaultRole = "Member"
)

type graphUserJSON struct {
	PrincipalName string `json:"principalName"`
	Descriptor    string `json:"descriptor"`
	DisplayName   string `json:"displayName"`
	Links         struct {
		Avatar struct {
			Href string `json:"href"`
		} `json:"avatar"`
	} `json:"_links"`
}

type entitlementJSON struct {
	ID   string `json:"id"`
	User struct {
		PrincipalName string `json:"principalName"`
		Descriptor    string `json:"descriptor"`
	} `json:"user"`
	AccessLevel struct {
		LicenseDisplayName string `json:"licenseDisplayName"`
	} `json:"accessLevel"`
	DateCreated         time.Time `json:"dateCreated"`
	LastAccessedDate    time.Time `json:"lastAccessedDate"`
	ProjectEntitlements []struct {
		ProjectRef struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"projectRef"`
	} `json:"projectEntitlements"`
}

type entitlementPageJSON struct {
	Members           []entitlementJSON `json:"members"`
	ContinuationToken string            `json:"continuationToken"`
}

type groupJSON struct {
	DisplayName string `json:"displayName"`
	Descriptor  string `json:"descriptor"`
}

type membershipJSON struct {
	MemberDescriptor string `json:"memberDescriptor"`
}

// graphUsers returns every graph identity with an email-shaped principal
// name, following the continuation-token response header. The filter
// drops service principals and build agents, which never join to an
// entitlement.
func (c *Client) graphUsers(ctx context.Context) ([]graphUserJSON, error) {
	users, err := collectPages(ctx, func(ctx context.Context, token string) ([]graphUserJSON, string, error) {
		endpoint := "_apis/graph/users?api-version=" + apiVersionGraph
		if token != "" {
			endpoint += "&continuationToken=" + url.QueryEscape(token)
		}

		resp, err := c.getGraph(ctx, endpoint)
		if err != nil {
			return nil, "", err
		}
		defer drainAndClose(resp)

		var page valueList[graphUserJSON]
		if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
			return nil, "", fmt.Errorf("decoding graph users page: %w", err)
		}
		return page.Value, resp.Header.Get(continuationHeader), nil
	})
	if err != nil {
		return nil, err
	}

	filtered := users[:0]
	for _, u := range users {
		if strings.Contains(u.PrincipalName, "@") {
			filtered = append(filtered, u)
		}
	}
	return filtered, nil
}

// userEntitlements returns every user entitlement. Unlike the core and
// graph surfaces, the entitlements surface returns its continuation token
// in the response body.
func (c *Client) userEntitlements(ctx context.Context) ([]entitlementJSON, error) {
	return collectPages(ctx, func(ctx context.Context, token string) ([]entitlementJSON, string, error) {
		endpoint := "_apis/userentitlements?api-version=" + apiVersionEntitlements + "&$top=1000"
		if token != "" {
			endpoint += "&continuationToken=" + url.QueryEscape(token)
		}

		var page entitlementPageJSON
		if err := c.getEntitlements(ctx, endpoint, &page); err != nil {
			return nil, "", err
		}
		return page.Members, page.ContinuationToken, nil
	})
}

// Users performs the global identity⋈entitlement join: graph identities
// and entitlements are fetched concurrently, matched on lowercased
// principal name, and identities without a usable access level are
// dropped.
func (c *Client) Users(ctx context.Context) ([]model.User, error) {
	var (
		identities   []graphUserJSON
		entitlements []entitlementJSON
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		identities, err = c.graphUsers(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		entitlements, err = c.userEntitlements(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byEmail := make(map[string]entitlementJSON, len(entitlements))
	for _, e := range entitlements {
		if e.User.PrincipalName != "" {
			byEmail[strings.ToLower(e.User.PrincipalName)] = e
		}
	}

	users := make([]model.User, 0, len(identities))
	for _, id := range identities {
		user := mergeUser(id, byEmail[strings.ToLower(id.PrincipalName)])
		if user.PrincipalName != "" && user.HasUsableAccessLevel() {
			users = append(users, user)
		}
	}

	slog.Debug("user join complete", "identities", len(identities), "entitlements", len(entitlements), "users", len(users))
	return users, nil
}

// User returns a single user by graph descriptor, or (nil, nil) when no
// listed user carries it. When the user has an entitlement, the record is
// refreshed from the single-entitlement endpoint, whose data can be newer
// than the bulk listing; a 404 there keeps the joined snapshot.
func (c *Client) User(ctx context.Context, descriptor string) (*model.User, error) {
	users, err := c.Users(ctx)
	if err != nil {
		return nil, err
	}

	for i := range users {
		if users[i].Descriptor != descriptor {
			continue
		}
		user := users[i]
		if user.ID != "" {
			if fresh, err := c.userEntitlement(ctx, user.ID); err != nil {
				return nil, err
			} else if fresh != nil {
				user.AccessLevel = fresh.AccessLevel.LicenseDisplayName
				user.DateCreated = fresh.DateCreated
				user.LastAccessedDate = fresh.LastAccessedDate
			}
		}
		return &user, nil
	}
	return nil, nil
}

// userEntitlement looks up one entitlement by its GUID. Some user types
// legitimately have none; a 404 is returned as (nil, nil).
func (c *Client) userEntitlement(ctx context.Context, userID string) (*entitlementJSON, error) {
	var e entitlementJSON
	endpoint := "_apis/userentitlements/" + url.PathEscape(userID) + "?api-version=" + apiVersionEntitlements
	err := c.getEntitlements(ctx, endpoint, &e)
	if driven.IsNotFound(err) {
		slog.Debug("no entitlement for user", "user_id", userID)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// UsersForProject resolves the users reachable through the project's
// group membership graph. It walks scope descriptor → groups →
// memberships, derives a role label from each group name, fetches member
// identity details in fixed-size concurrent batches, and joins against
// entitlements by descriptor. A member whose detail lookup fails is
// dropped silently; an auth failure anywhere aborts the whole join.
func (c *Client) UsersForProject(ctx context.Context, projectID, projectName string) ([]model.User, error) {
	scope, err := c.projectScopeDescriptor(ctx, projectID)
	if err != nil {
		return nil, err
	}

	groups, err := c.groupsInScope(ctx, scope)
	if err != nil {
		return nil, err
	}

	// A user can reach the project through several groups; collect the
	// union of role labels per member descriptor, preserving first-seen
	// member order for the detail fan-out.
	rolesByMember := make(map[string]map[string]struct{})
	var memberOrder []string

	rolePrefix := "[" + projectName + "]\\"

	for _, group := range groups {
		name := group.DisplayName
		if name == "" ||
			strings.Contains(strings.ToLower(name), infraGroupMarker) ||
			strings.EqualFold(name, allValidUsersGroup) {
			continue
		}

		// A name that is nothing but the prefix yields no role label; its
		// members still count and fall back to the default role.
		role := strings.TrimSpace(strings.TrimPrefix(name, rolePrefix))

		members, err := c.groupMembers(ctx, group.Descriptor)
		if err != nil {
			return nil, err
		}

		for _, m := range members {
			d := m.MemberDescriptor
			if d == "" || strings.HasPrefix(d, groupDescriptorPrefix) {
				continue
			}
			if _, seen := rolesByMember[d]; !seen {
				rolesByMember[d] = make(map[string]struct{})
				memberOrder = append(memberOrder, d)
			}
			if role != "" {
				rolesByMember[d][role] = struct{}{}
			}
		}
	}

	details, err := forEachBatch(ctx, memberOrder, descriptorBatchSize, func(ctx context.Context, descriptor string) (*graphUserJSON, error) {
		return c.graphUserDetail(ctx, descriptor)
	})
	if err != nil {
		return nil, err
	}

	entitlements, err := c.userEntitlements(ctx)
	if err != nil {
		return nil, err
	}

	byDescriptor := make(map[string]entitlementJSON, len(entitlements))
	for _, e := range entitlements {
		if e.User.Descriptor != "" {
			byDescriptor[e.User.Descriptor] = e
		}
	}

	users := make([]model.User, 0, len(details))
	for i, detail := range details {
		if detail == nil || detail.PrincipalName == "" {
			continue
		}

		user := mergeUser(*detail, byDescriptor[detail.Descriptor])
		if !user.HasUsableAccessLevel() {
			continue
		}

		user.ProjectEntitlements = []model.ProjectEntitlement{{
			ProjectRef: model.ProjectRef{ID: projectID, Name: projectName},
			Role:       joinRoles(rolesByMember[memberOrder[i]]),
		}}
		users = append(users, user)
	}

	slog.Debug("project user join complete",
		"project", projectName,
		"groups", len(groups),
		"members", len(memberOrder),
		"users", len(users),
	)
	return users, nil
}

// projectScopeDescriptor resolves the membership-graph root of a project.
func (c *Client) projectScopeDescriptor(ctx context.Context, projectID string) (string, error) {
	resp, err := c.getGraph(ctx, "_apis/graph/descriptors/"+url.PathEscape(projectID)+"?api-version="+apiVersionGraph)
	if err != nil {
		return "", err
	}
	defer drainAndClose(resp)

	var body struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decoding scope descriptor: %w", err)
	}
	if body.Value == "" {
		return "", fmt.Errorf("no scope descriptor for project %s", projectID)
	}
	return body.Value, nil
}

// groupsInScope lists the groups rooted at a scope descriptor.
func (c *Client) groupsInScope(ctx context.Context, scopeDescriptor string) ([]groupJSON, error) {
	resp, err := c.getGraph(ctx, "_apis/graph/groups?scopeDescriptor="+url.QueryEscape(scopeDescriptor)+"&api-version="+apiVersionGraph)
	if err != nil {
		return nil, err
	}
	defer drainAndClose(resp)

	var page valueList[groupJSON]
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decoding groups: %w", err)
	}
	return page.Value, nil
}

// groupMembers lists a group's downward membership relations.
func (c *Client) groupMembers(ctx context.Context, groupDescriptor string) ([]membershipJSON, error) {
	resp, err := c.getGraph(ctx, "_apis/graph/memberships/"+url.PathEscape(groupDescriptor)+"?direction=down&api-version="+apiVersionGraph)
	if err != nil {
		return nil, err
	}
	defer drainAndClose(resp)

	var page valueList[membershipJSON]
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decoding memberships: %w", err)
	}
	return page.Value, nil
}

// graphUserDetail fetches one identity by descriptor. Failed and
// not-found lookups are dropped (nil result) rather than failing the
// batch; only auth failures abort.
func (c *Client) graphUserDetail(ctx context.Context, descriptor string) (*graphUserJSON, error) {
	resp, err := c.getGraph(ctx, "_apis/graph/users/"+url.PathEscape(descriptor)+"?api-version="+apiVersionGraph)
	if driven.IsNotFound(err) {
		return nil, nil
	}
	if err := softFail(err, "member detail fetch skipped", "descriptor", descriptor); err != nil {
		return nil, err
	}
	if err != nil {
		return nil, nil
	}
	defer drainAndClose(resp)

	var u graphUserJSON
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		slog.Warn("member detail undecodable", "descriptor", descriptor, "error", err)
		return nil, nil
	}
	return &u, nil
}

// mergeUser attaches entitlement fields to a graph identity. A zero
// entitlement leaves them empty, which downstream filtering removes.
func mergeUser(id graphUserJSON, e entitlementJSON) model.User {
	var projectEntitlements []model.ProjectEntitlement
	for _, pe := range e.ProjectEntitlements {
		projectEntitlements = append(projectEntitlements, model.ProjectEntitlement{
			ProjectRef: model.ProjectRef{ID: pe.ProjectRef.ID, Name: pe.ProjectRef.Name},
		})
	}

	return model.User{
		ID:                  e.ID,
		PrincipalName:       id.PrincipalName,
		Descriptor:          id.Descriptor,
		DisplayName:         id.DisplayName,
		AvatarURL:           id.Links.Avatar.Href,
		AccessLevel:         e.AccessLevel.LicenseDisplayName,
		DateCreated:         e.DateCreated,
		LastAccessedDate:    e.LastAccessedDate,
		ProjectEntitlements: projectEntitlements,
	}
}

// joinRoles renders a role set as a stable comma-joined label.
func joinRoles(roles map[string]struct{}) string {
	if len(roles) == 0 {
		return defaultRole
	}
	names := make([]string, 0, len(roles))
	for r := range roles {
		names = append(names, r)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
