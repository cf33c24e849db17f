package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/arbiter/assignment"
	"github.com/xraph/arbiter/decisionlog"
	"github.com/xraph/arbiter/id"
	"github.com/xraph/arbiter/principal"
)

// ──────────────────────────────────────────────────
// Principal model
// ──────────────────────────────────────────────────

type principalModel struct {
	grove.BaseModel `grove:"table:arbiter_principals"`
	ID              string    `grove:"id,pk"`
	GlobalRole      string    `grove:"global_role,notnull"`
	DisplayName     string    `grove:"display_name"`
	Email           string    `grove:"email"`
	IsActive        bool      `grove:"is_active,notnull"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
	UpdatedAt       time.Time `grove:"updated_at,notnull"`
}

func principalToModel(p *principal.Principal) *principalModel {
	return &principalModel{
		ID:          p.ID.String(),
		GlobalRole:  p.GlobalRole,
		DisplayName: p.DisplayName,
		Email:       p.Email,
		IsActive:    p.IsActive,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func principalFromModel(m *principalModel) *principal.Principal {
	pid, _ := id.ParsePrincipalID(m.ID) //nolint:errcheck // stored IDs are always valid
	return &principal.Principal{
		ID:          pid,
		GlobalRole:  m.GlobalRole,
		DisplayName: m.DisplayName,
		Email:       m.Email,
		IsActive:    m.IsActive,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// ──────────────────────────────────────────────────
// Assignment model
// ──────────────────────────────────────────────────

type assignmentModel struct {
	grove.BaseModel       `grove:"table:arbiter_assignments"`
	ID                    string     `grove:"id,pk"`
	PrincipalID           string     `grove:"principal_id,notnull"`
	TenantID              string     `grove:"tenant_id,notnull"`
	RoleType              string     `grove:"role_type,notnull"`
	IsDefaultTenant       bool       `grove:"is_default_tenant,notnull"`
	AdditionalPermissions string     `grove:"additional_permissions"` // JSON text
	RestrictedPermissions string     `grove:"restricted_permissions"` // JSON text
	AllowedSiteIDs        string     `grove:"allowed_site_ids"`       // JSON text
	GrantedBy             string     `grove:"granted_by"`
	GrantedAt             time.Time  `grove:"granted_at,notnull"`
	ExpiresAt             *time.Time `grove:"expires_at"`
	IsActive              bool       `grove:"is_active,notnull"`
	Version               int64      `grove:"version,notnull"`
	CreatedAt             time.Time  `grove:"created_at,notnull"`
	UpdatedAt             time.Time  `grove:"updated_at,notnull"`
}

func assignmentToModel(a *assignment.Assignment) (*assignmentModel, error) {
	additional, err := json.Marshal(emptyIfNil(a.AdditionalPermissions))
	if err != nil {
		return nil, fmt.Errorf("marshal additional permissions: %w", err)
	}
	restricted, err := json.Marshal(emptyIfNil(a.RestrictedPermissions))
	if err != nil {
		return nil, fmt.Errorf("marshal restricted permissions: %w", err)
	}
	sites := make([]string, len(a.AllowedSiteIDs))
	for i, sid := range a.AllowedSiteIDs {
		sites[i] = sid.String()
	}
	siteJSON, err := json.Marshal(sites)
	if err != nil {
		return nil, fmt.Errorf("marshal allowed site ids: %w", err)
	}
	m := &assignmentModel{
		ID:                    a.ID.String(),
		PrincipalID:           a.PrincipalID.String(),
		TenantID:              a.TenantID.String(),
		RoleType:              a.RoleType,
		IsDefaultTenant:       a.IsDefaultTenant,
		AdditionalPermissions: string(additional),
		RestrictedPermissions: string(restricted),
		AllowedSiteIDs:        string(siteJSON),
		GrantedAt:             a.GrantedAt,
		ExpiresAt:             a.ExpiresAt,
		IsActive:              a.IsActive,
		Version:               a.Version,
		CreatedAt:             a.CreatedAt,
		UpdatedAt:             a.UpdatedAt,
	}
	if !a.GrantedBy.IsNil() {
		m.GrantedBy = a.GrantedBy.String()
	}
	return m, nil
}

func assignmentFromModel(m *assignmentModel) (*assignment.Assignment, error) {
	aid, _ := id.ParseAssignmentID(m.ID)         //nolint:errcheck // stored IDs are always valid
	pid, _ := id.ParsePrincipalID(m.PrincipalID) //nolint:errcheck // stored IDs are always valid
	tid, _ := id.ParseTenantID(m.TenantID)       //nolint:errcheck // stored IDs are always valid

	var additional, restricted, sites []string
	if m.AdditionalPermissions != "" {
		if err := json.Unmarshal([]byte(m.AdditionalPermissions), &additional); err != nil {
			return nil, fmt.Errorf("unmarshal additional permissions: %w", err)
		}
	}
	if m.RestrictedPermissions != "" {
		if err := json.Unmarshal([]byte(m.RestrictedPermissions), &restricted); err != nil {
			return nil, fmt.Errorf("unmarshal restricted permissions: %w", err)
		}
	}
	if m.AllowedSiteIDs != "" {
		if err := json.Unmarshal([]byte(m.AllowedSiteIDs), &sites); err != nil {
			return nil, fmt.Errorf("unmarshal allowed site ids: %w", err)
		}
	}

	a := &assignment.Assignment{
		ID:                    aid,
		PrincipalID:           pid,
		TenantID:              tid,
		RoleType:              m.RoleType,
		IsDefaultTenant:       m.IsDefaultTenant,
		AdditionalPermissions: additional,
		RestrictedPermissions: restricted,
		GrantedAt:             m.GrantedAt,
		ExpiresAt:             m.ExpiresAt,
		IsActive:              m.IsActive,
		Version:               m.Version,
		CreatedAt:             m.CreatedAt,
		UpdatedAt:             m.UpdatedAt,
	}
	if m.GrantedBy != "" {
		gb, err := id.ParsePrincipalID(m.GrantedBy)
		if err == nil {
			a.GrantedBy = gb
		}
	}
	for _, raw := range sites {
		sid, err := id.ParseSiteID(raw)
		if err == nil {
			a.AllowedSiteIDs = append(a.AllowedSiteIDs, sid)
		}
	}
	return a, nil
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// ──────────────────────────────────────────────────
// Decision log model
// ──────────────────────────────────────────────────

type decisionLogModel struct {
	grove.BaseModel `grove:"table:arbiter_decision_logs"`
	ID              string    `grove:"id,pk"`
	PrincipalID     string    `grove:"principal_id,notnull"`
	TenantID        string    `grove:"tenant_id,notnull"`
	SiteID          string    `grove:"site_id"`
	Resource        string    `grove:"resource,notnull"`
	Action          string    `grove:"action,notnull"`
	RequiredLevel   string    `grove:"required_level,notnull"`
	Outcome         string    `grove:"outcome,notnull"`
	Reason          string    `grove:"reason"`
	EvalTimeNs      int64     `grove:"eval_time_ns,notnull"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
}

func decisionLogToModel(e *decisionlog.Entry) *decisionLogModel {
	m := &decisionLogModel{
		ID:            e.ID.String(),
		PrincipalID:   e.PrincipalID.String(),
		TenantID:      e.TenantID.String(),
		Resource:      e.Resource,
		Action:        e.Action,
		RequiredLevel: e.RequiredLevel,
		Outcome:       string(e.Outcome),
		Reason:        e.Reason,
		EvalTimeNs:    e.EvalTimeNs,
		CreatedAt:     e.CreatedAt,
	}
	if !e.SiteID.IsNil() {
		m.SiteID = e.SiteID.String()
	}
	return m
}

func decisionLogFromModel(m *decisionLogModel) *decisionlog.Entry {
	lid, _ := id.ParseDecisionLogID(m.ID)        //nolint:errcheck // stored IDs are always valid
	pid, _ := id.ParsePrincipalID(m.PrincipalID) //nolint:errcheck // stored IDs are always valid
	tid, _ := id.ParseTenantID(m.TenantID)       //nolint:errcheck // stored IDs are always valid
	e := &decisionlog.Entry{
		ID:            lid,
		PrincipalID:   pid,
		TenantID:      tid,
		Resource:      m.Resource,
		Action:        m.Action,
		RequiredLevel: m.RequiredLevel,
		Outcome:       decisionlog.Outcome(m.Outcome),
		Reason:        m.Reason,
		EvalTimeNs:    m.EvalTimeNs,
		CreatedAt:     m.CreatedAt,
	}
	if m.SiteID != "" {
		sid, err := id.ParseSiteID(m.SiteID)
		if err == nil {
			e.SiteID = sid
		}
	}
	return e
}
