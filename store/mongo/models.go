package mongo

import (
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
	ID              string    `grove:"id,pk"           bson:"_id"`
	GlobalRole      string    `grove:"global_role"     bson:"global_role"`
	DisplayName     string    `grove:"display_name"    bson:"display_name"`
	Email           string    `grove:"email"           bson:"email"`
	IsActive        bool      `grove:"is_active"       bson:"is_active"`
	CreatedAt       time.Time `grove:"created_at"      bson:"created_at"`
	UpdatedAt       time.Time `grove:"updated_at"      bson:"updated_at"`
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
	ID                    string     `grove:"id,pk"                  bson:"_id"`
	PrincipalID           string     `grove:"principal_id"           bson:"principal_id"`
	TenantID              string     `grove:"tenant_id"              bson:"tenant_id"`
	RoleType              string     `grove:"role_type"              bson:"role_type"`
	IsDefaultTenant       bool       `grove:"is_default_tenant"      bson:"is_default_tenant"`
	AdditionalPermissions []string   `grove:"additional_permissions" bson:"additional_permissions,omitempty"`
	RestrictedPermissions []string   `grove:"restricted_permissions" bson:"restricted_permissions,omitempty"`
	AllowedSiteIDs        []string   `grove:"allowed_site_ids"       bson:"allowed_site_ids,omitempty"`
	GrantedBy             string     `grove:"granted_by"             bson:"granted_by,omitempty"`
	GrantedAt             time.Time  `grove:"granted_at"             bson:"granted_at"`
	ExpiresAt             *time.Time `grove:"expires_at"             bson:"expires_at,omitempty"`
	IsActive              bool       `grove:"is_active"              bson:"is_active"`
	Version               int64      `grove:"version"                bson:"version"`
	CreatedAt             time.Time  `grove:"created_at"             bson:"created_at"`
	UpdatedAt             time.Time  `grove:"updated_at"             bson:"updated_at"`
}

func assignmentToModel(a *assignment.Assignment) *assignmentModel {
	m := &assignmentModel{
		ID:                    a.ID.String(),
		PrincipalID:           a.PrincipalID.String(),
		TenantID:              a.TenantID.String(),
		RoleType:              a.RoleType,
		IsDefaultTenant:       a.IsDefaultTenant,
		AdditionalPermissions: a.AdditionalPermissions,
		RestrictedPermissions: a.RestrictedPermissions,
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
	if len(a.AllowedSiteIDs) > 0 {
		m.AllowedSiteIDs = make([]string, len(a.AllowedSiteIDs))
		for i, sid := range a.AllowedSiteIDs {
			m.AllowedSiteIDs[i] = sid.String()
		}
	}
	return m
}

func assignmentFromModel(m *assignmentModel) *assignment.Assignment {
	aid, _ := id.ParseAssignmentID(m.ID)         //nolint:errcheck // stored IDs are always valid
	pid, _ := id.ParsePrincipalID(m.PrincipalID) //nolint:errcheck // stored IDs are always valid
	tid, _ := id.ParseTenantID(m.TenantID)       //nolint:errcheck // stored IDs are always valid
	a := &assignment.Assignment{
		ID:                    aid,
		PrincipalID:           pid,
		TenantID:              tid,
		RoleType:              m.RoleType,
		IsDefaultTenant:       m.IsDefaultTenant,
		AdditionalPermissions: m.AdditionalPermissions,
		RestrictedPermissions: m.RestrictedPermissions,
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
	if len(m.AllowedSiteIDs) > 0 {
		a.AllowedSiteIDs = make([]id.SiteID, 0, len(m.AllowedSiteIDs))
		for _, raw := range m.AllowedSiteIDs {
			sid, err := id.ParseSiteID(raw)
			if err == nil {
				a.AllowedSiteIDs = append(a.AllowedSiteIDs, sid)
			}
		}
	}
	return a
}

// ──────────────────────────────────────────────────
// Decision log model
// ──────────────────────────────────────────────────

type decisionLogModel struct {
	grove.BaseModel `grove:"table:arbiter_decision_logs"`
	ID              string    `grove:"id,pk"           bson:"_id"`
	PrincipalID     string    `grove:"principal_id"    bson:"principal_id"`
	TenantID        string    `grove:"tenant_id"       bson:"tenant_id"`
	SiteID          string    `grove:"site_id"         bson:"site_id,omitempty"`
	Resource        string    `grove:"resource"        bson:"resource"`
	Action          string    `grove:"action"          bson:"action"`
	RequiredLevel   string    `grove:"required_level"  bson:"required_level"`
	Outcome         string    `grove:"outcome"         bson:"outcome"`
	Reason          string    `grove:"reason"          bson:"reason,omitempty"`
	EvalTimeNs      int64     `grove:"eval_time_ns"    bson:"eval_time_ns"`
	CreatedAt       time.Time `grove:"created_at"      bson:"created_at"`
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
