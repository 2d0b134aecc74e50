package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/praetorhq/praetor/action"
	"github.com/praetorhq/praetor/assignment"
	"github.com/praetorhq/praetor/auditlog"
	"github.com/praetorhq/praetor/id"
	"github.com/praetorhq/praetor/permission"
	"github.com/praetorhq/praetor/policy"
	"github.com/praetorhq/praetor/resource"
	"github.com/praetorhq/praetor/role"
	"github.com/praetorhq/praetor/rule"
)

// ──────────────────────────────────────────────────
// Role model
// ──────────────────────────────────────────────────

type roleModel struct {
	grove.BaseModel `grove:"table:praetor_roles"`
	ID              string     `grove:"id,pk"`
	TenantID        string     `grove:"tenant_id,notnull"`
	Name            string     `grove:"name,notnull"`
	Description     string     `grove:"description"`
	Slug            string     `grove:"slug,notnull"`
	Priority        int        `grove:"priority,notnull"`
	Level           int        `grove:"level,notnull"`
	IsActive        bool       `grove:"is_active,notnull"`
	IsSystem        bool       `grove:"is_system,notnull"`
	MaxAssignments  int        `grove:"max_assignments,notnull"`
	ExpiresAt       *time.Time `grove:"expires_at"`
	Metadata        string     `grove:"metadata"` // JSON text
	CreatedAt       time.Time  `grove:"created_at,notnull"`
	UpdatedAt       time.Time  `grove:"updated_at,notnull"`
}

// roleParentModel is the role hierarchy edge set. Roles may have several
// parents, so edges live in their own table.
type roleParentModel struct {
	grove.BaseModel `grove:"table:praetor_role_parents"`
	RoleID          string `grove:"role_id,pk"`
	ParentID        string `grove:"parent_id,pk"`
}

func roleToModel(r *role.Role) (*roleModel, error) {
	metadata, err := json.Marshal(r.Metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal role metadata: %w", err)
	}
	return &roleModel{
		ID:             r.ID.String(),
		TenantID:       r.TenantID,
		Name:           r.Name,
		Description:    r.Description,
		Slug:           r.Slug,
		Priority:       r.Priority,
		Level:          r.Level,
		IsActive:       r.IsActive,
		IsSystem:       r.IsSystem,
		MaxAssignments: r.MaxAssignments,
		ExpiresAt:      r.ExpiresAt,
		Metadata:       string(metadata),
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}, nil
}

func roleFromModel(m *roleModel, parents []string) (*role.Role, error) {
	rid, _ := id.ParseRoleID(m.ID) //nolint:errcheck // stored IDs are always valid
	var metadata map[string]any
	if m.Metadata != "" {
		if err := json.Unmarshal([]byte(m.Metadata), &metadata); err != nil {
			return nil, fmt.Errorf("unmarshal role metadata: %w", err)
		}
	}
	r := &role.Role{
		ID:             rid,
		TenantID:       m.TenantID,
		Name:           m.Name,
		Description:    m.Description,
		Slug:           m.Slug,
		Priority:       m.Priority,
		Level:          m.Level,
		IsActive:       m.IsActive,
		IsSystem:       m.IsSystem,
		MaxAssignments: m.MaxAssignments,
		ExpiresAt:      m.ExpiresAt,
		Metadata:       metadata,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
	for _, p := range parents {
		pid, err := id.ParseRoleID(p)
		if err == nil {
			r.ParentIDs = append(r.ParentIDs, pid)
		}
	}
	return r, nil
}

// ──────────────────────────────────────────────────
// Permission model
// ──────────────────────────────────────────────────

type permissionModel struct {
	grove.BaseModel `grove:"table:praetor_permissions"`
	ID              string    `grove:"id,pk"`
	TenantID        string    `grove:"tenant_id,notnull"`
	Name            string    `grove:"name,notnull"`
	Description     string    `grove:"description"`
	Resource        string    `grove:"resource,notnull"`
	Action          string    `grove:"action,notnull"`
	Category        string    `grove:"category,notnull"`
	Level           int       `grove:"level,notnull"`
	IsCore          bool      `grove:"is_core,notnull"`
	Metadata        string    `grove:"metadata"` // JSON text
	CreatedAt       time.Time `grove:"created_at,notnull"`
	UpdatedAt       time.Time `grove:"updated_at,notnull"`
}

func permissionToModel(p *permission.Permission) (*permissionModel, error) {
	metadata, err := json.Marshal(p.Metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal permission metadata: %w", err)
	}
	return &permissionModel{
		ID:          p.ID.String(),
		TenantID:    p.TenantID,
		Name:        p.Name,
		Description: p.Description,
		Resource:    p.Resource,
		Action:      p.Action,
		Category:    string(p.Category),
		Level:       p.Level,
		IsCore:      p.IsCore,
		Metadata:    string(metadata),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}, nil
}

func permissionFromModel(m *permissionModel) (*permission.Permission, error) {
	pid, _ := id.ParsePermissionID(m.ID) //nolint:errcheck // stored IDs are always valid
	var metadata map[string]any
	if m.Metadata != "" {
		if err := json.Unmarshal([]byte(m.Metadata), &metadata); err != nil {
			return nil, fmt.Errorf("unmarshal permission metadata: %w", err)
		}
	}
	return &permission.Permission{
		ID:          pid,
		TenantID:    m.TenantID,
		Name:        m.Name,
		Description: m.Description,
		Resource:    m.Resource,
		Action:      m.Action,
		Category:    permission.Category(m.Category),
		Level:       m.Level,
		IsCore:      m.IsCore,
		Metadata:    metadata,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}, nil
}

// ──────────────────────────────────────────────────
// Role-Permission junction model
// ──────────────────────────────────────────────────

type rolePermissionModel struct {
	grove.BaseModel `grove:"table:praetor_role_permissions"`
	RoleID          string `grove:"role_id,pk"`
	PermissionID    string `grove:"permission_id,pk"`
}

// ──────────────────────────────────────────────────
// Assignment model
// ──────────────────────────────────────────────────

type assignmentModel struct {
	grove.BaseModel `grove:"table:praetor_assignments"`
	ID              string     `grove:"id,pk"`
	TenantID        string     `grove:"tenant_id,notnull"`
	RoleID          string     `grove:"role_id,notnull"`
	UserID          string     `grove:"user_id,notnull"`
	GrantedBy       string     `grove:"granted_by"`
	ExpiresAt       *time.Time `grove:"expires_at"`
	IsActive        bool       `grove:"is_active,notnull"`
	RevokedBy       string     `grove:"revoked_by"`
	RevokedAt       *time.Time `grove:"revoked_at"`
	Metadata        string     `grove:"metadata"` // JSON text
	CreatedAt       time.Time  `grove:"created_at,notnull"`
}

func assignmentToModel(a *assignment.Assignment) (*assignmentModel, error) {
	metadata, err := json.Marshal(a.Metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal assignment metadata: %w", err)
	}
	return &assignmentModel{
		ID:        a.ID.String(),
		TenantID:  a.TenantID,
		RoleID:    a.RoleID.String(),
		UserID:    a.UserID,
		GrantedBy: a.GrantedBy,
		ExpiresAt: a.ExpiresAt,
		IsActive:  a.IsActive,
		RevokedBy: a.RevokedBy,
		RevokedAt: a.RevokedAt,
		Metadata:  string(metadata),
		CreatedAt: a.CreatedAt,
	}, nil
}

func assignmentFromModel(m *assignmentModel) (*assignment.Assignment, error) {
	aid, _ := id.ParseAssignmentID(m.ID) //nolint:errcheck // stored IDs are always valid
	rid, _ := id.ParseRoleID(m.RoleID)   //nolint:errcheck
	var metadata map[string]any
	if m.Metadata != "" {
		if err := json.Unmarshal([]byte(m.Metadata), &metadata); err != nil {
			return nil, fmt.Errorf("unmarshal assignment metadata: %w", err)
		}
	}
	return &assignment.Assignment{
		ID:        aid,
		TenantID:  m.TenantID,
		RoleID:    rid,
		UserID:    m.UserID,
		GrantedBy: m.GrantedBy,
		ExpiresAt: m.ExpiresAt,
		IsActive:  m.IsActive,
		RevokedBy: m.RevokedBy,
		RevokedAt: m.RevokedAt,
		Metadata:  metadata,
		CreatedAt: m.CreatedAt,
	}, nil
}

// ──────────────────────────────────────────────────
// Rule model
// ──────────────────────────────────────────────────

type ruleModel struct {
	grove.BaseModel `grove:"table:praetor_rules"`
	ID              string    `grove:"id,pk"`
	TenantID        string    `grove:"tenant_id,notnull"`
	Name            string    `grove:"name,notnull"`
	Resources       string    `grove:"resources"`   // JSON array
	Actions         string    `grove:"actions"`     // JSON array
	Roles           string    `grove:"roles"`       // JSON array
	Effect          string    `grove:"effect,notnull"`
	Priority        int       `grove:"priority,notnull"`
	Conditions      string    `grove:"conditions"`  // JSON array
	TimeWindow      string    `grove:"time_window"` // JSON object
	IsActive        bool      `grove:"is_active,notnull"`
	Metadata        string    `grove:"metadata"` // JSON text
	CreatedAt       time.Time `grove:"created_at,notnull"`
	UpdatedAt       time.Time `grove:"updated_at,notnull"`
}

func ruleToModel(r *rule.Rule) (*ruleModel, error) {
	resources, err := json.Marshal(r.Resources)
	if err != nil {
		return nil, fmt.Errorf("marshal rule resources: %w", err)
	}
	actions, err := json.Marshal(r.Actions)
	if err != nil {
		return nil, fmt.Errorf("marshal rule actions: %w", err)
	}
	roles, err := json.Marshal(r.Roles)
	if err != nil {
		return nil, fmt.Errorf("marshal rule roles: %w", err)
	}
	conditions, err := json.Marshal(r.Conditions)
	if err != nil {
		return nil, fmt.Errorf("marshal rule conditions: %w", err)
	}
	window := ""
	if r.TimeWindow != nil {
		raw, err := json.Marshal(r.TimeWindow)
		if err != nil {
			return nil, fmt.Errorf("marshal rule time window: %w", err)
		}
		window = string(raw)
	}
	metadata, err := json.Marshal(r.Metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal rule metadata: %w", err)
	}
	return &ruleModel{
		ID:         r.ID.String(),
		TenantID:   r.TenantID,
		Name:       r.Name,
		Resources:  string(resources),
		Actions:    string(actions),
		Roles:      string(roles),
		Effect:     string(r.Effect),
		Priority:   r.Priority,
		Conditions: string(conditions),
		TimeWindow: window,
		IsActive:   r.IsActive,
		Metadata:   string(metadata),
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}, nil
}

func ruleFromModel(m *ruleModel) (*rule.Rule, error) {
	rid, _ := id.ParseRuleID(m.ID) //nolint:errcheck // stored IDs are always valid
	r := &rule.Rule{
		ID:        rid,
		TenantID:  m.TenantID,
		Name:      m.Name,
		Effect:    rule.Effect(m.Effect),
		Priority:  m.Priority,
		IsActive:  m.IsActive,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if err := unmarshalInto(m.Resources, &r.Resources, "rule resources"); err != nil {
		return nil, err
	}
	if err := unmarshalInto(m.Actions, &r.Actions, "rule actions"); err != nil {
		return nil, err
	}
	if err := unmarshalInto(m.Roles, &r.Roles, "rule roles"); err != nil {
		return nil, err
	}
	if err := unmarshalInto(m.Conditions, &r.Conditions, "rule conditions"); err != nil {
		return nil, err
	}
	if m.TimeWindow != "" {
		r.TimeWindow = new(rule.TimeWindow)
		if err := unmarshalInto(m.TimeWindow, r.TimeWindow, "rule time window"); err != nil {
			return nil, err
		}
	}
	if err := unmarshalInto(m.Metadata, &r.Metadata, "rule metadata"); err != nil {
		return nil, err
	}
	return r, nil
}

// ──────────────────────────────────────────────────
// Policy model
// ──────────────────────────────────────────────────

type policyModel struct {
	grove.BaseModel `grove:"table:praetor_policies"`
	ID              string    `grove:"id,pk"`
	TenantID        string    `grove:"tenant_id,notnull"`
	Name            string    `grove:"name,notnull"`
	Version         int       `grove:"version,notnull"`
	Statements      string    `grove:"statements"` // JSON array
	Variables       string    `grove:"variables"`  // JSON object
	Functions       string    `grove:"functions"`  // JSON object
	IsActive        bool      `grove:"is_active,notnull"`
	Tags            string    `grove:"tags"` // JSON array
	CreatedAt       time.Time `grove:"created_at,notnull"`
	UpdatedAt       time.Time `grove:"updated_at,notnull"`
}

func policyToModel(d *policy.Document) (*policyModel, error) {
	statements, err := json.Marshal(d.Statements)
	if err != nil {
		return nil, fmt.Errorf("marshal policy statements: %w", err)
	}
	variables, err := json.Marshal(d.Variables)
	if err != nil {
		return nil, fmt.Errorf("marshal policy variables: %w", err)
	}
	functions, err := json.Marshal(d.Functions)
	if err != nil {
		return nil, fmt.Errorf("marshal policy functions: %w", err)
	}
	tags, err := json.Marshal(d.Tags)
	if err != nil {
		return nil, fmt.Errorf("marshal policy tags: %w", err)
	}
	return &policyModel{
		ID:         d.ID.String(),
		TenantID:   d.TenantID,
		Name:       d.Name,
		Version:    d.Version,
		Statements: string(statements),
		Variables:  string(variables),
		Functions:  string(functions),
		IsActive:   d.IsActive,
		Tags:       string(tags),
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}, nil
}

func policyFromModel(m *policyModel) (*policy.Document, error) {
	pid, _ := id.ParsePolicyID(m.ID) //nolint:errcheck // stored IDs are always valid
	d := &policy.Document{
		ID:        pid,
		TenantID:  m.TenantID,
		Name:      m.Name,
		Version:   m.Version,
		IsActive:  m.IsActive,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if err := unmarshalInto(m.Statements, &d.Statements, "policy statements"); err != nil {
		return nil, err
	}
	if err := unmarshalInto(m.Variables, &d.Variables, "policy variables"); err != nil {
		return nil, err
	}
	if err := unmarshalInto(m.Functions, &d.Functions, "policy functions"); err != nil {
		return nil, err
	}
	if err := unmarshalInto(m.Tags, &d.Tags, "policy tags"); err != nil {
		return nil, err
	}
	return d, nil
}

// ──────────────────────────────────────────────────
// Resource model
// ──────────────────────────────────────────────────

type resourceModel struct {
	grove.BaseModel `grove:"table:praetor_resources"`
	ID              string    `grove:"id,pk"`
	TenantID        string    `grove:"tenant_id,notnull"`
	Type            string    `grove:"type,notnull"`
	Name            string    `grove:"name"`
	ParentID        *string   `grove:"parent_id"`
	Attributes      string    `grove:"attributes"` // JSON text
	CreatedAt       time.Time `grove:"created_at,notnull"`
	UpdatedAt       time.Time `grove:"updated_at,notnull"`
}

func resourceToModel(r *resource.Resource) (*resourceModel, error) {
	attrs, err := json.Marshal(r.Attributes)
	if err != nil {
		return nil, fmt.Errorf("marshal resource attributes: %w", err)
	}
	m := &resourceModel{
		ID:         r.ID.String(),
		TenantID:   r.TenantID,
		Type:       r.Type,
		Name:       r.Name,
		Attributes: string(attrs),
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if r.ParentID != nil {
		s := r.ParentID.String()
		m.ParentID = &s
	}
	return m, nil
}

func resourceFromModel(m *resourceModel) (*resource.Resource, error) {
	rid, _ := id.ParseResourceID(m.ID) //nolint:errcheck // stored IDs are always valid
	r := &resource.Resource{
		ID:        rid,
		TenantID:  m.TenantID,
		Type:      m.Type,
		Name:      m.Name,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if err := unmarshalInto(m.Attributes, &r.Attributes, "resource attributes"); err != nil {
		return nil, err
	}
	if m.ParentID != nil {
		pid, err := id.ParseResourceID(*m.ParentID)
		if err == nil {
			r.ParentID = &pid
		}
	}
	return r, nil
}

// ──────────────────────────────────────────────────
// Action model
// ──────────────────────────────────────────────────

type actionModel struct {
	grove.BaseModel      `grove:"table:praetor_actions"`
	ID                   string    `grove:"id,pk"`
	TenantID             string    `grove:"tenant_id,notnull"`
	Name                 string    `grove:"name,notnull"`
	Description          string    `grove:"description"`
	Category             string    `grove:"category,notnull"`
	RiskLevel            int       `grove:"risk_level,notnull"`
	RequiresConfirmation bool      `grove:"requires_confirmation,notnull"`
	MinRoleLevel         int       `grove:"min_role_level,notnull"`
	Metadata             string    `grove:"metadata"` // JSON text
	CreatedAt            time.Time `grove:"created_at,notnull"`
	UpdatedAt            time.Time `grove:"updated_at,notnull"`
}

func actionToModel(a *action.Action) (*actionModel, error) {
	metadata, err := json.Marshal(a.Metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal action metadata: %w", err)
	}
	return &actionModel{
		ID:                   a.ID.String(),
		TenantID:             a.TenantID,
		Name:                 a.Name,
		Description:          a.Description,
		Category:             string(a.Category),
		RiskLevel:            a.RiskLevel,
		RequiresConfirmation: a.RequiresConfirmation,
		MinRoleLevel:         a.MinRoleLevel,
		Metadata:             string(metadata),
		CreatedAt:            a.CreatedAt,
		UpdatedAt:            a.UpdatedAt,
	}, nil
}

func actionFromModel(m *actionModel) (*action.Action, error) {
	aid, _ := id.ParseActionID(m.ID) //nolint:errcheck // stored IDs are always valid
	a := &action.Action{
		ID:                   aid,
		TenantID:             m.TenantID,
		Name:                 m.Name,
		Description:          m.Description,
		Category:             permission.Category(m.Category),
		RiskLevel:            m.RiskLevel,
		RequiresConfirmation: m.RequiresConfirmation,
		MinRoleLevel:         m.MinRoleLevel,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
	if err := unmarshalInto(m.Metadata, &a.Metadata, "action metadata"); err != nil {
		return nil, err
	}
	return a, nil
}

// ──────────────────────────────────────────────────
// Audit log model
// ──────────────────────────────────────────────────

type auditLogModel struct {
	grove.BaseModel `grove:"table:praetor_audit_logs"`
	ID              string    `grove:"id,pk"`
	TenantID        string    `grove:"tenant_id,notnull"`
	Kind            string    `grove:"kind,notnull"`
	Severity        string    `grove:"severity,notnull"`
	Category        string    `grove:"category"`
	PrincipalID     string    `grove:"principal_id"`
	ResourceType    string    `grove:"resource_type"`
	ResourceID      string    `grove:"resource_id"`
	Action          string    `grove:"action"`
	Outcome         string    `grove:"outcome,notnull"`
	Context         string    `grove:"context"` // JSON text
	CreatedAt       time.Time `grove:"created_at,notnull"`
}

func auditLogToModel(e *auditlog.Entry) (*auditLogModel, error) {
	context, err := json.Marshal(e.Context)
	if err != nil {
		return nil, fmt.Errorf("marshal audit log context: %w", err)
	}
	return &auditLogModel{
		ID:           e.ID.String(),
		TenantID:     e.TenantID,
		Kind:         e.Kind,
		Severity:     e.Severity,
		Category:     e.Category,
		PrincipalID:  e.PrincipalID,
		ResourceType: e.ResourceType,
		ResourceID:   e.ResourceID,
		Action:       e.Action,
		Outcome:      e.Outcome,
		Context:      string(context),
		CreatedAt:    e.CreatedAt,
	}, nil
}

func auditLogFromModel(m *auditLogModel) (*auditlog.Entry, error) {
	lid, _ := id.ParseAuditLogID(m.ID) //nolint:errcheck // stored IDs are always valid
	e := &auditlog.Entry{
		ID:           lid,
		TenantID:     m.TenantID,
		Kind:         m.Kind,
		Severity:     m.Severity,
		Category:     m.Category,
		PrincipalID:  m.PrincipalID,
		ResourceType: m.ResourceType,
		ResourceID:   m.ResourceID,
		Action:       m.Action,
		Outcome:      m.Outcome,
		CreatedAt:    m.CreatedAt,
	}
	if err := unmarshalInto(m.Context, &e.Context, "audit log context"); err != nil {
		return nil, err
	}
	return e, nil
}

// unmarshalInto decodes a JSON column, treating empty text as absent.
func unmarshalInto(raw string, dst any, what string) error {
	if raw == "" || raw == "null" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("unmarshal %s: %w", what, err)
	}
	return nil
}
