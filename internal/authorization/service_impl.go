package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/smallbiznis/frontdesk/internal/observability/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectAutoCheckout = "auto_checkout"
	ObjectFallback     = "auto_checkout_fallback"
)

const (
	ActionView     = "auto_checkout.view"
	ActionConfirm  = "auto_checkout.confirm"
	ActionExport   = "auto_checkout.export"
	ActionReset    = "auto_checkout.reset"
	ActionFallback = "auto_checkout.fallback"
)

const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleStaff  = "staff"
	RoleSystem = "system"
)

const systemActor = "system"

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

// Authorize checks actor against the seeded policies. Operators are
// "operator:<id>" and carry the role the upstream session assigned them.
func (s *ServiceImpl) Authorize(ctx context.Context, actor string, role string, object string, action string) error {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ErrInvalidActor
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	roleName, err := resolveRole(actor, role)
	if err != nil {
		s.denied(ctx, actor, role, object, action, err)
		return err
	}
	if err := s.ensureGrouping(actor, roleName); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(actor, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.denied(ctx, actor, role, object, action, ErrForbidden)
		return ErrForbidden
	}
	if action == ActionReset {
		logger.WithContext(ctx, s.log).Info("authorization.granted",
			zap.String("subject", actor),
			zap.String("object", object),
			zap.String("action", action),
		)
	}
	return nil
}

func resolveRole(actor string, role string) (string, error) {
	if actor == systemActor {
		return "role:" + RoleSystem, nil
	}
	if !strings.HasPrefix(actor, "operator:") || strings.TrimSpace(strings.TrimPrefix(actor, "operator:")) == "" {
		return "", ErrInvalidActor
	}
	switch role = strings.ToLower(strings.TrimSpace(role)); role {
	case RoleOwner, RoleAdmin, RoleStaff:
		return fmt.Sprintf("role:%s", role), nil
	default:
		return "", ErrInvalidRole
	}
}

// ensureGrouping keeps exactly one role link per subject.
func (s *ServiceImpl) ensureGrouping(subject string, roleName string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if rule[1] != roleName {
			params := make([]interface{}, 0, len(rule))
			for _, value := range rule {
				params = append(params, value)
			}
			_, _ = s.enforcer.RemoveGroupingPolicy(params...)
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName)
	return err
}

func (s *ServiceImpl) denied(ctx context.Context, actor, role, object, action string, reason error) {
	logger.WithContext(ctx, s.log).Warn("authorization.denied",
		zap.String("subject", actor),
		zap.String("role", role),
		zap.String("object", object),
		zap.String("action", action),
		zap.Error(reason),
	)
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		{"role:staff", ObjectAutoCheckout, ActionView},
		{"role:staff", ObjectAutoCheckout, ActionConfirm},

		{"role:admin", ObjectAutoCheckout, ActionView},
		{"role:admin", ObjectAutoCheckout, ActionConfirm},
		{"role:admin", ObjectAutoCheckout, ActionExport},

		{"role:owner", ObjectAutoCheckout, ActionView},
		{"role:owner", ObjectAutoCheckout, ActionConfirm},
		{"role:owner", ObjectAutoCheckout, ActionExport},
		{"role:owner", ObjectAutoCheckout, ActionReset},
		{"role:owner", ObjectFallback, ActionFallback},

		{"role:system", ObjectAutoCheckout, ActionView},
		{"role:system", ObjectFallback, ActionFallback},
	}

	for _, policy := range policies {
		if len(policy) < 3 {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
