// Package roles implements the membership role ladder: Member, Officer, Leader.
// Promotion and demotion move one rung at a time and are restricted to an
// approved Leader of the same organization or to staff.
package roles

import (
	"context"
	"errors"
	"fmt"

	membershipstore "github.com/dalemusser/soar/internal/app/store/memberships"
	"github.com/dalemusser/soar/internal/app/system/metrics"
	"github.com/dalemusser/soar/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var (
	// ErrForbidden is returned when the actor may not change the membership.
	ErrForbidden = errors.New("only a leader of this organization or staff can change member roles")
	// ErrConflict is returned when the membership's role changed between read and write.
	ErrConflict = errors.New("this member's role was changed by someone else; reload and try again")
)

// Store is the persistence the engine needs. *membershipstore.Store satisfies it.
type Store interface {
	Find(ctx context.Context, orgID primitive.ObjectID, userID string) (*models.OrganizationMember, error)
	SetRole(ctx context.Context, id primitive.ObjectID, from, to models.Role) error
	Delete(ctx context.Context, id primitive.ObjectID) (int64, error)
}

// Actor is the user requesting a change.
type Actor struct {
	UserID  string
	IsStaff bool
}

// Action names used in logs and metrics.
const (
	ActionPromote = "promote"
	ActionDemote  = "demote"
	ActionRemove  = "remove"
)

// Engine applies role transitions.
type Engine struct {
	store Store
	log   *zap.Logger
}

func New(store Store, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{store: store, log: logger}
}

// Authorize returns nil if actor may promote or demote within m's organization.
func (e *Engine) Authorize(ctx context.Context, m models.OrganizationMember, actor Actor) error {
	if actor.IsStaff {
		return nil
	}
	if actor.UserID == "" {
		return ErrForbidden
	}
	own, err := e.store.Find(ctx, m.OrgID, actor.UserID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrForbidden
	}
	if err != nil {
		return fmt.Errorf("load actor membership: %w", err)
	}
	if !own.IsApproved || own.Role != models.RoleLeader {
		return ErrForbidden
	}
	return nil
}

// AuthorizeRemoval allows everyone Authorize allows, plus the member themselves.
func (e *Engine) AuthorizeRemoval(ctx context.Context, m models.OrganizationMember, actor Actor) error {
	if actor.UserID != "" && actor.UserID == m.UserID {
		return nil
	}
	return e.Authorize(ctx, m, actor)
}

// Promote moves m one rung up and persists it. On success m.Role is updated
// and the new role returned. Promoting a Leader fails with an error wrapping
// models.ErrNoHigherRole.
func (e *Engine) Promote(ctx context.Context, m *models.OrganizationMember, actor Actor) (models.Role, error) {
	return e.step(ctx, ActionPromote, m, actor, models.Role.Next)
}

// Demote moves m one rung down and persists it. Demoting a Member fails with
// an error wrapping models.ErrNoLowerRole.
func (e *Engine) Demote(ctx context.Context, m *models.OrganizationMember, actor Actor) (models.Role, error) {
	return e.step(ctx, ActionDemote, m, actor, models.Role.Previous)
}

func (e *Engine) step(ctx context.Context, action string, m *models.OrganizationMember, actor Actor, move func(models.Role) (models.Role, error)) (models.Role, error) {
	fields := []zap.Field{
		zap.String("action", action),
		zap.String("membership_id", m.ID.Hex()),
		zap.String("org_id", m.OrgID.Hex()),
		zap.String("user_id", m.UserID),
		zap.String("actor_id", actor.UserID),
		zap.Bool("actor_staff", actor.IsStaff),
	}

	if err := e.Authorize(ctx, *m, actor); err != nil {
		e.count(action, err)
		return m.Role, err
	}

	to, err := move(m.Role)
	if err != nil {
		e.count(action, err)
		return m.Role, err
	}

	if err := e.store.SetRole(ctx, m.ID, m.Role, to); err != nil {
		if errors.Is(err, membershipstore.ErrStaleRole) {
			err = ErrConflict
		} else {
			err = fmt.Errorf("%s: %w", action, err)
		}
		e.count(action, err)
		e.log.Warn("role change not applied", append(fields, zap.Error(err))...)
		return m.Role, err
	}

	e.log.Info("member role changed", append(fields,
		zap.String("from", m.Role.String()),
		zap.String("to", to.String()))...)
	m.Role = to
	e.count(action, nil)
	return to, nil
}

// Remove deletes the membership. It performs no authorization; callers gate
// it with AuthorizeRemoval. Returns mongo.ErrNoDocuments if it was already gone.
func (e *Engine) Remove(ctx context.Context, m models.OrganizationMember) error {
	n, err := e.store.Delete(ctx, m.ID)
	if err == nil && n == 0 {
		err = mongo.ErrNoDocuments
	}
	e.count(ActionRemove, err)
	if err != nil {
		return err
	}
	e.log.Info("member removed",
		zap.String("membership_id", m.ID.Hex()),
		zap.String("org_id", m.OrgID.Hex()),
		zap.String("user_id", m.UserID),
		zap.String("role", m.Role.String()))
	return nil
}

func (e *Engine) count(action string, err error) {
	metrics.RoleChanges.WithLabelValues(action, Outcome(err)).Inc()
}

// Outcome maps an engine error to its metrics label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, ErrForbidden):
		return metrics.OutcomeForbidden
	case errors.Is(err, models.ErrNoHigherRole), errors.Is(err, models.ErrNoLowerRole):
		return metrics.OutcomeBoundary
	case errors.Is(err, ErrConflict):
		return metrics.OutcomeConflict
	case errors.Is(err, mongo.ErrNoDocuments):
		return metrics.OutcomeNotFound
	default:
		return metrics.OutcomeError
	}
}
