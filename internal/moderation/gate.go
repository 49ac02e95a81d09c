// Package moderation controls public visibility of user-submitted content.
package moderation

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"visadesk/internal/domain"
	"visadesk/internal/store"
	"visadesk/internal/workflow"
	apperrors "visadesk/pkg/errors"
)

// Decision is an administrator's verdict on a submission
type Decision string

const (
	Approve Decision = "approve"
	Reject  Decision = "reject"
)

// Target maps a decision onto the moderation state it produces
func (d Decision) Target() (domain.ModerationStatus, error) {
	switch d {
	case Approve:
		return domain.ModerationApproved, nil
	case Reject:
		return domain.ModerationRejected, nil
	}
	return "", apperrors.Validation(fmt.Sprintf("unknown decision %q", d),
		map[string]string{"decision": "must be approve or reject"})
}

// Moderated is implemented by entities held behind the gate
type Moderated interface {
	domain.Record
	ModerationState() domain.ModerationStatus
	SetModeration(domain.ModerationStatus)
}

// Gate runs submissions of one content kind through moderation.
// Rejected entities are kept and marked, never deleted, so a rejection
// is auditable and cannot be undone by resubmitting the same id.
type Gate[T any, P interface {
	*T
	Moderated
}] struct {
	store store.Store[T]
	log   *zap.Logger
}

// NewGate creates a gate over s
func NewGate[T any, P interface {
	*T
	Moderated
}](s store.Store[T], log *zap.Logger) *Gate[T, P] {
	return &Gate[T, P]{store: s, log: log}
}

// Submit stores e as pending regardless of what the caller set
func (g *Gate[T, P]) Submit(ctx context.Context, e *T) error {
	P(e).SetModeration(domain.ModerationPending)
	if err := g.store.Create(ctx, e); err != nil {
		return err
	}
	g.log.Info("content submitted for moderation",
		zap.String("kind", string(P(e).Kind())),
		zap.Uint("id", P(e).Meta().ID))
	return nil
}

// Decide applies a decision. Repeating the decision already in effect is a
// no-op; reversing a rejection fails with IllegalTransition.
func (g *Gate[T, P]) Decide(ctx context.Context, id uint, d Decision) (*T, bool, error) {
	target, err := d.Target()
	if err != nil {
		return nil, false, err
	}
	e, err := g.store.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	p := P(e)
	from := p.ModerationState()
	noop, err := workflow.Moderation.Check(id, from, target)
	if err != nil {
		return nil, false, err
	}
	if noop {
		return e, false, nil
	}
	p.SetModeration(target)
	if err := g.store.Save(ctx, e); err != nil {
		return nil, false, err
	}
	g.log.Info("moderation decision applied",
		zap.String("kind", string(p.Kind())),
		zap.Uint("id", id),
		zap.String("from", string(from)),
		zap.String("to", string(target)))
	return e, true, nil
}

// Public lists approved entities matching f
func (g *Gate[T, P]) Public(ctx context.Context, f store.Filter) ([]*T, error) {
	where := map[string]any{"moderation": domain.ModerationApproved}
	for k, v := range f.Where {
		if k == "moderation" || k == "is_approved" {
			continue
		}
		where[k] = v
	}
	f.Where = where
	return g.store.List(ctx, f)
}

// Pending counts submissions awaiting a decision
func (g *Gate[T, P]) Pending(ctx context.Context) (int64, error) {
	return g.store.Count(ctx, store.Eq("moderation", domain.ModerationPending))
}
