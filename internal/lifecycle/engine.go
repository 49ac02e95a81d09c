// Package lifecycle is the Case Lifecycle Engine. It authorizes each
// operation, runs it through the state machines or the moderation gate,
// persists the result and emits notifications once the change is stored.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"visadesk/internal/auth"
	"visadesk/internal/dashboard"
	"visadesk/internal/domain"
	"visadesk/internal/idempotency"
	"visadesk/internal/metrics"
	"visadesk/internal/moderation"
	"visadesk/internal/notify"
	"visadesk/internal/store"
	"visadesk/internal/workflow"
	apperrors "visadesk/pkg/errors"
)

// Notifier receives lifecycle events after the change they describe is stored
type Notifier interface {
	Dispatch(ev notify.Event)
}

// Stores are the entity stores the engine writes to
type Stores = dashboard.Sources

// Deps wires the engine's collaborators
type Deps struct {
	Stores     Stores
	Authorizer auth.Authorizer
	Keys       idempotency.Store
	KeyTTL     time.Duration
	Notifier   Notifier
	Log        *zap.Logger
	// SlugAttempts bounds the suffixes tried for one title
	SlugAttempts int
	// RecentCases caps the recent applications and inquiries on the dashboard
	RecentCases int
	Now         func() time.Time
}

// TransitionExtra carries optional data that accompanies a status change
type TransitionExtra struct {
	Notes *string `json:"notes,omitempty"`
	// Reply and IdempotencyKey are used when an inquiry moves to replied
	Reply          string `json:"reply,omitempty"`
	IdempotencyKey string `json:"-"`
}

// Engine runs every lifecycle operation
type Engine struct {
	stores       Stores
	authz        auth.Authorizer
	keys         idempotency.Store
	keyTTL       time.Duration
	notifier     Notifier
	log          *zap.Logger
	slugAttempts int
	now          func() time.Time

	testimonials *moderation.Gate[domain.Testimonial, *domain.Testimonial]
	comments     *moderation.Gate[domain.BlogComment, *domain.BlogComment]
	aggregator   *dashboard.Aggregator
}

type nopNotifier struct{}

func (nopNotifier) Dispatch(notify.Event) {}

// New creates an engine. Every store and the authorizer are required.
func New(d Deps) (*Engine, error) {
	s := d.Stores
	if s.Applications == nil || s.Consultations == nil || s.Inquiries == nil ||
		s.Testimonials == nil || s.Posts == nil || s.Comments == nil {
		return nil, errors.New("lifecycle: every entity store is required")
	}
	if d.Authorizer == nil {
		return nil, errors.New("lifecycle: authorizer is required")
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Keys == nil {
		d.Keys = idempotency.NewCacheStore(24 * time.Hour)
	}
	if d.KeyTTL <= 0 {
		d.KeyTTL = 24 * time.Hour
	}
	if d.Notifier == nil {
		d.Notifier = nopNotifier{}
	}
	if d.SlugAttempts <= 0 {
		d.SlugAttempts = 50
	}
	if d.RecentCases <= 0 {
		d.RecentCases = 5
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}

	log := d.Log.Named("lifecycle")
	return &Engine{
		stores:       s,
		authz:        d.Authorizer,
		keys:         d.Keys,
		keyTTL:       d.KeyTTL,
		notifier:     d.Notifier,
		log:          log,
		slugAttempts: d.SlugAttempts,
		now:          d.Now,
		testimonials: moderation.NewGate[domain.Testimonial, *domain.Testimonial](s.Testimonials, log),
		comments:     moderation.NewGate[domain.BlogComment, *domain.BlogComment](s.Comments, log),
		aggregator:   dashboard.NewAggregator(s, d.RecentCases),
	}, nil
}

func (e *Engine) requireAdmin(ctx context.Context, op string) error {
	if e.authz.IsAdmin(ctx) {
		return nil
	}
	return apperrors.Unauthorized(op + " requires an administrator")
}

// Dashboard computes the administrator overview
func (e *Engine) Dashboard(ctx context.Context) (*dashboard.Stats, error) {
	if err := e.requireAdmin(ctx, "dashboard"); err != nil {
		return nil, err
	}
	return e.aggregator.Compute(ctx)
}

// advance moves the entity behind id to target. effect runs after the
// status is set and may change other fields; it reports whether it did.
// The caller's entity is written back only when something changed, and a
// lost race surfaces as Conflict carrying the status now stored.
func advance[T any, S ~string](
	ctx context.Context,
	e *Engine,
	s store.Store[T],
	m *workflow.Machine[S],
	id uint,
	target S,
	state func(*T) *S,
	effect func(ent *T, moved bool) (bool, error),
) (ent *T, from S, moved bool, err error) {
	defer func() {
		if err != nil {
			metrics.RecordTransitionFailure(m.Kind(), string(apperrors.CodeOf(err)))
		}
	}()

	ent, err = s.Get(ctx, id)
	if err != nil {
		return nil, "", false, err
	}
	from = *state(ent)

	noop, err := m.Check(id, from, target)
	if err != nil {
		return nil, from, false, err
	}
	if !noop {
		*state(ent) = target
	}

	dirty := false
	if effect != nil {
		if dirty, err = effect(ent, !noop); err != nil {
			return nil, from, false, err
		}
	}
	if noop && !dirty {
		return ent, from, false, nil
	}

	// Save compares versions, so a concurrent writer makes this fail
	if err := s.Save(ctx, ent); err != nil {
		if appErr, ok := apperrors.As(err); ok && appErr.Code == apperrors.ErrCodeConflict {
			if cur, gerr := s.Get(ctx, id); gerr == nil {
				appErr.WithDetail("current_status", string(*state(cur))).
					WithDetail("requested_status", string(target))
			}
		}
		return nil, from, false, err
	}

	if !noop {
		metrics.RecordTransition(m.Kind(), string(from), string(target))
		e.log.Info("status changed",
			zap.String("kind", m.Kind()),
			zap.Uint("id", id),
			zap.String("from", string(from)),
			zap.String("to", string(target)))
	}
	return ent, from, !noop, nil
}

// emit stamps the event and hands it to the notifier
func (e *Engine) emit(ev notify.Event) {
	ev.OccurredAt = e.now()
	e.notifier.Dispatch(ev)
}

func statusEvent(kind domain.Kind, id uint, from, to, name, email string) notify.Event {
	ev := notify.NewEvent(notify.CaseStatusChanged, kind, id)
	ev.From, ev.To = from, to
	ev.ContactName, ev.ContactEmail = name, email
	return ev
}

func unknownKind(kind domain.Kind, allowed string) error {
	return apperrors.Validation(fmt.Sprintf("unsupported kind %q", kind),
		map[string]string{"kind": "must be one of " + allowed})
}
