package lifecycle

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"visadesk/internal/domain"
	"visadesk/internal/metrics"
	"visadesk/internal/notify"
	"visadesk/internal/workflow"
	apperrors "visadesk/pkg/errors"
)

// SubmitCase creates a case of the given kind. payload must be the
// matching input type.
func (e *Engine) SubmitCase(ctx context.Context, kind domain.Kind, payload any) (domain.Record, error) {
	switch in := payload.(type) {
	case domain.ApplicationInput:
		if kind == domain.KindApplication {
			return e.SubmitApplication(ctx, in)
		}
	case domain.ConsultationInput:
		if kind == domain.KindConsultation {
			return e.SubmitConsultation(ctx, in)
		}
	case domain.InquiryInput:
		if kind == domain.KindInquiry {
			return e.SubmitInquiry(ctx, in)
		}
	default:
		if !kind.IsCase() {
			return nil, unknownKind(kind, "application, consultation, inquiry")
		}
	}
	return nil, apperrors.Validation(fmt.Sprintf("payload %T does not match kind %s", payload, kind),
		map[string]string{"payload": "must be a " + string(kind) + " submission"})
}

// SubmitApplication stores a new pending application
func (e *Engine) SubmitApplication(ctx context.Context, in domain.ApplicationInput) (*domain.Application, error) {
	in.Normalize()
	if err := domain.Validate(in); err != nil {
		return nil, err
	}

	app := domain.NewApplication(in, e.now())
	if err := e.stores.Applications.Create(ctx, app); err != nil {
		e.log.Error("failed to store application", zap.Error(err))
		return nil, err
	}

	metrics.RecordSubmission(string(domain.KindApplication))
	e.log.Info("application submitted",
		zap.Uint("id", app.ID),
		zap.String("destination", app.VisaInfo.DestinationCountry),
		zap.String("visa_type", app.VisaInfo.VisaType))

	ev := notify.NewEvent(notify.CaseCreated, domain.KindApplication, app.ID)
	ev.ContactName, ev.ContactEmail = app.PersonalInfo.FullName, app.PersonalInfo.Email
	ev.Summary = fmt.Sprintf("%s visa for %s", app.VisaInfo.VisaType, app.VisaInfo.DestinationCountry)
	e.emit(ev)
	return app, nil
}

// SubmitConsultation stores a new pending consultation booking
func (e *Engine) SubmitConsultation(ctx context.Context, in domain.ConsultationInput) (*domain.Consultation, error) {
	in.Normalize()
	if err := domain.Validate(in); err != nil {
		return nil, err
	}

	c := domain.NewConsultation(in)
	// a slot that cannot be parsed would only fail later at confirmation
	if _, _, err := c.PreferredSlot(); err != nil {
		return nil, apperrors.Validation("invalid preferred slot",
			map[string]string{"details.preferred_date": "must combine with preferred_time into a valid slot"})
	}
	if err := e.stores.Consultations.Create(ctx, c); err != nil {
		e.log.Error("failed to store consultation", zap.Error(err))
		return nil, err
	}

	metrics.RecordSubmission(string(domain.KindConsultation))
	e.log.Info("consultation booked",
		zap.Uint("id", c.ID),
		zap.String("channel", string(c.Details.Channel)))

	ev := notify.NewEvent(notify.CaseCreated, domain.KindConsultation, c.ID)
	ev.ContactName, ev.ContactEmail = c.ClientInfo.Name, c.ClientInfo.Email
	ev.Summary = fmt.Sprintf("%s consultation about %s (%s)", c.Details.Channel, c.Details.VisaType, c.Details.Country)
	e.emit(ev)
	return c, nil
}

// SubmitInquiry stores a new contact inquiry
func (e *Engine) SubmitInquiry(ctx context.Context, in domain.InquiryInput) (*domain.Inquiry, error) {
	in.Normalize()
	if err := domain.Validate(in); err != nil {
		return nil, err
	}

	inq := domain.NewInquiry(in)
	if err := e.stores.Inquiries.Create(ctx, inq); err != nil {
		e.log.Error("failed to store inquiry", zap.Error(err))
		return nil, err
	}

	metrics.RecordSubmission(string(domain.KindInquiry))
	e.log.Info("inquiry received", zap.Uint("id", inq.ID))

	ev := notify.NewEvent(notify.CaseCreated, domain.KindInquiry, inq.ID)
	ev.ContactName, ev.ContactEmail = inq.Name, inq.Email
	ev.Summary = inq.Subject
	e.emit(ev)
	return inq, nil
}

// Transition moves a case to target. Inquiries moving to replied go
// through ReplyInquiry and need extra.Reply.
func (e *Engine) Transition(ctx context.Context, kind domain.Kind, id uint, target string, extra TransitionExtra) (domain.Record, error) {
	switch kind {
	case domain.KindApplication:
		return e.TransitionApplication(ctx, id, domain.ApplicationStatus(target), extra)
	case domain.KindConsultation:
		return e.TransitionConsultation(ctx, id, domain.ConsultationStatus(target), extra)
	case domain.KindInquiry:
		return e.TransitionInquiry(ctx, id, domain.InquiryStatus(target), extra)
	}
	return nil, unknownKind(kind, "application, consultation, inquiry")
}

// TransitionApplication moves an application along its review graph
func (e *Engine) TransitionApplication(ctx context.Context, id uint, target domain.ApplicationStatus, extra TransitionExtra) (*domain.Application, error) {
	if err := e.requireAdmin(ctx, "transition"); err != nil {
		return nil, err
	}
	app, from, moved, err := advance(ctx, e, e.stores.Applications, workflow.Application, id, target,
		func(a *domain.Application) *domain.ApplicationStatus { return &a.Status },
		func(a *domain.Application, _ bool) (bool, error) {
			if extra.Notes == nil || *extra.Notes == a.AdminNotes {
				return false, nil
			}
			a.AdminNotes = *extra.Notes
			return true, nil
		})
	if err != nil {
		return nil, err
	}
	if moved {
		e.emit(statusEvent(domain.KindApplication, id, string(from), string(target),
			app.PersonalInfo.FullName, app.PersonalInfo.Email))
	}
	return app, nil
}

// TransitionConsultation moves a consultation along its booking graph.
// Confirming schedules the meeting at the preferred slot.
func (e *Engine) TransitionConsultation(ctx context.Context, id uint, target domain.ConsultationStatus, extra TransitionExtra) (*domain.Consultation, error) {
	if err := e.requireAdmin(ctx, "transition"); err != nil {
		return nil, err
	}
	c, from, moved, err := advance(ctx, e, e.stores.Consultations, workflow.Consultation, id, target,
		func(c *domain.Consultation) *domain.ConsultationStatus { return &c.Status },
		func(c *domain.Consultation, moved bool) (bool, error) {
			if moved && c.Status == domain.ConsultationConfirmed {
				slot, ok, err := c.PreferredSlot()
				if err != nil {
					return false, apperrors.Validation("invalid preferred slot",
						map[string]string{"details.preferred_date": err.Error()})
				}
				if !ok {
					return false, apperrors.Validation(
						fmt.Sprintf("consultation %d has no preferred date and time to confirm", id),
						map[string]string{"details.preferred_date": "required to confirm"}).
						WithDetail("current_status", string(domain.ConsultationPending))
				}
				c.ScheduledAt = &slot
			}
			return setNotes(&c.AdminNotes, extra.Notes), nil
		})
	if err != nil {
		return nil, err
	}
	if moved {
		ev := statusEvent(domain.KindConsultation, id, string(from), string(target),
			c.ClientInfo.Name, c.ClientInfo.Email)
		if c.ScheduledAt != nil && target == domain.ConsultationConfirmed {
			ev.Summary = "scheduled for " + c.ScheduledAt.Format("Monday 2 January 2006 at 15:04")
		}
		e.emit(ev)
	}
	return c, nil
}

// TransitionInquiry closes or marks an inquiry. Moving to replied needs
// reply text and is handled by ReplyInquiry.
func (e *Engine) TransitionInquiry(ctx context.Context, id uint, target domain.InquiryStatus, extra TransitionExtra) (*domain.Inquiry, error) {
	if target == domain.InquiryReplied {
		return e.ReplyInquiry(ctx, id, extra.Reply, extra.IdempotencyKey)
	}
	if err := e.requireAdmin(ctx, "transition"); err != nil {
		return nil, err
	}
	inq, from, moved, err := advance(ctx, e, e.stores.Inquiries, workflow.Inquiry, id, target,
		func(i *domain.Inquiry) *domain.InquiryStatus { return &i.Status }, nil)
	if err != nil {
		return nil, err
	}
	if moved && target != domain.InquiryRead {
		e.emit(statusEvent(domain.KindInquiry, id, string(from), string(target), inq.Name, inq.Email))
	}
	return inq, nil
}

// ViewInquiry returns an inquiry to an administrator. The first view of a
// new inquiry persists the move to read before returning.
func (e *Engine) ViewInquiry(ctx context.Context, id uint) (*domain.Inquiry, error) {
	if err := e.requireAdmin(ctx, "view inquiry"); err != nil {
		return nil, err
	}
	inq, err := e.stores.Inquiries.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if inq.Status != domain.InquiryNew {
		return inq, nil
	}

	inq, _, _, err = advance(ctx, e, e.stores.Inquiries, workflow.Inquiry, id, domain.InquiryRead,
		func(i *domain.Inquiry) *domain.InquiryStatus { return &i.Status }, nil)
	if err == nil {
		return inq, nil
	}
	if !apperrors.IsConflict(err) && !apperrors.IsIllegalTransition(err) {
		return nil, err
	}
	// another administrator moved it first; show what is stored now
	return e.stores.Inquiries.Get(ctx, id)
}

// ReplyInquiry records the administrator's reply and moves the inquiry to
// replied. Replying again to a replied inquiry is a no-op. A non-empty key
// makes a retried reply return the stored inquiry without a second effect.
func (e *Engine) ReplyInquiry(ctx context.Context, id uint, text, key string) (*domain.Inquiry, error) {
	if err := e.requireAdmin(ctx, "reply"); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		metrics.RecordTransitionFailure(string(domain.KindInquiry), string(apperrors.ErrCodeValidation))
		return nil, apperrors.Validation("reply text is required",
			map[string]string{"reply": "must not be empty"})
	}

	if key = strings.TrimSpace(key); key != "" {
		k := fmt.Sprintf("inquiry:%d:reply:%s", id, key)
		first, err := e.keys.MarkProcessed(ctx, k, e.keyTTL)
		if err != nil {
			return nil, apperrors.Unavailable("idempotency store unavailable", err)
		}
		if !first {
			e.log.Info("duplicate reply ignored", zap.Uint("id", id))
			return e.stores.Inquiries.Get(ctx, id)
		}
		inq, err := e.reply(ctx, id, text)
		if err != nil {
			if rerr := e.keys.Release(context.WithoutCancel(ctx), k); rerr != nil {
				e.log.Warn("failed to release idempotency key", zap.String("key", k), zap.Error(rerr))
			}
			return nil, err
		}
		return inq, nil
	}
	return e.reply(ctx, id, text)
}

func (e *Engine) reply(ctx context.Context, id uint, text string) (*domain.Inquiry, error) {
	inq, from, moved, err := advance(ctx, e, e.stores.Inquiries, workflow.Inquiry, id, domain.InquiryReplied,
		func(i *domain.Inquiry) *domain.InquiryStatus { return &i.Status },
		func(i *domain.Inquiry, moved bool) (bool, error) {
			if !moved {
				return false, nil
			}
			now := e.now()
			i.AdminReply = &text
			i.RepliedAt = &now
			return true, nil
		})
	if err != nil {
		return nil, err
	}
	if moved {
		ev := notify.NewEvent(notify.InquiryReplied, domain.KindInquiry, id)
		ev.From, ev.To = string(from), string(domain.InquiryReplied)
		ev.ContactName, ev.ContactEmail = inq.Name, inq.Email
		ev.Summary = inq.Subject
		ev.Reply = text
		e.emit(ev)
	}
	return inq, nil
}

// UpdateApplicationNotes replaces the admin notes without touching the status
func (e *Engine) UpdateApplicationNotes(ctx context.Context, id uint, notes string) (*domain.Application, error) {
	if err := e.requireAdmin(ctx, "update notes"); err != nil {
		return nil, err
	}
	return e.stores.Applications.Update(ctx, id, func(a *domain.Application) error {
		a.AdminNotes = strings.TrimSpace(notes)
		return nil
	})
}

// UpdateConsultationNotes replaces the admin notes without touching the status
func (e *Engine) UpdateConsultationNotes(ctx context.Context, id uint, notes string) (*domain.Consultation, error) {
	if err := e.requireAdmin(ctx, "update notes"); err != nil {
		return nil, err
	}
	return e.stores.Consultations.Update(ctx, id, func(c *domain.Consultation) error {
		n := strings.TrimSpace(notes)
		setNotes(&c.AdminNotes, &n)
		return nil
	})
}

// AttachDocument appends a document reference to an application. A
// document without a path gets a generated storage key.
func (e *Engine) AttachDocument(ctx context.Context, id uint, doc domain.Document) (*domain.Application, error) {
	if err := e.requireAdmin(ctx, "attach document"); err != nil {
		return nil, err
	}
	doc.Name = strings.TrimSpace(doc.Name)
	doc.Path = strings.TrimSpace(doc.Path)
	if doc.Path == "" && doc.Name != "" {
		doc.Path = fmt.Sprintf("applications/%d/%s/%s", id, uuid.NewString(), doc.Name)
	}
	if err := domain.Validate(doc); err != nil {
		return nil, err
	}
	doc.UploadedAt = e.now()

	app, err := e.stores.Applications.Update(ctx, id, func(a *domain.Application) error {
		a.Documents = append(a.Documents, doc)
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.log.Info("document attached", zap.Uint("id", id), zap.Int("documents", len(app.Documents)))
	return app, nil
}

// setNotes stores notes when they differ and reports whether they did.
// Empty notes clear the field.
func setNotes(dst **string, notes *string) bool {
	if notes == nil {
		return false
	}
	n := strings.TrimSpace(*notes)
	if n == "" {
		changed := *dst != nil
		*dst = nil
		return changed
	}
	if *dst != nil && **dst == n {
		return false
	}
	*dst = &n
	return true
}
