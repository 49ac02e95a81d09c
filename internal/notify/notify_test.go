package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/smtp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"visadesk/internal/config"
	"visadesk/internal/domain"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (r *recordingSink) Name() string { return "recording" }

func (r *recordingSink) Notify(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func TestNewEvent(t *testing.T) {
	ev := NewEvent(CaseCreated, domain.KindApplication, 3)
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, uint(3), ev.EntityID)
	assert.False(t, ev.OccurredAt.IsZero())
}

func TestDispatcherDeliversToEverySink(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	ok := &recordingSink{}
	failing := &recordingSink{err: errors.New("smtp down")}
	d := NewDispatcher(zap.New(core), time.Second, ok, failing)

	d.Dispatch(NewEvent(CaseStatusChanged, domain.KindConsultation, 1))
	require.NoError(t, d.Wait(context.Background()))

	assert.Len(t, ok.events, 1)
	assert.Len(t, failing.events, 1)
	assert.Equal(t, 1, logs.FilterMessage("notification failed").Len())
}

func TestKafkaMessage(t *testing.T) {
	ev := NewEvent(InquiryReplied, domain.KindInquiry, 12)
	msg, err := message(ev)
	require.NoError(t, err)

	assert.Equal(t, "inquiry:12", string(msg.Key))
	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, ev.ID, decoded.ID)
	assert.Equal(t, InquiryReplied, decoded.Type)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
}

func TestEmailCompose(t *testing.T) {
	s := NewEmailSink(config.EmailConfig{AdminEmail: "office@visadesk.com", FromName: "VisaDesk"}, zap.NewNop())

	created := NewEvent(CaseCreated, domain.KindApplication, 4)
	created.ContactName = "Asha"
	to, subject, body := s.compose(created)
	assert.Equal(t, "office@visadesk.com", to)
	assert.Equal(t, "New application #4", subject)
	assert.Contains(t, body, "Asha")

	changed := NewEvent(CaseStatusChanged, domain.KindConsultation, 5)
	changed.ContactEmail = "client@example.com"
	changed.From, changed.To = "pending", "confirmed"
	to, subject, _ = s.compose(changed)
	assert.Equal(t, "client@example.com", to)
	assert.Contains(t, subject, "confirmed")

	reply := NewEvent(InquiryReplied, domain.KindInquiry, 6)
	reply.ContactEmail = "client@example.com"
	reply.Summary = "Work permit"
	reply.Reply = "Yes, you qualify."
	_, subject, body = s.compose(reply)
	assert.Equal(t, "Re: Work permit", subject)
	assert.Contains(t, body, "Yes, you qualify.")
}

func TestEmailSendsMultipart(t *testing.T) {
	var sent []byte
	var rcpt []string
	s := NewEmailSink(config.EmailConfig{
		Enabled: true, SMTPHost: "smtp.example.com", SMTPPort: 587,
		Username: "u", Password: "p", FromEmail: "noreply@visadesk.com", FromName: "VisaDesk",
	}, zap.NewNop())
	s.sendMail = func(addr string, _ smtp.Auth, _ string, to []string, msg []byte) error {
		assert.Equal(t, "smtp.example.com:587", addr)
		rcpt, sent = to, msg
		return nil
	}

	ev := NewEvent(InquiryReplied, domain.KindInquiry, 1)
	ev.ContactEmail = "client@example.com"
	ev.Reply = "<b>hi</b>"
	require.NoError(t, s.Notify(context.Background(), ev))

	assert.Equal(t, []string{"client@example.com"}, rcpt)
	msg := string(sent)
	assert.Contains(t, msg, "From: VisaDesk <noreply@visadesk.com>")
	assert.Contains(t, msg, "multipart/alternative")
	assert.Contains(t, msg, "&lt;b&gt;hi&lt;/b&gt;")
	assert.Equal(t, 3, strings.Count(msg, "--"+boundaryOf(msg)))
}

func boundaryOf(msg string) string {
	const marker = `boundary="`
	i := strings.Index(msg, marker) + len(marker)
	return msg[i : i+strings.Index(msg[i:], `"`)]
}

func TestEmailSkipsWithoutRecipient(t *testing.T) {
	s := NewEmailSink(config.EmailConfig{Enabled: true}, zap.NewNop())
	s.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("should not send")
		return nil
	}
	// no admin address configured
	assert.NoError(t, s.Notify(context.Background(), NewEvent(CaseCreated, domain.KindInquiry, 1)))
}

func TestEmailMisconfigured(t *testing.T) {
	s := NewEmailSink(config.EmailConfig{Enabled: true, AdminEmail: "office@visadesk.com"}, zap.NewNop())
	err := s.Notify(context.Background(), NewEvent(CaseCreated, domain.KindInquiry, 1))
	assert.ErrorContains(t, err, "not properly configured")
}
