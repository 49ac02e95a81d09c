package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visadesk/internal/domain"
	apperrors "visadesk/pkg/errors"
)

// edgeSet flattens a machine into "from>to" keys
func edgeSet[S ~string](m *Machine[S]) map[string]bool {
	out := make(map[string]bool)
	for _, from := range m.States() {
		for _, to := range m.Targets(from) {
			out[string(from)+">"+string(to)] = true
		}
	}
	return out
}

// checkExhaustive walks every ordered pair of states and compares Check
// against the expected edge set.
func checkExhaustive[S ~string](t *testing.T, m *Machine[S], want map[string]bool) {
	t.Helper()
	assert.Equal(t, want, edgeSet(m))
	for _, from := range m.States() {
		for _, to := range m.States() {
			noop, err := m.Check(uint(1), from, to)
			switch {
			case from == to:
				assert.True(t, noop, "%s>%s", from, to)
				assert.NoError(t, err)
			case want[string(from)+">"+string(to)]:
				assert.False(t, noop)
				assert.NoError(t, err, "%s>%s", from, to)
			default:
				assert.True(t, apperrors.IsIllegalTransition(err), "%s>%s should be illegal", from, to)
			}
		}
	}
}

func TestApplicationTable(t *testing.T) {
	checkExhaustive(t, Application, map[string]bool{
		"pending>under-review":  true,
		"under-review>approved": true,
		"under-review>rejected": true,
		"approved>completed":    true,
	})
	assert.Equal(t, domain.ApplicationPending, Application.Initial())
	assert.True(t, Application.Terminal(domain.ApplicationRejected))
	assert.True(t, Application.Terminal(domain.ApplicationCompleted))
	assert.False(t, Application.Terminal(domain.ApplicationApproved))
}

func TestConsultationTable(t *testing.T) {
	checkExhaustive(t, Consultation, map[string]bool{
		"pending>confirmed":   true,
		"pending>cancelled":   true,
		"confirmed>completed": true,
		"confirmed>cancelled": true,
	})
	assert.True(t, Consultation.Terminal(domain.ConsultationCancelled))
	assert.True(t, Consultation.Terminal(domain.ConsultationCompleted))
}

func TestInquiryTable(t *testing.T) {
	checkExhaustive(t, Inquiry, map[string]bool{
		"new>read":       true,
		"new>closed":     true,
		"read>replied":   true,
		"read>closed":    true,
		"replied>closed": true,
	})
	assert.Equal(t, domain.InquiryNew, Inquiry.Initial())
}

func TestModerationTable(t *testing.T) {
	checkExhaustive(t, Moderation, map[string]bool{
		"pending>approved":  true,
		"pending>rejected":  true,
		"approved>rejected": true,
	})
}

// every enum value must be a state and every state an enum value
func TestTablesCoverEnums(t *testing.T) {
	assert.ElementsMatch(t, domain.ApplicationStatuses, Application.States())
	assert.ElementsMatch(t, domain.ConsultationStatuses, Consultation.States())
	assert.ElementsMatch(t, domain.InquiryStatuses, Inquiry.States())
	assert.ElementsMatch(t, domain.ModerationStatuses, Moderation.States())
}

func TestIllegalTransitionDetails(t *testing.T) {
	_, err := Application.Check(uint(9), domain.ApplicationPending, domain.ApplicationApproved)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeIllegalTransition, appErr.Code)
	assert.Equal(t, "pending", appErr.Details["current_status"])
	assert.Equal(t, "approved", appErr.Details["requested_status"])
	assert.Equal(t, uint(9), appErr.Details["id"])
}

func TestUnknownTargetIsValidation(t *testing.T) {
	_, err := Consultation.Check(uint(1), domain.ConsultationPending, "archived")
	assert.True(t, apperrors.IsValidation(err))
}
