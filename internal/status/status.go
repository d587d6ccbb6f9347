// Package status projects a stored user record onto the closed set of
// conversation states that drive the main menu.
//
// Resolve is a pure function: it never touches the store and never mutates
// the record. Every entry point (/start, "back to main", the admin API)
// recomputes the status from the current record.
package status

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"coachbot/internal/course"
	"coachbot/internal/questionnaire"
)

// Tag is the resolved conversation state.
type Tag string

const (
	NewUser                 Tag = "NEW_USER"
	ReturningUser           Tag = "RETURNING_USER"
	PaymentPending          Tag = "PAYMENT_PENDING"
	PaymentRejected         Tag = "PAYMENT_REJECTED"
	QuestionnaireInProgress Tag = "QUESTIONNAIRE_IN_PROGRESS"
	ProgramReady            Tag = "PROGRAM_READY"
)

// Tags lists every tag in resolver priority order.
var Tags = []Tag{PaymentRejected, PaymentPending, QuestionnaireInProgress, ProgramReady, NewUser, ReturningUser}

// Payment is the payment workflow state of a user.
type Payment string

const (
	PaymentNone     Payment = "none"
	PaymentWaiting  Payment = "pending_approval"
	PaymentApproved Payment = "approved"
	PaymentDenied   Payment = "rejected"
)

var (
	// ErrRecordCorrupt marks a stored record with a missing or invalid field.
	ErrRecordCorrupt = errors.New("user record corrupt")
	// ErrStoreUnavailable is what callers see when the record cannot be
	// read or trusted. It wraps the underlying cause.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// ParsePayment converts a stored value into a Payment. Empty maps to none.
func ParsePayment(s string) (Payment, error) {
	switch p := Payment(strings.TrimSpace(s)); p {
	case "", PaymentNone:
		return PaymentNone, nil
	case PaymentWaiting, PaymentApproved, PaymentDenied:
		return p, nil
	default:
		return PaymentNone, fmt.Errorf("%w: unknown payment status %q", ErrRecordCorrupt, s)
	}
}

// Record is the typed snapshot of a user the resolver works on.
type Record struct {
	UserID          string
	Course          course.Code
	Payment         Payment
	Step            int
	Completed       bool
	PaymentAttempts int
	// CourseEverSelected is set the first time the user chooses a course and
	// never cleared, so a user who backed out is not treated as new again.
	CourseEverSelected bool
	LastInteraction    time.Time
}

// Violation is a bit set of invariant breaches found while resolving.
type Violation uint8

const (
	// CompletedBeforeLastStep: completed is set but the step cursor is below 17.
	CompletedBeforeLastStep Violation = 1 << iota
	// CompletedWithoutApproval: completed is set but payment is not approved.
	CompletedWithoutApproval
	// PendingWithoutCourse: payment awaits approval but no course is recorded.
	PendingWithoutCourse
	// LastStepNotCompleted: cursor sits on step 17 but completed is false.
	LastStepNotCompleted
)

var violationNames = []struct {
	v    Violation
	name string
}{
	{CompletedBeforeLastStep, "completed_before_last_step"},
	{CompletedWithoutApproval, "completed_without_approval"},
	{PendingWithoutCourse, "pending_without_course"},
	{LastStepNotCompleted, "last_step_not_completed"},
}

// Has reports whether flag is set.
func (v Violation) Has(flag Violation) bool { return v&flag != 0 }

// Names returns the flag names, for logging.
func (v Violation) Names() []string {
	var out []string
	for _, n := range violationNames {
		if v.Has(n.v) {
			out = append(out, n.name)
		}
	}
	return out
}

func (v Violation) String() string {
	if v == 0 {
		return "none"
	}
	return strings.Join(v.Names(), ",")
}

// Result is the resolver output plus the data the menu needs to render it.
type Result struct {
	Tag         Tag
	ResumeStep  int
	Course      course.Code
	CourseLabel string
	Violations  Violation
}

// Validate reports ErrRecordCorrupt for fields outside their domain.
func (r Record) Validate() error {
	if r.Step < 0 || r.Step > questionnaire.TotalSteps {
		return fmt.Errorf("%w: questionnaire step %d out of range", ErrRecordCorrupt, r.Step)
	}
	switch r.Payment {
	case PaymentNone, PaymentWaiting, PaymentApproved, PaymentDenied:
	default:
		return fmt.Errorf("%w: unknown payment status %q", ErrRecordCorrupt, r.Payment)
	}
	if _, err := course.Parse(string(r.Course)); err != nil {
		return fmt.Errorf("%w: %v", ErrRecordCorrupt, err)
	}
	if r.PaymentAttempts < 0 {
		return fmt.Errorf("%w: negative payment attempts", ErrRecordCorrupt)
	}
	return nil
}

// FirstSeen reports whether the user has no course or payment history.
func (r Record) FirstSeen() bool {
	return (r.Course == course.None || r.Course == "") && !r.CourseEverSelected && r.PaymentAttempts == 0
}

// Check returns the invariant violations present in r.
func Check(r Record) Violation {
	var v Violation
	if r.Completed && r.Step < questionnaire.TotalSteps {
		v |= CompletedBeforeLastStep
	}
	if r.Completed && r.Payment != PaymentApproved {
		v |= CompletedWithoutApproval
	}
	if r.Payment == PaymentWaiting && (r.Course == course.None || r.Course == "") {
		v |= PendingWithoutCourse
	}
	if r.Step == questionnaire.TotalSteps && !r.Completed {
		v |= LastStepNotCompleted
	}
	return v
}

// Resolve maps r onto a Tag. Payment and questionnaire state take precedence
// over the new/returning split so a paying user is never sent back to the
// course picker. r is expected to have passed Validate.
func Resolve(r Record) Result {
	res := Result{
		Course:      r.Course,
		CourseLabel: course.Label(r.Course),
		Violations:  Check(r),
	}

	switch {
	case r.Payment == PaymentDenied:
		res.Tag = PaymentRejected
	case r.Payment == PaymentWaiting:
		res.Tag = PaymentPending
	case r.Payment == PaymentApproved && !r.Completed:
		res.Tag = QuestionnaireInProgress
		res.ResumeStep = r.Step
	case r.Payment == PaymentApproved && r.Completed:
		res.Tag = ProgramReady
		res.ResumeStep = questionnaire.TotalSteps
	case r.FirstSeen():
		res.Tag = NewUser
	default:
		res.Tag = ReturningUser
	}
	return res
}

// ResolveChecked validates r before resolving it. A corrupt record is
// reported as ErrStoreUnavailable wrapping ErrRecordCorrupt.
func ResolveChecked(r Record) (Result, error) {
	if err := r.Validate(); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return Resolve(r), nil
}
