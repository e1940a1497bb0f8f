package applications

import "time"

// Status is an application's position in the hiring pipeline.
type Status string

const (
	StatusApplied       Status = "applied"
	StatusScreening     Status = "screening"
	StatusInterviewed   Status = "interviewed"
	StatusOffered       Status = "offered"
	StatusPreHireChecks Status = "prehire_checks"
	StatusHired         Status = "hired"
	StatusRejected      Status = "rejected"
	StatusWithdrawn     Status = "withdrawn"
)

// transitions is the closed adjacency table: from -> allowed targets.
// Rejected and Withdrawn are side exits from every non-terminal state;
// the terminal states have no outgoing edges.
var transitions = map[Status][]Status{
	StatusApplied:       {StatusScreening, StatusRejected, StatusWithdrawn},
	StatusScreening:     {StatusInterviewed, StatusRejected, StatusWithdrawn},
	StatusInterviewed:   {StatusOffered, StatusRejected, StatusWithdrawn},
	StatusOffered:       {StatusPreHireChecks, StatusRejected, StatusWithdrawn},
	StatusPreHireChecks: {StatusHired, StatusRejected, StatusWithdrawn},
	StatusHired:         {},
	StatusRejected:      {},
	StatusWithdrawn:     {},
}

// stageOrder positions the progress states for screening-or-later checks.
// Side exits are absent on purpose: a rejected or withdrawn application has
// no stage.
var stageOrder = map[Status]int{
	StatusApplied:       0,
	StatusScreening:     1,
	StatusInterviewed:   2,
	StatusOffered:       3,
	StatusPreHireChecks: 4,
	StatusHired:         5,
}

// ValidStatus reports whether s is a known pipeline status.
func ValidStatus(s Status) bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal reports whether no further transition is permitted from s.
func IsTerminal(s Status) bool {
	targets, ok := transitions[s]
	return ok && len(targets) == 0
}

// CanTransition reports whether the pipeline permits moving from one status
// to another.
func CanTransition(from, to Status) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// ScreeningOrLater reports whether s has reached screening. Rejected and
// withdrawn return false.
func ScreeningOrLater(s Status) bool {
	order, ok := stageOrder[s]
	return ok && order >= stageOrder[StatusScreening]
}

// Application represents one candidate's attempt to fill one job.
type Application struct {
	ID              string
	JobID           string
	CandidateID     string
	OrganizationID  string
	Status          Status
	RejectionReason string

	AppliedAt        time.Time
	ScreenedAt       *time.Time
	InterviewedAt    *time.Time
	OfferedAt        *time.Time
	PreHireStartedAt *time.Time
	HiredAt          *time.Time
	RejectedAt       *time.Time
	WithdrawnAt      *time.Time

	// Version stamps optimistic writes: a status update only applies when
	// the stored version still matches, so concurrent advances surface as
	// ErrConflict instead of silently racing.
	Version int

	IsDeleted bool
	DeletedAt *time.Time
	DeletedBy string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// setMilestone stamps the timestamp that corresponds to entering a status.
func setMilestone(app *Application, to Status, now time.Time) {
	switch to {
	case StatusScreening:
		app.ScreenedAt = &now
	case StatusInterviewed:
		app.InterviewedAt = &now
	case StatusOffered:
		app.OfferedAt = &now
	case StatusPreHireChecks:
		app.PreHireStartedAt = &now
	case StatusHired:
		app.HiredAt = &now
	case StatusRejected:
		app.RejectedAt = &now
	case StatusWithdrawn:
		app.WithdrawnAt = &now
	}
}

// StatusHistory is one immutable transition record. FromStatus is nil for
// the creation row.
type StatusHistory struct {
	ID             string
	ApplicationID  string
	FromStatus     *Status
	ToStatus       Status
	ActorID        string
	Note           string
	PreHireFlagged bool
	PreHireText    string
	CreatedAt      time.Time
}

// PreHireConfirmation is a one-time attestation recorded before an
// application may enter the hired state. The text snapshot and its version
// capture exactly what the confirming staff member saw.
type PreHireConfirmation struct {
	ID                   string
	ApplicationID        string
	ConfirmedByUserID    string
	RightToWorkConfirmed bool
	ConfirmationText     string
	TextVersion          int
	CreatedAt            time.Time
}
