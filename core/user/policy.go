package user

import "github.com/trezcool/academia/core"

var ErrForbidden = core.NewError(core.CodeForbidden, "permission denied")

// Action is an operation subject to authorization.
type Action string

const (
	ActionEnroll          Action = "course:enroll"
	ActionReportProgress  Action = "course:report_progress"
	ActionViewRoster      Action = "course:view_roster"
	ActionSubmitAttempt   Action = "quiz:submit_attempt"
	ActionViewQuizResults Action = "quiz:view_results"
)

// Actor is the caller identity, as asserted by the auth collaborator.
type Actor struct {
	ID    string
	Name  string
	Email string
	Roles []string
}

func (a Actor) IsAdmin() bool   { return rolesStartWith(a.Roles, RoleAdmin) }
func (a Actor) IsTeacher() bool { return rolesStartWith(a.Roles, RoleTeacher) }
func (a Actor) IsStudent() bool { return rolesStartWith(a.Roles, RoleStudent) }

// Authorizer decides whether an actor may perform an action on a resource owned by ownerID.
type Authorizer interface {
	Authorize(actor Actor, action Action, ownerID string) error
}

// Policy is the default role based Authorizer:
//  - students enroll, report progress and submit attempts for themselves;
//  - results and rosters are visible to admins and to the teacher owning the course.
type Policy struct{}

var _ Authorizer = Policy{}

func (Policy) Authorize(actor Actor, action Action, ownerID string) error {
	if actor.ID == "" {
		return ErrForbidden
	}
	switch action {
	case ActionEnroll, ActionReportProgress, ActionSubmitAttempt:
		if actor.IsStudent() {
			return nil
		}
	case ActionViewQuizResults, ActionViewRoster:
		if actor.IsAdmin() {
			return nil
		}
		if actor.IsTeacher() && ownerID != "" && actor.ID == ownerID {
			return nil
		}
	}
	return ErrForbidden
}
