package applications

import (
	"context"
	"errors"

	"recruit-backend/internal/eligibility"
	"recruit-backend/internal/orgs"
)

// Facade is the read-only view of pipeline state handed to other
// subsystems. It answers the two eligibility questions and nothing else; a
// missing application reads as ineligible, never as an error.
type Facade struct {
	Repo  Repo
	Staff orgs.Repo
}

// IsApplicationInScreeningOrLater reports whether the application belongs
// to the organization and has progressed to screening or beyond.
func (f *Facade) IsApplicationInScreeningOrLater(ctx context.Context, applicationID, organizationID string) (bool, error) {
	app, err := f.Repo.GetByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if app.OrganizationID != organizationID {
		return false, nil
	}
	return ScreeningOrLater(app.Status), nil
}

// IsUserInApplication reports whether the user is the candidate on the
// application or active staff of the owning organization.
func (f *Facade) IsUserInApplication(ctx context.Context, applicationID, organizationID, userID string) (bool, error) {
	app, err := f.Repo.GetByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if app.OrganizationID != organizationID {
		return false, nil
	}
	if app.CandidateID == userID {
		return true, nil
	}
	return f.Staff.IsStaff(ctx, organizationID, userID)
}

var _ eligibility.Gate = (*Facade)(nil)
