package bulkimport

import (
	"context"

	"github.com/samSKIF/ThrivioHR-sub000/internal/features/directory"
)

// Applier performs the writes of a verified session payload. Rows are
// processed sequentially in CSV order with per-row fault isolation, and
// every write goes through find-or-create so re-applying the same session
// duplicates nothing.
type Applier struct {
	Repo directory.DirectoryRepository
	Hub  *ProgressHub
}

// Apply executes the payload against the caller's organization. The org
// check guards against replaying a session into another org's context.
func (a *Applier) Apply(ctx context.Context, payload *ImportSessionPayload, orgID string) (*ApplyReport, error) {
	if orgID != payload.OrgID {
		return nil, ErrOrgMismatch
	}

	report := &ApplyReport{Rows: []ApplyResultRow{}}
	total := len(payload.Records)

	for i, rec := range payload.Records {
		row := a.applyRow(ctx, payload.OrgID, rec, report)
		report.Rows = append(report.Rows, row)

		if a.Hub != nil {
			a.Hub.Publish(ProgressFrame{
				RunID:  payload.Sha256,
				Row:    i + 1,
				Total:  total,
				Email:  rec.Email,
				Action: row.Action,
				Done:   i+1 == total,
			})
		}
	}

	return report, nil
}

// applyRow never returns an error: one row's failure must not abort the
// batch, so failures become row results with action "error".
func (a *Applier) applyRow(ctx context.Context, orgID string, rec CommitRecord, report *ApplyReport) ApplyResultRow {
	row := ApplyResultRow{Email: rec.Email}

	switch rec.Action {
	case ActionCreate, ActionUpdate:
		if err := a.upsertUser(ctx, orgID, rec, report, &row); err != nil {
			row.Action = ResultError
			row.Message = err.Error()
			report.Errors++
		}
	default:
		row.Action = ResultSkipped
		report.Skipped++
	}

	return row
}

func (a *Applier) upsertUser(ctx context.Context, orgID string, rec CommitRecord, report *ApplyReport, row *ApplyResultRow) error {
	// fresh read: state may have changed since planning
	current, err := a.Repo.FindUserByEmailOrg(ctx, rec.Email, orgID)
	if err != nil {
		return err
	}

	var user *directory.UserRecord
	if current == nil {
		user, err = a.Repo.CreateUser(ctx, orgID, rec.Email, rec.Incoming.GivenName, rec.Incoming.FamilyName)
		if err != nil {
			return err
		}
		row.Action = ResultCreated
		report.CreatedUsers++
		if rec.Action == ActionUpdate {
			row.Message = "user disappeared since planning, created instead"
		}
	} else {
		user, err = a.Repo.UpdateUserNames(ctx, current.ID, rec.Incoming.GivenName, rec.Incoming.FamilyName)
		if err != nil {
			return err
		}
		row.Action = ResultUpdated
		report.UpdatedUsers++
		if rec.Action == ActionCreate {
			row.Message = "user appeared since planning, updated instead"
		}
	}
	row.UserID = user.ID

	if rec.Incoming.Department != nil {
		dep, err := a.Repo.FindOrCreateDepartment(ctx, orgID, *rec.Incoming.Department)
		if err != nil {
			return err
		}
		if dep.Created {
			report.DepartmentsCreated++
			row.DepartmentCreated = true
		}
		link, err := a.Repo.EnsureMembership(ctx, user.ID, dep.ID)
		if err != nil {
			return err
		}
		if link.Created {
			report.MembershipsLinked++
			row.MembershipLinked = true
		}
	}

	if rec.Incoming.Location != nil {
		loc, err := a.Repo.FindOrCreateLocation(ctx, orgID, *rec.Incoming.Location)
		if err != nil {
			return err
		}
		if loc.Created {
			report.LocationsCreated++
			row.LocationCreated = true
		}
		link, err := a.Repo.EnsureMembership(ctx, user.ID, loc.ID)
		if err != nil {
			return err
		}
		if link.Created {
			report.MembershipsLinked++
			row.MembershipLinked = true
		}
	}

	row.IgnoredFields = ignoredFields(rec.Incoming)
	return nil
}

// ignoredFields lists incoming fields accepted as input but not persisted
// by this version of the pipeline.
func ignoredFields(row NormalizedRow) []string {
	var ignored []string
	check := func(name string, v *string) {
		if v != nil {
			ignored = append(ignored, name)
		}
	}
	check("jobTitle", row.JobTitle)
	check("employeeId", row.EmployeeID)
	check("startDate", row.StartDate)
	check("birthDate", row.BirthDate)
	check("nationality", row.Nationality)
	check("gender", row.Gender)
	check("phone", row.Phone)
	check("managerEmail", row.ManagerEmail)
	return ignored
}
