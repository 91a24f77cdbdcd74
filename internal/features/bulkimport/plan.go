package bulkimport

import (
	"context"
	"strings"

	"github.com/samSKIF/ThrivioHR-sub000/internal/features/directory"
)

// Planner classifies a normalized batch against stored directory state.
// It performs read-only lookups, never writes, so a plan can be recomputed
// any number of times.
type Planner struct {
	Repo directory.DirectoryRepository
}

// diffFields is the fixed set of fields the planner compares, mapped from
// the incoming CSV field name to the stored record field.
var diffFields = []struct {
	Name     string
	Incoming func(NormalizedRow) string
	Stored   func(*directory.UserRecord) string
}{
	{"givenName", func(r NormalizedRow) string { return r.GivenName }, func(u *directory.UserRecord) string { return u.FirstName }},
	{"familyName", func(r NormalizedRow) string { return r.FamilyName }, func(u *directory.UserRecord) string { return u.LastName }},
	{"jobTitle", func(r NormalizedRow) string { return deref(r.JobTitle) }, func(u *directory.UserRecord) string { return u.JobTitle }},
	{"department", func(r NormalizedRow) string { return deref(r.Department) }, func(u *directory.UserRecord) string { return u.Department }},
	{"location", func(r NormalizedRow) string { return deref(r.Location) }, func(u *directory.UserRecord) string { return u.Location }},
	{"employeeId", func(r NormalizedRow) string { return deref(r.EmployeeID) }, func(u *directory.UserRecord) string { return u.EmployeeID }},
	{"startDate", func(r NormalizedRow) string { return deref(r.StartDate) }, func(u *directory.UserRecord) string { return u.StartDate }},
	{"birthDate", func(r NormalizedRow) string { return deref(r.BirthDate) }, func(u *directory.UserRecord) string { return u.BirthDate }},
	{"nationality", func(r NormalizedRow) string { return deref(r.Nationality) }, func(u *directory.UserRecord) string { return u.Nationality }},
	{"gender", func(r NormalizedRow) string { return deref(r.Gender) }, func(u *directory.UserRecord) string { return u.Gender }},
	{"phone", func(r NormalizedRow) string { return deref(r.Phone) }, func(u *directory.UserRecord) string { return u.Phone }},
}

// BuildPlan computes the create/update/skip classification for every row
func (p *Planner) BuildPlan(ctx context.Context, orgID string, b *batch) (*CommitPlanResult, error) {
	duplicates := duplicateEmails(b.Rows)

	storedDepartments, err := p.Repo.ListDistinctDepartments(ctx, orgID)
	if err != nil {
		return nil, err
	}
	storedLocations, err := p.Repo.ListDistinctLocations(ctx, orgID)
	if err != nil {
		return nil, err
	}

	overview := CommitOverview{
		Rows:            len(b.Rows),
		DuplicateEmails: duplicates,
		NewDepartments:  []string{},
		NewLocations:    []string{},
	}
	if overview.DuplicateEmails == nil {
		overview.DuplicateEmails = []string{}
	}

	records := make([]CommitRecord, 0, len(b.Rows))
	for _, br := range b.Rows {
		record := CommitRecord{
			Email:    br.Row.Email,
			Incoming: br.Row,
			Reason:   []string{},
		}

		if isDuplicate(duplicates, br.Row.Email) {
			record.Reason = append(record.Reason, "Duplicate email in file")
		}

		switch {
		case !hasRequired(br.Row):
			record.Action = ActionSkip
			record.Reason = append(record.Reason, "Missing required fields")
		case !emailRe.MatchString(br.Row.Email):
			record.Action = ActionSkip
			record.Reason = append(record.Reason, "Invalid email format")
		case br.Rejected:
			record.Action = ActionSkip
		default:
			current, err := p.Repo.FindUserByEmailOrg(ctx, br.Row.Email, orgID)
			if err != nil {
				return nil, err
			}
			if current == nil {
				record.Action = ActionCreate
			} else {
				diffs := computeDiffs(br.Row, current)
				if len(diffs) == 0 && br.Row.ManagerEmail == nil {
					record.Action = ActionSkip
					record.Reason = append(record.Reason, "No changes")
				} else {
					record.Action = ActionUpdate
					record.Diffs = diffs
					record.Current = current
				}
			}
		}

		// format problems on optional fields are advisory on the record
		for _, re := range br.Errors {
			if re.Message != "Missing required fields" && re.Message != "Invalid email format" {
				record.Reason = append(record.Reason, re.Message)
			}
		}

		switch record.Action {
		case ActionCreate:
			overview.Creates++
		case ActionUpdate:
			overview.Updates++
		case ActionSkip:
			overview.Skips++
		}
		records = append(records, record)
	}

	overview.NewDepartments = newValues(b.Rows, storedDepartments, func(r NormalizedRow) *string { return r.Department })
	overview.NewLocations = newValues(b.Rows, storedLocations, func(r NormalizedRow) *string { return r.Location })

	return &CommitPlanResult{Overview: overview, Records: records}, nil
}

func computeDiffs(incoming NormalizedRow, stored *directory.UserRecord) []string {
	var diffs []string
	for _, f := range diffFields {
		if f.Incoming(incoming) != f.Stored(stored) {
			diffs = append(diffs, f.Name)
		}
	}
	return diffs
}

// duplicateEmails collects emails (already lower-cased by the normalizer)
// shared by more than one row.
func duplicateEmails(rows []batchRow) []string {
	counts := make(map[string]int)
	for _, br := range rows {
		if br.Row.Email != "" {
			counts[br.Row.Email]++
		}
	}

	var dupes []string
	seen := make(map[string]bool)
	for _, br := range rows {
		email := br.Row.Email
		if email != "" && counts[email] > 1 && !seen[email] {
			seen[email] = true
			dupes = append(dupes, email)
		}
	}
	return dupes
}

func isDuplicate(duplicates []string, email string) bool {
	for _, d := range duplicates {
		if d == email {
			return true
		}
	}
	return false
}

// newValues returns the distinct batch values (case-insensitive, original
// casing of the first occurrence) absent from the stored list.
func newValues(rows []batchRow, stored []string, field func(NormalizedRow) *string) []string {
	known := make(map[string]bool, len(stored))
	for _, s := range stored {
		known[strings.ToLower(s)] = true
	}

	result := []string{}
	seen := make(map[string]bool)
	for _, br := range rows {
		v := field(br.Row)
		if v == nil {
			continue
		}
		key := strings.ToLower(*v)
		if known[key] || seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, *v)
	}
	return result
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
