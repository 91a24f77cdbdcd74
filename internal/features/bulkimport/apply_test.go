package bulkimport

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/samSKIF/ThrivioHR-sub000/internal/features/directory"
)

func TestApplyEndToEndIdempotent(t *testing.T) {
	repo := newFakeDirectory()
	repo.seedUser(directory.UserRecord{Email: "old@x.com", FirstName: "Old", LastName: "Name"})
	svc := testService(repo)

	csv := strings.Join([]string{
		"email,givenName,familyName,department,location",
		"ann@x.com,Ann,Lee,Engineering,Paris",
		"old@x.com,New,Name,Engineering,",
	}, "\n")

	session, err := svc.CreateImportSession(context.Background(), csv, testOrg, "admin1")
	if err != nil {
		t.Fatalf("CreateImportSession() error = %v", err)
	}

	report, err := svc.ApplyImportSession(context.Background(), session.Token, testOrg)
	if err != nil {
		t.Fatalf("ApplyImportSession() error = %v", err)
	}
	if report.CreatedUsers != 1 || report.UpdatedUsers != 1 || report.Errors != 0 {
		t.Fatalf("first run = created %d updated %d errors %d, want 1/1/0",
			report.CreatedUsers, report.UpdatedUsers, report.Errors)
	}
	if report.DepartmentsCreated != 1 {
		t.Errorf("DepartmentsCreated = %d, want 1 (same department twice)", report.DepartmentsCreated)
	}
	if report.LocationsCreated != 1 {
		t.Errorf("LocationsCreated = %d, want 1", report.LocationsCreated)
	}
	if report.MembershipsLinked != 3 {
		t.Errorf("MembershipsLinked = %d, want 3", report.MembershipsLinked)
	}

	// applying the same session again must not duplicate anything
	again, err := svc.ApplyImportSession(context.Background(), session.Token, testOrg)
	if err != nil {
		t.Fatalf("second ApplyImportSession() error = %v", err)
	}
	if again.CreatedUsers != 0 || again.DepartmentsCreated != 0 ||
		again.LocationsCreated != 0 || again.MembershipsLinked != 0 {
		t.Errorf("second run = %+v, want no new users, units or memberships", again)
	}
	if len(repo.users) != 2 {
		t.Errorf("directory has %d users, want 2", len(repo.users))
	}
}

func TestApplyOrgMismatch(t *testing.T) {
	repo := newFakeDirectory()
	svc := testService(repo)

	session, err := svc.CreateImportSession(context.Background(),
		"email,givenName,familyName\nann@x.com,Ann,Lee", testOrg, "admin1")
	if err != nil {
		t.Fatalf("CreateImportSession() error = %v", err)
	}

	report, err := svc.ApplyImportSession(context.Background(), session.Token, "other-org")
	if !errors.Is(err, ErrOrgMismatch) {
		t.Fatalf("ApplyImportSession() error = %v, want ErrOrgMismatch", err)
	}
	if report != nil {
		t.Errorf("report = %+v, want nil", report)
	}
	if len(repo.users) != 0 {
		t.Errorf("directory has %d users, want 0 after rejected apply", len(repo.users))
	}
}

func TestApplyExpiredSession(t *testing.T) {
	repo := newFakeDirectory()
	svc := testService(repo)
	svc.Codec = NewSessionCodec("test-secret", 0)

	session, err := svc.CreateImportSession(context.Background(),
		"email,givenName,familyName\nann@x.com,Ann,Lee", testOrg, "admin1")
	if err != nil {
		t.Fatalf("CreateImportSession() error = %v", err)
	}

	time.Sleep(5 * time.Millisecond)

	report, err := svc.ApplyImportSession(context.Background(), session.Token, testOrg)
	if !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("ApplyImportSession() error = %v, want ErrExpiredToken", err)
	}
	if report != nil {
		t.Errorf("report = %+v, want nil", report)
	}
	if len(repo.users) != 0 {
		t.Errorf("directory has %d users, want 0 after expired session", len(repo.users))
	}
}

func TestApplyDriftUserAppeared(t *testing.T) {
	repo := newFakeDirectory()
	applier := &Applier{Repo: repo}

	payload := samplePayload(time.Now().Add(time.Hour).UnixMilli())
	payload.Records[0].Action = ActionCreate

	// user shows up between planning and apply
	repo.seedUser(directory.UserRecord{Email: "a@x.com", FirstName: "Old", LastName: "Name"})

	report, err := applier.Apply(context.Background(), payload, testOrg)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	row := report.Rows[0]
	if row.Action != ResultUpdated {
		t.Errorf("Action = %q, want %q", row.Action, ResultUpdated)
	}
	if row.Message != "user appeared since planning, updated instead" {
		t.Errorf("Message = %q", row.Message)
	}
	if report.UpdatedUsers != 1 || report.CreatedUsers != 0 {
		t.Errorf("counts = created %d updated %d, want 0/1", report.CreatedUsers, report.UpdatedUsers)
	}
}

func TestApplyDriftUserDisappeared(t *testing.T) {
	repo := newFakeDirectory()
	applier := &Applier{Repo: repo}

	payload := samplePayload(time.Now().Add(time.Hour).UnixMilli())
	payload.Records[0].Action = ActionUpdate

	report, err := applier.Apply(context.Background(), payload, testOrg)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	row := report.Rows[0]
	if row.Action != ResultCreated {
		t.Errorf("Action = %q, want %q", row.Action, ResultCreated)
	}
	if row.Message != "user disappeared since planning, created instead" {
		t.Errorf("Message = %q", row.Message)
	}
	if report.CreatedUsers != 1 {
		t.Errorf("CreatedUsers = %d, want 1", report.CreatedUsers)
	}
}

func TestApplyRowErrorIsolation(t *testing.T) {
	repo := newFakeDirectory()
	repo.failCreateFor["bad@x.com"] = true
	svc := testService(repo)

	csv := strings.Join([]string{
		"email,givenName,familyName",
		"ann@x.com,Ann,Lee",
		"bad@x.com,Bad,Row",
		"bob@x.com,Bob,Kim",
	}, "\n")

	session, err := svc.CreateImportSession(context.Background(), csv, testOrg, "admin1")
	if err != nil {
		t.Fatalf("CreateImportSession() error = %v", err)
	}
	report, err := svc.ApplyImportSession(context.Background(), session.Token, testOrg)
	if err != nil {
		t.Fatalf("ApplyImportSession() error = %v", err)
	}

	if report.Errors != 1 || report.CreatedUsers != 2 {
		t.Fatalf("errors %d created %d, want 1/2", report.Errors, report.CreatedUsers)
	}
	if len(report.Rows) != 3 {
		t.Fatalf("len(Rows) = %d, want 3", len(report.Rows))
	}
	if report.Rows[1].Action != ResultError {
		t.Errorf("Rows[1].Action = %q, want %q", report.Rows[1].Action, ResultError)
	}
	if report.Rows[1].Message == "" {
		t.Error("failed row has no message")
	}
	if report.Rows[0].Action != ResultCreated || report.Rows[2].Action != ResultCreated {
		t.Errorf("surrounding rows = %q/%q, want both created",
			report.Rows[0].Action, report.Rows[2].Action)
	}
}

func TestApplySkipActionCounted(t *testing.T) {
	repo := newFakeDirectory()
	applier := &Applier{Repo: repo}

	payload := samplePayload(time.Now().Add(time.Hour).UnixMilli())
	payload.Records[0].Action = ActionSkip

	report, err := applier.Apply(context.Background(), payload, testOrg)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if report.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", report.Skipped)
	}
	if report.Rows[0].Action != ResultSkipped {
		t.Errorf("Action = %q, want %q", report.Rows[0].Action, ResultSkipped)
	}
	if len(repo.users) != 0 {
		t.Errorf("directory has %d users, want 0", len(repo.users))
	}
}

func TestApplyReportsIgnoredFields(t *testing.T) {
	repo := newFakeDirectory()
	svc := testService(repo)

	csv := strings.Join([]string{
		"email,givenName,familyName,jobTitle,phone,managerEmail",
		"ann@x.com,Ann,Lee,Engineer,+14155551234,boss@x.com",
	}, "\n")
	repo.seedUser(directory.UserRecord{Email: "boss@x.com", FirstName: "Boss", LastName: "One"})

	session, err := svc.CreateImportSession(context.Background(), csv, testOrg, "admin1")
	if err != nil {
		t.Fatalf("CreateImportSession() error = %v", err)
	}
	report, err := svc.ApplyImportSession(context.Background(), session.Token, testOrg)
	if err != nil {
		t.Fatalf("ApplyImportSession() error = %v", err)
	}

	got := report.Rows[0].IgnoredFields
	want := []string{"jobTitle", "phone", "managerEmail"}
	if len(got) != len(want) {
		t.Fatalf("IgnoredFields = %v, want %v", got, want)
	}
	for _, name := range want {
		found := false
		for _, g := range got {
			if g == name {
				found = true
			}
		}
		if !found {
			t.Errorf("IgnoredFields missing %q: %v", name, got)
		}
	}
}

func TestApplyWritesAudit(t *testing.T) {
	repo := newFakeDirectory()
	svc := testService(repo)
	audits := svc.AuditRepo.(*fakeAuditRepo)

	session, err := svc.CreateImportSession(context.Background(),
		"email,givenName,familyName\nann@x.com,Ann,Lee", testOrg, "admin1")
	if err != nil {
		t.Fatalf("CreateImportSession() error = %v", err)
	}
	if _, err := svc.ApplyImportSession(context.Background(), session.Token, testOrg); err != nil {
		t.Fatalf("ApplyImportSession() error = %v", err)
	}

	if len(audits.audits) != 1 {
		t.Fatalf("audits = %d, want 1", len(audits.audits))
	}
	audit := audits.audits[0]
	if audit.OrgID != testOrg || audit.UserID != "admin1" {
		t.Errorf("audit identity = %s/%s, want %s/admin1", audit.OrgID, audit.UserID, testOrg)
	}
	if audit.CreatedUsers != 1 || audit.Rows != 1 {
		t.Errorf("audit counts = created %d rows %d, want 1/1", audit.CreatedUsers, audit.Rows)
	}
	if audit.CSVSha256 == "" {
		t.Error("audit is missing the csv digest")
	}
}
