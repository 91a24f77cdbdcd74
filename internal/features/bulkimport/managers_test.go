package bulkimport

import (
	"context"
	"testing"

	"github.com/samSKIF/ThrivioHR-sub000/internal/features/directory"
)

func TestManagerResolvedViaCsv(t *testing.T) {
	svc := testService(newFakeDirectory())

	csv := "email,givenName,familyName,managerEmail\n" +
		"a@x.com,Ann,Lee,b@x.com\n" +
		"b@x.com,Bob,Ray,\n"
	plan, err := svc.CommitPlan(context.Background(), csv, testOrg, true)
	if err != nil {
		t.Fatalf("CommitPlan() error = %v", err)
	}

	rec := plan.Records[0]
	if !rec.ManagerResolved {
		t.Errorf("manager should resolve via the batch itself")
	}
	if rec.ManagerUserID != nil {
		t.Errorf("managerUserId = %v, want nil for csv-resolved manager (no id until apply)", rec.ManagerUserID)
	}
	if plan.Overview.ManagerMissing != 0 {
		t.Errorf("managerMissing = %d, want 0", plan.Overview.ManagerMissing)
	}
}

func TestManagerMissing(t *testing.T) {
	svc := testService(newFakeDirectory())

	csv := "email,givenName,familyName,managerEmail\na@x.com,Ann,Lee,ghost@x.com\n"
	plan, err := svc.CommitPlan(context.Background(), csv, testOrg, true)
	if err != nil {
		t.Fatalf("CommitPlan() error = %v", err)
	}

	if plan.Overview.ManagerMissing != 1 {
		t.Errorf("managerMissing = %d, want 1", plan.Overview.ManagerMissing)
	}
	rec := plan.Records[0]
	if rec.ManagerResolved {
		t.Errorf("manager should not resolve")
	}
	// advisory only: the row's own action is unaffected
	if rec.Action != ActionCreate {
		t.Errorf("action = %q, want create despite missing manager", rec.Action)
	}
}

func TestManagerSelfNotMissing(t *testing.T) {
	svc := testService(newFakeDirectory())

	csv := "email,givenName,familyName,managerEmail\na@x.com,Ann,Lee,A@X.com\n"
	plan, err := svc.CommitPlan(context.Background(), csv, testOrg, true)
	if err != nil {
		t.Fatalf("CommitPlan() error = %v", err)
	}

	if plan.Overview.ManagerSelf != 1 {
		t.Errorf("managerSelf = %d, want 1", plan.Overview.ManagerSelf)
	}
	if plan.Overview.ManagerMissing != 0 {
		t.Errorf("managerMissing = %d, want 0 for self-manager", plan.Overview.ManagerMissing)
	}
	if !containsReason(plan.Records[0].Reason, "Employee cannot be their own manager") {
		t.Errorf("reasons = %v, want self-management issue", plan.Records[0].Reason)
	}
}

func TestManagerCycleInBatch(t *testing.T) {
	svc := testService(newFakeDirectory())

	csv := "email,givenName,familyName,managerEmail\n" +
		"a@x.com,Ann,Lee,b@x.com\n" +
		"b@x.com,Bob,Ray,a@x.com\n"
	plan, err := svc.CommitPlan(context.Background(), csv, testOrg, true)
	if err != nil {
		t.Fatalf("CommitPlan() error = %v", err)
	}

	if plan.Overview.ManagerCycles < 1 {
		t.Fatalf("managerCycles = %d, want >= 1", plan.Overview.ManagerCycles)
	}
	for i, rec := range plan.Records {
		if !containsReason(rec.Reason, "Part of a management cycle") {
			t.Errorf("record %d missing cycle issue: %v", i, rec.Reason)
		}
	}
}

func TestManagerCycleAcrossStoredAndBatch(t *testing.T) {
	repo := newFakeDirectory()
	// stored: boss reports to ann
	repo.seedUser(directory.UserRecord{
		Email:        "boss@x.com",
		FirstName:    "Bo",
		LastName:     "Ss",
		ManagerEmail: "ann@x.com",
	})
	svc := testService(repo)

	// batch: ann reports to boss; the cycle only exists in the union
	csv := "email,givenName,familyName,managerEmail\nann@x.com,Ann,Lee,boss@x.com\n"
	plan, err := svc.CommitPlan(context.Background(), csv, testOrg, true)
	if err != nil {
		t.Fatalf("CommitPlan() error = %v", err)
	}

	if plan.Overview.ManagerCycles != 1 {
		t.Fatalf("managerCycles = %d, want 1 (stored edge + batch edge)", plan.Overview.ManagerCycles)
	}
	if !containsReason(plan.Records[0].Reason, "Part of a management cycle") {
		t.Errorf("reasons = %v, want cycle issue", plan.Records[0].Reason)
	}
}

func TestNoCycleInChain(t *testing.T) {
	svc := testService(newFakeDirectory())

	csv := "email,givenName,familyName,managerEmail\n" +
		"a@x.com,Ann,Lee,b@x.com\n" +
		"b@x.com,Bob,Ray,c@x.com\n" +
		"c@x.com,Cal,Roy,\n"
	plan, err := svc.CommitPlan(context.Background(), csv, testOrg, true)
	if err != nil {
		t.Fatalf("CommitPlan() error = %v", err)
	}

	if plan.Overview.ManagerCycles != 0 {
		t.Errorf("managerCycles = %d, want 0 for a straight chain", plan.Overview.ManagerCycles)
	}
}
