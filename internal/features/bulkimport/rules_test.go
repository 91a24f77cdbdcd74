package bulkimport

import (
	"context"
	"strings"
	"testing"
)

func TestRuleEngineDisabledOnEmptySource(t *testing.T) {
	engine, err := NewRuleEngine("")
	if err != nil {
		t.Fatalf("NewRuleEngine() error = %v", err)
	}
	if engine != nil {
		t.Errorf("engine = %v, want nil for empty source", engine)
	}
}

func TestRuleEngineCompileError(t *testing.T) {
	if _, err := NewRuleEngine("reject := ("); err == nil {
		t.Error("NewRuleEngine() accepted a broken script")
	}
}

func TestRuleEngineEvaluate(t *testing.T) {
	engine, err := NewRuleEngine(`
reject := row.department == "Sales"
message := "Sales hires go through a different flow"
`)
	if err != nil {
		t.Fatalf("NewRuleEngine() error = %v", err)
	}

	sales := "Sales"
	if reject, msg := engine.Evaluate(NormalizedRow{Email: "a@x.com", Department: &sales}); !reject {
		t.Error("row with Sales department passed")
	} else if msg != "Sales hires go through a different flow" {
		t.Errorf("message = %q", msg)
	}

	eng := "Engineering"
	if reject, _ := engine.Evaluate(NormalizedRow{Email: "a@x.com", Department: &eng}); reject {
		t.Error("row with Engineering department rejected")
	}
}

func TestRuleEngineDefaultMessage(t *testing.T) {
	engine, err := NewRuleEngine("reject := true")
	if err != nil {
		t.Fatalf("NewRuleEngine() error = %v", err)
	}

	reject, msg := engine.Evaluate(NormalizedRow{Email: "a@x.com"})
	if !reject {
		t.Fatal("row not rejected")
	}
	if msg != "Row rejected by import rule" {
		t.Errorf("message = %q, want default", msg)
	}
}

func TestRuleRejectionSkipsRowInPlan(t *testing.T) {
	repo := newFakeDirectory()
	svc := testService(repo)
	engine, err := NewRuleEngine(`reject := row.email == "ban@x.com"
message := "Blocked address"`)
	if err != nil {
		t.Fatalf("NewRuleEngine() error = %v", err)
	}
	svc.Rules = engine

	csv := strings.Join([]string{
		"email,givenName,familyName",
		"ann@x.com,Ann,Lee",
		"ban@x.com,Ban,Ned",
	}, "\n")

	plan, err := svc.CommitPlan(context.Background(), csv, testOrg, true)
	if err != nil {
		t.Fatalf("CommitPlan() error = %v", err)
	}
	if plan.Overview.Creates != 1 || plan.Overview.Skips != 1 {
		t.Fatalf("creates %d skips %d, want 1/1", plan.Overview.Creates, plan.Overview.Skips)
	}
	banned := plan.Records[1]
	if banned.Action != ActionSkip {
		t.Errorf("Action = %q, want %q", banned.Action, ActionSkip)
	}
	if !containsReason(banned.Reason, "Blocked address") {
		t.Errorf("Reason = %v, want rule message attached", banned.Reason)
	}
}
