package bulkimport

import (
	"fmt"

	"github.com/d5/tengo/v2"
)

// RuleEngine runs an operator-supplied script against each normalized row.
// The script sees the row as a map named "row" and rejects it by setting
// `reject := true` and optionally `message := "..."`.
type RuleEngine struct {
	source string
}

// NewRuleEngine compiles the script once to validate it; an empty source
// yields a nil engine (hook disabled).
func NewRuleEngine(source string) (*RuleEngine, error) {
	if source == "" {
		return nil, nil
	}

	probe := tengo.NewScript([]byte(source))
	probe.Add("row", map[string]interface{}{})
	if _, err := probe.Compile(); err != nil {
		return nil, fmt.Errorf("failed to compile import rule script: %w", err)
	}

	return &RuleEngine{source: source}, nil
}

// Evaluate runs the rule against one row. A script failure rejects the row
// so a broken rule never silently admits data.
func (e *RuleEngine) Evaluate(row NormalizedRow) (bool, string) {
	script := tengo.NewScript([]byte(e.source))
	script.Add("row", rowToMap(row))

	compiled, err := script.Compile()
	if err != nil {
		return true, "Import rule failed: " + err.Error()
	}
	if err := compiled.Run(); err != nil {
		return true, "Import rule failed: " + err.Error()
	}

	if !compiled.Get("reject").Bool() {
		return false, ""
	}
	message := compiled.Get("message").String()
	if message == "" || message == "<undefined>" {
		message = "Row rejected by import rule"
	}
	return true, message
}

func rowToMap(row NormalizedRow) map[string]interface{} {
	m := map[string]interface{}{
		"email":      row.Email,
		"givenName":  row.GivenName,
		"familyName": row.FamilyName,
	}
	put := func(key string, v *string) {
		if v != nil {
			m[key] = *v
		} else {
			m[key] = ""
		}
	}
	put("department", row.Department)
	put("managerEmail", row.ManagerEmail)
	put("location", row.Location)
	put("jobTitle", row.JobTitle)
	put("employeeId", row.EmployeeID)
	put("startDate", row.StartDate)
	put("birthDate", row.BirthDate)
	put("nationality", row.Nationality)
	put("gender", row.Gender)
	put("phone", row.Phone)
	return m
}
