package bulkimport

import (
	"encoding/csv"
	"io"
	"regexp"
	"strings"
	"time"
)

// RequiredHeaders must all be present for any row to be importable
var RequiredHeaders = []string{"email", "givenName", "familyName"}

var knownHeaders = []string{
	"email", "givenName", "familyName",
	"department", "managerEmail", "location", "jobTitle", "employeeId",
	"startDate", "birthDate", "nationality", "gender", "phone",
}

var (
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRe = regexp.MustCompile(`^\+[1-9]\d{7,14}$`)
)

var genderCanonical = map[string]string{
	"male":              "male",
	"female":            "female",
	"non-binary":        "non-binary",
	"other":             "other",
	"prefer-not-to-say": "prefer-not-to-say",
	"m":                 "male",
	"f":                 "female",
}

// batchRow is one data row after normalization, numbered by file line
// (the header occupies line 1, so the first data row is 2).
type batchRow struct {
	Num      int
	Row      NormalizedRow
	Errors   []RowError
	Rejected bool // set when the operator rule script rejects the row
}

type batch struct {
	InferredHeaders []string
	MissingHeaders  []string
	Rows            []batchRow
	FileErrors      []RowError
}

// normalizeBatch parses CSV text into normalized, validated rows.
// Structural problems are reported as file-level errors, never returned.
func normalizeBatch(csvText string) *batch {
	b := &batch{
		InferredHeaders: []string{},
		MissingHeaders:  []string{},
	}

	if strings.TrimSpace(csvText) == "" {
		b.MissingHeaders = append(b.MissingHeaders, RequiredHeaders...)
		b.FileErrors = append(b.FileErrors, RowError{Row: 0, Message: "CSV body is empty"})
		return b
	}

	reader := csv.NewReader(strings.NewReader(csvText))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		b.MissingHeaders = append(b.MissingHeaders, RequiredHeaders...)
		b.FileErrors = append(b.FileErrors, RowError{Row: 0, Message: "Failed to parse CSV: " + err.Error()})
		return b
	}

	// columns maps canonical header name -> column index
	columns := make(map[string]int)
	for i, h := range header {
		h = strings.TrimSpace(h)
		b.InferredHeaders = append(b.InferredHeaders, h)
		for _, known := range knownHeaders {
			if strings.EqualFold(h, known) {
				columns[known] = i
				break
			}
		}
	}
	for _, required := range RequiredHeaders {
		if _, ok := columns[required]; !ok {
			b.MissingHeaders = append(b.MissingHeaders, required)
		}
	}

	num := 1 // header line
	for {
		record, err := reader.Read()
		num++
		if err == io.EOF {
			break
		}
		if err != nil {
			b.Rows = append(b.Rows, batchRow{
				Num:    num,
				Errors: []RowError{{Row: num, Message: "Failed to parse row: " + err.Error()}},
			})
			continue
		}

		cell := func(name string) string {
			i, ok := columns[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		row := normalizeRow(cell)
		b.Rows = append(b.Rows, batchRow{
			Num:    num,
			Row:    row,
			Errors: validateRow(row, num),
		})
	}

	return b
}

// normalizeRow applies casing and canonicalization rules to raw cell values
func normalizeRow(cell func(string) string) NormalizedRow {
	row := NormalizedRow{
		Email:      strings.ToLower(cell("email")),
		GivenName:  cell("givenName"),
		FamilyName: cell("familyName"),
	}

	row.Department = optional(cell("department"))
	row.Location = optional(cell("location"))
	row.JobTitle = optional(cell("jobTitle"))
	row.EmployeeID = optional(cell("employeeId"))
	row.StartDate = optional(cell("startDate"))
	row.BirthDate = optional(cell("birthDate"))
	row.ManagerEmail = optional(strings.ToLower(cell("managerEmail")))
	row.Phone = optional(cell("phone"))

	if nat := cell("nationality"); nat != "" {
		upper := strings.ToUpper(nat)
		row.Nationality = &upper
	}
	if g := cell("gender"); g != "" {
		if canonical, ok := genderCanonical[strings.ToLower(g)]; ok {
			row.Gender = &canonical
		} else {
			// unrecognized values pass through verbatim
			row.Gender = &g
		}
	}

	return row
}

// validateRow applies the per-field format rules. Optional fields are only
// checked when present.
func validateRow(row NormalizedRow, num int) []RowError {
	var errs []RowError
	add := func(msg string) {
		errs = append(errs, RowError{Row: num, Message: msg})
	}

	if row.Email == "" || row.GivenName == "" || row.FamilyName == "" {
		add("Missing required fields")
	}
	if row.Email != "" && !emailRe.MatchString(row.Email) {
		add("Invalid email format")
	}
	if row.ManagerEmail != nil && !emailRe.MatchString(*row.ManagerEmail) {
		add("Invalid manager email format")
	}
	if row.BirthDate != nil {
		birth, err := time.Parse("2006-01-02", *row.BirthDate)
		switch {
		case err != nil:
			add("Invalid birth date, expected YYYY-MM-DD")
		case birth.After(time.Now()):
			add("Birth date is in the future")
		case ageAt(birth, time.Now()) < 14:
			add("Employee must be at least 14 years old")
		}
	}
	if row.Nationality != nil && !isAlpha2(*row.Nationality) {
		add("Nationality must be a 2-letter country code")
	}
	if row.Phone != nil && !phoneRe.MatchString(*row.Phone) {
		add("Invalid phone number, expected E.164 format")
	}

	return errs
}

func ageAt(birth, now time.Time) int {
	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	return age
}

func isAlpha2(s string) bool {
	if len(s) != 2 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// hasRequired reports whether the row carries all required fields
func hasRequired(row NormalizedRow) bool {
	return row.Email != "" && row.GivenName != "" && row.FamilyName != ""
}
