package bulkimport

import (
	"github.com/samSKIF/ThrivioHR-sub000/internal/features/directory"
)

// Row actions decided by the planner
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionSkip   = "skip"
)

// Row outcomes reported by the apply engine
const (
	ResultCreated = "created"
	ResultUpdated = "updated"
	ResultSkipped = "skipped"
	ResultError   = "error"
)

// NormalizedRow is one CSV row after trimming and canonicalization.
// Optional fields are nil when the column is absent or empty.
type NormalizedRow struct {
	Email        string  `json:"email"`
	GivenName    string  `json:"givenName"`
	FamilyName   string  `json:"familyName"`
	Department   *string `json:"department"`
	ManagerEmail *string `json:"managerEmail"`
	Location     *string `json:"location"`
	JobTitle     *string `json:"jobTitle"`
	EmployeeID   *string `json:"employeeId"`
	StartDate    *string `json:"startDate"`
	BirthDate    *string `json:"birthDate"`
	Nationality  *string `json:"nationality"`
	Gender       *string `json:"gender"`
	Phone        *string `json:"phone"`
}

// RowError is a row-level validation problem. Row 0 means the file itself.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

type ValidationResult struct {
	Rows            int             `json:"rows"`
	Valid           int             `json:"valid"`
	Invalid         int             `json:"invalid"`
	RequiredHeaders []string        `json:"requiredHeaders"`
	MissingHeaders  []string        `json:"missingHeaders"`
	InferredHeaders []string        `json:"inferredHeaders"`
	Preview         []NormalizedRow `json:"preview"`
	SampleErrors    []RowError      `json:"sampleErrors"`
}

// PlanResult is the validate output plus the rows that would be written
type PlanResult struct {
	ValidationResult
	ProposedUsers []NormalizedRow `json:"proposedUsers"`
}

// CommitRecord is the planned outcome for one input row
type CommitRecord struct {
	Email           string                `json:"email"`
	Action          string                `json:"action"`
	Diffs           []string              `json:"diffs,omitempty"`
	Reason          []string              `json:"reason,omitempty"`
	Incoming        NormalizedRow         `json:"incoming"`
	Current         *directory.UserRecord `json:"current,omitempty"`
	ManagerResolved bool                  `json:"managerResolved"`
	ManagerUserID   *string               `json:"managerUserId"`
}

type CommitOverview struct {
	Rows            int      `json:"rows"`
	Creates         int      `json:"creates"`
	Updates         int      `json:"updates"`
	Skips           int      `json:"skips"`
	DuplicateEmails []string `json:"duplicateEmails"`
	ManagerMissing  int      `json:"managerMissing"`
	ManagerCycles   int      `json:"managerCycles"`
	ManagerSelf     int      `json:"managerSelf"`
	NewDepartments  []string `json:"newDepartments"`
	NewLocations    []string `json:"newLocations"`
}

type CommitPlanResult struct {
	Overview CommitOverview `json:"overview"`
	Records  []CommitRecord `json:"records"`
}

// ImportSessionPayload is the entire unit of trust carried inside a signed
// session token. Timestamps are unix milliseconds.
type ImportSessionPayload struct {
	V         int            `json:"v"`
	OrgID     string         `json:"orgId"`
	UserID    string         `json:"userId"`
	CreatedAt int64          `json:"createdAt"`
	Exp       int64          `json:"exp"`
	Sha256    string         `json:"sha256"`
	Overview  CommitOverview `json:"overview"`
	Records   []CommitRecord `json:"records"`
}

type CreateSessionResult struct {
	Token    string         `json:"token"`
	Overview CommitOverview `json:"overview"`
}

type ApplyResultRow struct {
	Email             string   `json:"email"`
	Action            string   `json:"action"`
	UserID            string   `json:"userId,omitempty"`
	DepartmentCreated bool     `json:"departmentCreated,omitempty"`
	LocationCreated   bool     `json:"locationCreated,omitempty"`
	MembershipLinked  bool     `json:"membershipLinked,omitempty"`
	IgnoredFields     []string `json:"ignoredFields,omitempty"`
	Message           string   `json:"message,omitempty"`
}

type ApplyReport struct {
	CreatedUsers       int              `json:"createdUsers"`
	UpdatedUsers       int              `json:"updatedUsers"`
	Skipped            int              `json:"skipped"`
	Errors             int              `json:"errors"`
	DepartmentsCreated int              `json:"departmentsCreated"`
	MembershipsLinked  int              `json:"membershipsLinked"`
	LocationsCreated   int              `json:"locationsCreated"`
	Rows               []ApplyResultRow `json:"rows"`
}
