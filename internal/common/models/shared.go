package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ContextKey string

const (
	OrgIDKey ContextKey = "org_id"
)

type Organization struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Slug      string             `bson:"slug" json:"slug"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrgID        primitive.ObjectID `bson:"org_id,omitempty" json:"org_id,omitempty"`
	Email        string             `bson:"email" json:"email"`
	FirstName    string             `bson:"first_name,omitempty" json:"first_name,omitempty"`
	LastName     string             `bson:"last_name,omitempty" json:"last_name,omitempty"`
	ManagerEmail string             `bson:"manager_email,omitempty" json:"manager_email,omitempty"`
	JobTitle     string             `bson:"job_title,omitempty" json:"job_title,omitempty"`
	Department   string             `bson:"department,omitempty" json:"department,omitempty"`
	Location     string             `bson:"location,omitempty" json:"location,omitempty"`
	EmployeeID   string             `bson:"employee_id,omitempty" json:"employee_id,omitempty"`
	StartDate    string             `bson:"start_date,omitempty" json:"start_date,omitempty"`
	BirthDate    string             `bson:"birth_date,omitempty" json:"birth_date,omitempty"`
	Nationality  string             `bson:"nationality,omitempty" json:"nationality,omitempty"`
	Gender       string             `bson:"gender,omitempty" json:"gender,omitempty"`
	Phone        string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Status       string             `bson:"status" json:"status"` // active, inactive, suspended
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}

// OrgUnit is a department (or other unit) inside an organization
type OrgUnit struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrgID     primitive.ObjectID `bson:"org_id" json:"org_id"`
	Name      string             `bson:"name" json:"name"`
	NameLower string             `bson:"name_lower" json:"-"` // unique with org_id
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

type Location struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrgID     primitive.ObjectID `bson:"org_id" json:"org_id"`
	Name      string             `bson:"name" json:"name"`
	NameLower string             `bson:"name_lower" json:"-"` // unique with org_id
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// Membership links a user to an org unit
type Membership struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	OrgUnitID primitive.ObjectID `bson:"org_unit_id" json:"org_unit_id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// ImportAudit is the stored trace of one applied import session
type ImportAudit struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrgID              string             `bson:"org_id" json:"org_id"`
	UserID             string             `bson:"user_id" json:"user_id"`
	CSVSha256          string             `bson:"csv_sha256" json:"csv_sha256"`
	SessionCreatedAt   time.Time          `bson:"session_created_at" json:"session_created_at"`
	Rows               int                `bson:"rows" json:"rows"`
	CreatedUsers       int                `bson:"created_users" json:"created_users"`
	UpdatedUsers       int                `bson:"updated_users" json:"updated_users"`
	Skipped            int                `bson:"skipped" json:"skipped"`
	Errors             int                `bson:"errors" json:"errors"`
	DepartmentsCreated int                `bson:"departments_created" json:"departments_created"`
	LocationsCreated   int                `bson:"locations_created" json:"locations_created"`
	MembershipsLinked  int                `bson:"memberships_linked" json:"memberships_linked"`
	FinishedAt         time.Time          `bson:"finished_at" json:"finished_at"`
}

type Log struct {
	Message      string    `bson:"message" json:"message"`
	IpAddress    string    `bson:"ip_address" json:"ip_address"`
	OrgID        string    `bson:"org_id,omitempty" json:"org_id,omitempty"`
	LogLevelId   int       `bson:"log_level_id" json:"log_level_id"`
	Caller       string    `bson:"caller,omitempty" json:"caller,omitempty"`
	CreatedOnUtc time.Time `bson:"created_on_utc" json:"created_on_utc"`
}
