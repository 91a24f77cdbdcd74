package directory

import (
	"context"
	"fmt"
	"strings"
	"time"

	common_models "github.com/samSKIF/ThrivioHR-sub000/internal/common/models"
	"github.com/samSKIF/ThrivioHR-sub000/internal/config"
	"github.com/samSKIF/ThrivioHR-sub000/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UserRecord is the directory snapshot of one user as the import pipeline
// sees it. Empty string means the field is not set.
type UserRecord struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	ManagerEmail string `json:"managerEmail,omitempty"`
	JobTitle     string `json:"jobTitle,omitempty"`
	Department   string `json:"department,omitempty"`
	Location     string `json:"location,omitempty"`
	EmployeeID   string `json:"employeeId,omitempty"`
	StartDate    string `json:"startDate,omitempty"`
	BirthDate    string `json:"birthDate,omitempty"`
	Nationality  string `json:"nationality,omitempty"`
	Gender       string `json:"gender,omitempty"`
	Phone        string `json:"phone,omitempty"`
}

// FindOrCreateResult reports whether a find-or-create call created the record
type FindOrCreateResult struct {
	ID      string
	Created bool
}

// DirectoryRepository is the read/write port into the stored directory.
// FindUserByEmailOrg returns (nil, nil) when no user matches.
type DirectoryRepository interface {
	FindUserByEmailOrg(ctx context.Context, email, orgID string) (*UserRecord, error)
	ListDistinctDepartments(ctx context.Context, orgID string) ([]string, error)
	ListDistinctLocations(ctx context.Context, orgID string) ([]string, error)
	FindOrCreateDepartment(ctx context.Context, orgID, name string) (*FindOrCreateResult, error)
	FindOrCreateLocation(ctx context.Context, orgID, name string) (*FindOrCreateResult, error)
	EnsureMembership(ctx context.Context, userID, orgUnitID string) (*FindOrCreateResult, error)
	CreateUser(ctx context.Context, orgID, email, firstName, lastName string) (*UserRecord, error)
	UpdateUserNames(ctx context.Context, userID, firstName, lastName string) (*UserRecord, error)
}

// NewDirectoryRepository selects the backing store from config
func NewDirectoryRepository(cfg *config.Config, mongodb *database.MongodbDB, pg *database.PostgresDB) (DirectoryRepository, error) {
	switch cfg.DirectoryDriver {
	case "", "mongo":
		return NewMongoDirectoryRepository(mongodb), nil
	case "postgres":
		return NewPostgresDirectoryRepository(pg), nil
	default:
		return nil, fmt.Errorf("unknown directory driver: %s", cfg.DirectoryDriver)
	}
}

type MongoDirectoryRepository struct {
	Users       *mongo.Collection
	OrgUnits    *mongo.Collection
	Locations   *mongo.Collection
	Memberships *mongo.Collection
}

func NewMongoDirectoryRepository(mongodb *database.MongodbDB) *MongoDirectoryRepository {
	return &MongoDirectoryRepository{
		Users:       mongodb.DB.Collection("users"),
		OrgUnits:    mongodb.DB.Collection("org_units"),
		Locations:   mongodb.DB.Collection("locations"),
		Memberships: mongodb.DB.Collection("memberships"),
	}
}

func (r *MongoDirectoryRepository) FindUserByEmailOrg(ctx context.Context, email, orgID string) (*UserRecord, error) {
	oid, err := primitive.ObjectIDFromHex(orgID)
	if err != nil {
		return nil, err
	}

	var user common_models.User
	err = r.Users.FindOne(ctx, bson.M{"email": strings.ToLower(email), "org_id": oid}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return userToRecord(&user), nil
}

func (r *MongoDirectoryRepository) ListDistinctDepartments(ctx context.Context, orgID string) ([]string, error) {
	return r.listUnitNames(ctx, r.OrgUnits, orgID)
}

func (r *MongoDirectoryRepository) ListDistinctLocations(ctx context.Context, orgID string) ([]string, error) {
	return r.listUnitNames(ctx, r.Locations, orgID)
}

func (r *MongoDirectoryRepository) listUnitNames(ctx context.Context, coll *mongo.Collection, orgID string) ([]string, error) {
	oid, err := primitive.ObjectIDFromHex(orgID)
	if err != nil {
		return nil, err
	}

	raw, err := coll.Distinct(ctx, "name", bson.M{"org_id": oid})
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			names = append(names, s)
		}
	}
	return names, nil
}

func (r *MongoDirectoryRepository) FindOrCreateDepartment(ctx context.Context, orgID, name string) (*FindOrCreateResult, error) {
	return r.findOrCreateUnit(ctx, r.OrgUnits, orgID, name)
}

func (r *MongoDirectoryRepository) FindOrCreateLocation(ctx context.Context, orgID, name string) (*FindOrCreateResult, error) {
	return r.findOrCreateUnit(ctx, r.Locations, orgID, name)
}

// findOrCreateUnit relies on a unique index over (org_id, name_lower) so a
// concurrent upsert cannot produce duplicates.
func (r *MongoDirectoryRepository) findOrCreateUnit(ctx context.Context, coll *mongo.Collection, orgID, name string) (*FindOrCreateResult, error) {
	oid, err := primitive.ObjectIDFromHex(orgID)
	if err != nil {
		return nil, err
	}

	filter := bson.M{"org_id": oid, "name_lower": strings.ToLower(name)}
	update := bson.M{"$setOnInsert": bson.M{
		"org_id":     oid,
		"name":       name,
		"name_lower": strings.ToLower(name),
		"created_at": time.Now(),
	}}

	res, err := coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return nil, err
	}

	if res.UpsertedCount > 0 {
		id, _ := res.UpsertedID.(primitive.ObjectID)
		return &FindOrCreateResult{ID: id.Hex(), Created: true}, nil
	}

	var unit common_models.OrgUnit
	if err := coll.FindOne(ctx, filter).Decode(&unit); err != nil {
		return nil, err
	}
	return &FindOrCreateResult{ID: unit.ID.Hex(), Created: false}, nil
}

func (r *MongoDirectoryRepository) EnsureMembership(ctx context.Context, userID, orgUnitID string) (*FindOrCreateResult, error) {
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, err
	}
	unitID, err := primitive.ObjectIDFromHex(orgUnitID)
	if err != nil {
		return nil, err
	}

	filter := bson.M{"user_id": uid, "org_unit_id": unitID}
	update := bson.M{"$setOnInsert": bson.M{
		"user_id":     uid,
		"org_unit_id": unitID,
		"created_at":  time.Now(),
	}}

	res, err := r.Memberships.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return nil, err
	}

	if res.UpsertedCount > 0 {
		id, _ := res.UpsertedID.(primitive.ObjectID)
		return &FindOrCreateResult{ID: id.Hex(), Created: true}, nil
	}

	var m common_models.Membership
	if err := r.Memberships.FindOne(ctx, filter).Decode(&m); err != nil {
		return nil, err
	}
	return &FindOrCreateResult{ID: m.ID.Hex(), Created: false}, nil
}

func (r *MongoDirectoryRepository) CreateUser(ctx context.Context, orgID, email, firstName, lastName string) (*UserRecord, error) {
	oid, err := primitive.ObjectIDFromHex(orgID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &common_models.User{
		OrgID:     oid,
		Email:     strings.ToLower(email),
		FirstName: firstName,
		LastName:  lastName,
		Status:    "active",
		CreatedAt: now,
		UpdatedAt: now,
	}

	res, err := r.Users.InsertOne(ctx, user)
	if err != nil {
		return nil, err
	}
	user.ID, _ = res.InsertedID.(primitive.ObjectID)
	return userToRecord(user), nil
}

func (r *MongoDirectoryRepository) UpdateUserNames(ctx context.Context, userID, firstName, lastName string) (*UserRecord, error) {
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, err
	}

	after := options.After
	var user common_models.User
	err = r.Users.FindOneAndUpdate(ctx,
		bson.M{"_id": uid},
		bson.M{"$set": bson.M{"first_name": firstName, "last_name": lastName, "updated_at": time.Now()}},
		options.FindOneAndUpdate().SetReturnDocument(after),
	).Decode(&user)
	if err != nil {
		return nil, err
	}
	return userToRecord(&user), nil
}

func userToRecord(u *common_models.User) *UserRecord {
	return &UserRecord{
		ID:           u.ID.Hex(),
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		ManagerEmail: u.ManagerEmail,
		JobTitle:     u.JobTitle,
		Department:   u.Department,
		Location:     u.Location,
		EmployeeID:   u.EmployeeID,
		StartDate:    u.StartDate,
		BirthDate:    u.BirthDate,
		Nationality:  u.Nationality,
		Gender:       u.Gender,
		Phone:        u.Phone,
	}
}
