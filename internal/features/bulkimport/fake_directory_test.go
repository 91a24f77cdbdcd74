package bulkimport

import (
	"context"
	"fmt"
	"strings"
	"time"

	common_models "github.com/samSKIF/ThrivioHR-sub000/internal/common/models"
	"github.com/samSKIF/ThrivioHR-sub000/internal/features/directory"
)

// fakeDirectory is an in-memory DirectoryRepository for pipeline tests
type fakeDirectory struct {
	users       map[string]*directory.UserRecord // lower email -> record
	departments map[string]string                // lower name -> id
	locations   map[string]string                // lower name -> id
	memberships map[string]bool                  // userID|unitID
	nextID      int

	failCreateFor map[string]bool // emails whose CreateUser fails
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		users:         make(map[string]*directory.UserRecord),
		departments:   make(map[string]string),
		locations:     make(map[string]string),
		memberships:   make(map[string]bool),
		failCreateFor: make(map[string]bool),
	}
}

func (f *fakeDirectory) seedUser(u directory.UserRecord) *directory.UserRecord {
	f.nextID++
	u.ID = fmt.Sprintf("u%d", f.nextID)
	u.Email = strings.ToLower(u.Email)
	f.users[u.Email] = &u
	return &u
}

func (f *fakeDirectory) FindUserByEmailOrg(_ context.Context, email, _ string) (*directory.UserRecord, error) {
	if u, ok := f.users[strings.ToLower(email)]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, nil
}

func (f *fakeDirectory) ListDistinctDepartments(_ context.Context, _ string) ([]string, error) {
	return mapKeys(f.departments), nil
}

func (f *fakeDirectory) ListDistinctLocations(_ context.Context, _ string) ([]string, error) {
	return mapKeys(f.locations), nil
}

func (f *fakeDirectory) FindOrCreateDepartment(_ context.Context, _, name string) (*directory.FindOrCreateResult, error) {
	return findOrCreate(f.departments, name, &f.nextID), nil
}

func (f *fakeDirectory) FindOrCreateLocation(_ context.Context, _, name string) (*directory.FindOrCreateResult, error) {
	return findOrCreate(f.locations, name, &f.nextID), nil
}

func (f *fakeDirectory) EnsureMembership(_ context.Context, userID, orgUnitID string) (*directory.FindOrCreateResult, error) {
	key := userID + "|" + orgUnitID
	if f.memberships[key] {
		return &directory.FindOrCreateResult{ID: key, Created: false}, nil
	}
	f.memberships[key] = true
	return &directory.FindOrCreateResult{ID: key, Created: true}, nil
}

func (f *fakeDirectory) CreateUser(_ context.Context, _, email, firstName, lastName string) (*directory.UserRecord, error) {
	if f.failCreateFor[strings.ToLower(email)] {
		return nil, fmt.Errorf("storage failure for %s", email)
	}
	return f.seedUser(directory.UserRecord{
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
	}), nil
}

func (f *fakeDirectory) UpdateUserNames(_ context.Context, userID, firstName, lastName string) (*directory.UserRecord, error) {
	for _, u := range f.users {
		if u.ID == userID {
			u.FirstName = firstName
			u.LastName = lastName
			copied := *u
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("user %s not found", userID)
}

func findOrCreate(m map[string]string, name string, nextID *int) *directory.FindOrCreateResult {
	key := strings.ToLower(name)
	if id, ok := m[key]; ok {
		return &directory.FindOrCreateResult{ID: id, Created: false}
	}
	*nextID++
	id := fmt.Sprintf("unit%d", *nextID)
	m[key] = id
	return &directory.FindOrCreateResult{ID: id, Created: true}
}

// fakeAuditRepo records import audits in memory
type fakeAuditRepo struct {
	audits []common_models.ImportAudit
}

func newFakeAuditRepo() *fakeAuditRepo {
	return &fakeAuditRepo{}
}

func (f *fakeAuditRepo) Create(_ context.Context, audit *common_models.ImportAudit) error {
	f.audits = append(f.audits, *audit)
	return nil
}

func (f *fakeAuditRepo) Get(_ context.Context, _ string) (*common_models.ImportAudit, error) {
	if len(f.audits) == 0 {
		return nil, fmt.Errorf("not found")
	}
	return &f.audits[0], nil
}

func (f *fakeAuditRepo) FindByOrg(_ context.Context, orgID string, _ int64) ([]common_models.ImportAudit, error) {
	var out []common_models.ImportAudit
	for _, a := range f.audits {
		if a.OrgID == orgID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAuditRepo) DeleteFinishedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	var kept []common_models.ImportAudit
	var deleted int64
	for _, a := range f.audits {
		if a.FinishedAt.Before(cutoff) {
			deleted++
		} else {
			kept = append(kept, a)
		}
	}
	f.audits = kept
	return deleted, nil
}

func mapKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
