package directory

import (
	"context"
	"database/sql"
	"strings"

	"github.com/samSKIF/ThrivioHR-sub000/internal/database"
)

// PostgresDirectoryRepository is the SQL variant of the directory port.
// Uniqueness of (org_id, lower(name)) and (user_id, org_unit_id) is enforced
// by unique constraints, with ON CONFLICT upserts on the Go side.
type PostgresDirectoryRepository struct {
	db *sql.DB
}

func NewPostgresDirectoryRepository(pg *database.PostgresDB) *PostgresDirectoryRepository {
	return &PostgresDirectoryRepository{db: pg.DB}
}

func (r *PostgresDirectoryRepository) FindUserByEmailOrg(ctx context.Context, email, orgID string) (*UserRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, email, first_name, last_name,
		       COALESCE(manager_email, ''), COALESCE(job_title, ''),
		       COALESCE(department, ''), COALESCE(location, ''),
		       COALESCE(employee_id, ''), COALESCE(start_date, ''),
		       COALESCE(birth_date, ''), COALESCE(nationality, ''),
		       COALESCE(gender, ''), COALESCE(phone, '')
		FROM users
		WHERE org_id = $1 AND lower(email) = lower($2)`,
		orgID, email)

	var u UserRecord
	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName,
		&u.ManagerEmail, &u.JobTitle, &u.Department, &u.Location,
		&u.EmployeeID, &u.StartDate, &u.BirthDate, &u.Nationality,
		&u.Gender, &u.Phone)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *PostgresDirectoryRepository) ListDistinctDepartments(ctx context.Context, orgID string) ([]string, error) {
	return r.listNames(ctx, `SELECT name FROM org_units WHERE org_id = $1 ORDER BY name`, orgID)
}

func (r *PostgresDirectoryRepository) ListDistinctLocations(ctx context.Context, orgID string) ([]string, error) {
	return r.listNames(ctx, `SELECT name FROM locations WHERE org_id = $1 ORDER BY name`, orgID)
}

func (r *PostgresDirectoryRepository) listNames(ctx context.Context, query, orgID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (r *PostgresDirectoryRepository) FindOrCreateDepartment(ctx context.Context, orgID, name string) (*FindOrCreateResult, error) {
	return r.findOrCreateUnit(ctx, "org_units", orgID, name)
}

func (r *PostgresDirectoryRepository) FindOrCreateLocation(ctx context.Context, orgID, name string) (*FindOrCreateResult, error) {
	return r.findOrCreateUnit(ctx, "locations", orgID, name)
}

func (r *PostgresDirectoryRepository) findOrCreateUnit(ctx context.Context, table, orgID, name string) (*FindOrCreateResult, error) {
	// The xmax trick distinguishes insert from conflict-noop in one round trip
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO `+table+` (org_id, name, name_lower, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (org_id, name_lower) DO UPDATE SET name_lower = EXCLUDED.name_lower
		RETURNING id, (xmax = 0) AS created`,
		orgID, name, strings.ToLower(name))

	var res FindOrCreateResult
	if err := row.Scan(&res.ID, &res.Created); err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *PostgresDirectoryRepository) EnsureMembership(ctx context.Context, userID, orgUnitID string) (*FindOrCreateResult, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO memberships (user_id, org_unit_id, created_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id, org_unit_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING id, (xmax = 0) AS created`,
		userID, orgUnitID)

	var res FindOrCreateResult
	if err := row.Scan(&res.ID, &res.Created); err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *PostgresDirectoryRepository) CreateUser(ctx context.Context, orgID, email, firstName, lastName string) (*UserRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO users (org_id, email, first_name, last_name, status, created_at, updated_at)
		VALUES ($1, lower($2), $3, $4, 'active', now(), now())
		RETURNING id`,
		orgID, email, firstName, lastName)

	var id string
	if err := row.Scan(&id); err != nil {
		return nil, err
	}
	return &UserRecord{ID: id, Email: strings.ToLower(email), FirstName: firstName, LastName: lastName}, nil
}

func (r *PostgresDirectoryRepository) UpdateUserNames(ctx context.Context, userID, firstName, lastName string) (*UserRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE users SET first_name = $2, last_name = $3, updated_at = now()
		WHERE id = $1
		RETURNING id, email, first_name, last_name`,
		userID, firstName, lastName)

	var u UserRecord
	if err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName); err != nil {
		return nil, err
	}
	return &u, nil
}
