package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/bus-ticket-reservation/internal/model"
)

// EmployeeRepo encapsulates database operations for the operating
// staff.  Drivers and conductors created here are referenced by buses
// and checked when staff request trip manifests.
type EmployeeRepo struct {
	db *sql.DB
}

// NewEmployeeRepo constructs an EmployeeRepo given a DB handle.
func NewEmployeeRepo(db *sql.DB) *EmployeeRepo {
	return &EmployeeRepo{db: db}
}

// Create inserts an employee and returns its ID.  A duplicate
// employee code surfaces as ErrConflict.
func (r *EmployeeRepo) Create(ctx context.Context, e *model.Employee) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO employees (employee_code, name, position, mobile) VALUES (?,?,?,?)",
		e.EmployeeCode, e.Name, e.Position, e.Mobile)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrConflict
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID fetches an employee by id, returning ErrEmployeeNotFound
// when no row exists.
func (r *EmployeeRepo) GetByID(ctx context.Context, id uint64) (model.Employee, error) {
	var e model.Employee
	err := r.db.QueryRowContext(ctx,
		"SELECT id, employee_code, name, position, mobile, created_at, updated_at FROM employees WHERE id=?",
		id).Scan(&e.ID, &e.EmployeeCode, &e.Name, &e.Position, &e.Mobile, &e.CreatedAt, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return e, ErrEmployeeNotFound
	}
	return e, err
}

// List returns all employees ordered by id.
func (r *EmployeeRepo) List(ctx context.Context) ([]model.Employee, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, employee_code, name, position, mobile, created_at, updated_at FROM employees ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Employee, 0)
	for rows.Next() {
		var e model.Employee
		if err := rows.Scan(&e.ID, &e.EmployeeCode, &e.Name, &e.Position, &e.Mobile, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Update changes the mutable fields of an employee.  Empty strings
// leave the corresponding column untouched.
func (r *EmployeeRepo) Update(ctx context.Context, id uint64, name, position, mobile string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE employees SET
		   name     = COALESCE(NULLIF(?, ''), name),
		   position = COALESCE(NULLIF(?, ''), position),
		   mobile   = COALESCE(NULLIF(?, ''), mobile)
		 WHERE id = ?`,
		name, position, mobile, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrEmployeeNotFound
	}
	return nil
}

// Delete removes an employee.  Deleting an employee still assigned to
// a bus fails the foreign key and surfaces as ErrConflict.
func (r *EmployeeRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM employees WHERE id=?", id)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1451") {
			return ErrConflict
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrEmployeeNotFound
	}
	return nil
}
