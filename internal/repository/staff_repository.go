package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/spa-scheduler-api/internal/models"
)

// StaffRepository reads the therapist directory.
type StaffRepository struct {
	db *sqlx.DB
}

// NewStaffRepository constructs the repository.
func NewStaffRepository(db *sqlx.DB) *StaffRepository {
	return &StaffRepository{db: db}
}

// FindByID returns a staff member or sql.ErrNoRows.
func (r *StaffRepository) FindByID(ctx context.Context, id int64) (*models.Staff, error) {
	const query = `SELECT id, full_name, staff_type, work_status, created_at, updated_at FROM staff WHERE id = $1`
	var staff models.Staff
	if err := r.db.GetContext(ctx, &staff, query, id); err != nil {
		return nil, err
	}
	return &staff, nil
}

// ListActive returns active staff ordered by id.
func (r *StaffRepository) ListActive(ctx context.Context) ([]models.Staff, error) {
	const query = `SELECT id, full_name, staff_type, work_status, created_at, updated_at
	FROM staff WHERE work_status = 'active' ORDER BY id`
	var staff []models.Staff
	if err := r.db.SelectContext(ctx, &staff, query); err != nil {
		return nil, fmt.Errorf("list active staff: %w", err)
	}
	return staff, nil
}

// ListByIDs returns staff members with the given ids, ordered by id.
func (r *StaffRepository) ListByIDs(ctx context.Context, ids []int64) ([]models.Staff, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT id, full_name, staff_type, work_status, created_at, updated_at
	FROM staff WHERE id IN (?) ORDER BY id`, ids)
	if err != nil {
		return nil, fmt.Errorf("build staff lookup: %w", err)
	}
	var staff []models.Staff
	if err := r.db.SelectContext(ctx, &staff, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list staff by ids: %w", err)
	}
	return staff, nil
}
