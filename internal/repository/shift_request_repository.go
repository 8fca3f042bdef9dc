package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/spa-scheduler-api/internal/models"
	"github.com/noah-isme/spa-scheduler-api/pkg/clock"
)

const shiftColumns = `id, staff_id, schedule_date, start_time, end_time, status, created_by, notes,
       reviewed_by, reviewed_at, created_at, updated_at`

// ShiftRequestRepository persists availability windows and their review outcome.
type ShiftRequestRepository struct {
	db *sqlx.DB
}

// NewShiftRequestRepository constructs the repository.
func NewShiftRequestRepository(db *sqlx.DB) *ShiftRequestRepository {
	return &ShiftRequestRepository{db: db}
}

// Create inserts a shift request and fills the generated id and timestamps.
func (r *ShiftRequestRepository) Create(ctx context.Context, shift *models.ShiftRequest) error {
	if shift.Status == "" {
		shift.Status = models.ShiftStatusPending
	}
	now := time.Now().UTC()
	shift.CreatedAt = now
	shift.UpdatedAt = now

	const query = `INSERT INTO shift_requests
	(staff_id, schedule_date, start_time, end_time, status, created_by, notes, reviewed_by, reviewed_at, created_at, updated_at)
	VALUES (:staff_id, :schedule_date, :start_time, :end_time, :status, :created_by, :notes, :reviewed_by, :reviewed_at, :created_at, :updated_at)
	RETURNING id`
	rows, err := r.db.NamedQueryContext(ctx, query, shift)
	if err != nil {
		return fmt.Errorf("create shift request: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&shift.ID); err != nil {
			return fmt.Errorf("scan shift request id: %w", err)
		}
	}
	return rows.Err()
}

// FindByID returns a shift request or sql.ErrNoRows.
func (r *ShiftRequestRepository) FindByID(ctx context.Context, id int64) (*models.ShiftRequest, error) {
	query := `SELECT ` + shiftColumns + ` FROM shift_requests WHERE id = $1`
	var shift models.ShiftRequest
	if err := r.db.GetContext(ctx, &shift, query, id); err != nil {
		return nil, err
	}
	return &shift, nil
}

// FindByIDs returns the shift requests that exist among ids.
func (r *ShiftRequestRepository) FindByIDs(ctx context.Context, ids []int64) ([]models.ShiftRequest, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + shiftColumns + ` FROM shift_requests WHERE id = ANY($1) ORDER BY id`
	var shifts []models.ShiftRequest
	if err := r.db.SelectContext(ctx, &shifts, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find shift requests: %w", err)
	}
	return shifts, nil
}

// ListByDate returns every shift row, of any status, scheduled on date.
func (r *ShiftRequestRepository) ListByDate(ctx context.Context, date clock.Date) ([]models.ShiftRequest, error) {
	query := `SELECT ` + shiftColumns + ` FROM shift_requests WHERE schedule_date = $1 ORDER BY staff_id, start_time, id`
	var shifts []models.ShiftRequest
	if err := r.db.SelectContext(ctx, &shifts, query, date); err != nil {
		return nil, fmt.Errorf("list shift requests by date: %w", err)
	}
	return shifts, nil
}

// ListByStaffDate returns every shift row of a staff member on date.
func (r *ShiftRequestRepository) ListByStaffDate(ctx context.Context, staffID int64, date clock.Date) ([]models.ShiftRequest, error) {
	query := `SELECT ` + shiftColumns + ` FROM shift_requests WHERE staff_id = $1 AND schedule_date = $2 ORDER BY start_time, id`
	var shifts []models.ShiftRequest
	if err := r.db.SelectContext(ctx, &shifts, query, staffID, date); err != nil {
		return nil, fmt.Errorf("list shift requests by staff: %w", err)
	}
	return shifts, nil
}

// List returns shift requests matching the filter, newest schedule date first.
func (r *ShiftRequestRepository) List(ctx context.Context, filter models.ShiftRequestFilter) ([]models.ShiftRequest, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 4)
	builder.WriteString(`SELECT ` + shiftColumns + ` FROM shift_requests`)

	conditions := make([]string, 0, 3)
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.StaffID != nil {
		args = append(args, *filter.StaffID)
		conditions = append(conditions, fmt.Sprintf("staff_id = $%d", len(args)))
	}
	if filter.ScheduleDate != "" {
		args = append(args, filter.ScheduleDate)
		conditions = append(conditions, fmt.Sprintf("schedule_date = $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY schedule_date DESC, start_time, id")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var shifts []models.ShiftRequest
	if err := r.db.SelectContext(ctx, &shifts, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list shift requests: %w", err)
	}
	return shifts, nil
}

// ReviewParams groups the columns written by a review decision.
type ReviewParams struct {
	ID         int64
	Status     models.ShiftStatus
	ReviewedBy string
	ReviewedAt time.Time
	Notes      *string
}

// Review moves a pending shift request to its terminal status. Rows that are
// no longer pending are not touched and yield sql.ErrNoRows.
func (r *ShiftRequestRepository) Review(ctx context.Context, params ReviewParams) (*models.ShiftRequest, error) {
	query := fmt.Sprintf(`UPDATE shift_requests
	SET status = $2, reviewed_by = $3, reviewed_at = $4, notes = COALESCE($5, notes), updated_at = $4
	WHERE id = $1 AND status = '%s'
	RETURNING %s`, models.ShiftStatusPending, shiftColumns)
	var shift models.ShiftRequest
	if err := r.db.GetContext(ctx, &shift, query, params.ID, params.Status, params.ReviewedBy, params.ReviewedAt, params.Notes); err != nil {
		return nil, err
	}
	return &shift, nil
}
