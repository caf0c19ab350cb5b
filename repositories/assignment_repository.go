package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/club-coordinator/models"
	"github.com/lib/pq"
)

var ErrAssignmentInvalid = errors.New("captain assignment conflict or invalid")

// SQLExecutor позволяет выполнять запросы как через *sql.DB, так и внутри транзакции.
type SQLExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// AssignmentRepository хранит журнал назначений капитанов.
type AssignmentRepository interface {
	Create(ctx context.Context, exec SQLExecutor, assignment *models.CaptainAssignment) error
	// ListByEventActivity возвращает записи по активности, новые первыми.
	// eventActivityID == 0 - все активности.
	ListByEventActivity(ctx context.Context, exec SQLExecutor, eventActivityID int, limit int) ([]*models.CaptainAssignment, error)
	DeleteOlderThan(ctx context.Context, exec SQLExecutor, keep int) (int64, error)
}

type postgresAssignmentRepository struct {
	db *sql.DB
}

func NewPostgresAssignmentRepository(db *sql.DB) AssignmentRepository {
	return &postgresAssignmentRepository{db: db}
}

func (r *postgresAssignmentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresAssignmentRepository) Create(ctx context.Context, exec SQLExecutor, assignment *models.CaptainAssignment) error {
	query := `
		INSERT INTO captain_assignments (event_activity_id, user_id, previous_user_id, mode, assigned_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		assignment.EventActivityID,
		assignment.UserID,
		assignment.PreviousUserID,
		assignment.Mode,
		assignment.AssignedBy,
	).Scan(&assignment.ID, &assignment.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23514" { // check_violation
			return fmt.Errorf("%w: %s", ErrAssignmentInvalid, pqErr.Constraint)
		}
		return err
	}
	return nil
}

func (r *postgresAssignmentRepository) ListByEventActivity(ctx context.Context, exec SQLExecutor, eventActivityID int, limit int) ([]*models.CaptainAssignment, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, event_activity_id, user_id, previous_user_id, mode, assigned_by, created_at
		FROM captain_assignments
		WHERE ($1 = 0 OR event_activity_id = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2`

	rows, err := r.getExecutor(exec).QueryContext(ctx, query, eventActivityID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assignments := make([]*models.CaptainAssignment, 0)
	for rows.Next() {
		a := &models.CaptainAssignment{}
		var previous sql.NullInt64
		if err := rows.Scan(&a.ID, &a.EventActivityID, &a.UserID, &previous, &a.Mode, &a.AssignedBy, &a.CreatedAt); err != nil {
			return nil, err
		}
		if previous.Valid {
			p := int(previous.Int64)
			a.PreviousUserID = &p
		}
		assignments = append(assignments, a)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return assignments, nil
}

// DeleteOlderThan оставляет по keep последних записей на каждую активность.
func (r *postgresAssignmentRepository) DeleteOlderThan(ctx context.Context, exec SQLExecutor, keep int) (int64, error) {
	query := `
		DELETE FROM captain_assignments
		WHERE id IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (PARTITION BY event_activity_id ORDER BY created_at DESC, id DESC) AS rn
				FROM captain_assignments
			) ranked
			WHERE ranked.rn > $1
		)`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, keep)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
