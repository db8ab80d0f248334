package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/incident-service/internal/domain"
)

// HistoryFilter captures ledger listing parameters across incidents.
type HistoryFilter struct {
	NewStatuses []domain.IncidentStatus
	UserID      *string
	From        *time.Time
	To          *time.Time
	Limit       int
	Offset      int
}

// HistoryRepository persists the append-only incident ledger. There is no
// update or delete.
type HistoryRepository interface {
	Append(ctx context.Context, record *domain.HistoryRecord) error
	ListByIncident(ctx context.Context, incidentID string) ([]domain.HistoryRecord, error)
	Latest(ctx context.Context, incidentID string) (*domain.HistoryRecord, error)
	List(ctx context.Context, filter HistoryFilter) ([]domain.HistoryRecord, error)
}

type historyRepository struct {
	pool *pgxpool.Pool
}

// NewHistoryRepository creates repository.
func NewHistoryRepository(pool *pgxpool.Pool) HistoryRepository {
	return &historyRepository{pool: pool}
}

const historyColumns = `history_id, incident_id, previous_status, new_status, previous_assignee_id,
               new_assignee_id, comment, user_id, change_timestamp`

func (r *historyRepository) Append(ctx context.Context, record *domain.HistoryRecord) error {
	const query = `
        INSERT INTO incident_history (incident_id, previous_status, new_status, previous_assignee_id,
            new_assignee_id, comment, user_id, change_timestamp)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING history_id`
	return conn(ctx, r.pool).QueryRow(ctx, query,
		record.IncidentID,
		string(record.PreviousStatus),
		string(record.NewStatus),
		record.PreviousAssigneeID,
		record.NewAssigneeID,
		record.Comment,
		record.UserID,
		record.ChangeTimestamp,
	).Scan(&record.ID)
}

func (r *historyRepository) ListByIncident(ctx context.Context, incidentID string) ([]domain.HistoryRecord, error) {
	query := `SELECT ` + historyColumns + ` FROM incident_history
        WHERE incident_id=$1
        ORDER BY change_timestamp ASC, history_id ASC`
	rows, err := conn(ctx, r.pool).Query(ctx, query, incidentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanHistory(rows)
}

func (r *historyRepository) Latest(ctx context.Context, incidentID string) (*domain.HistoryRecord, error) {
	query := `SELECT ` + historyColumns + ` FROM incident_history
        WHERE incident_id=$1
        ORDER BY change_timestamp DESC, history_id DESC
        LIMIT 1`
	record, err := scanHistoryRecord(conn(ctx, r.pool).QueryRow(ctx, query, incidentID))
	if err != nil {
		return nil, mapNoRows(err)
	}
	return record, nil
}

func (r *historyRepository) List(ctx context.Context, filter HistoryFilter) ([]domain.HistoryRecord, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if len(filter.NewStatuses) > 0 {
		placeholders := make([]string, len(filter.NewStatuses))
		for i, status := range filter.NewStatuses {
			args = append(args, string(status))
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("new_status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		clauses = append(clauses, fmt.Sprintf("user_id=$%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		clauses = append(clauses, fmt.Sprintf("change_timestamp >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		clauses = append(clauses, fmt.Sprintf("change_timestamp <= $%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM incident_history WHERE %s ORDER BY change_timestamp DESC, history_id DESC`,
		historyColumns, strings.Join(clauses, " AND "))
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanHistory(rows)
}

func scanHistory(rows pgx.Rows) ([]domain.HistoryRecord, error) {
	result := []domain.HistoryRecord{}
	for rows.Next() {
		record, err := scanHistoryRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *record)
	}
	return result, rows.Err()
}

func scanHistoryRecord(row pgx.Row) (*domain.HistoryRecord, error) {
	var (
		record         domain.HistoryRecord
		previousStatus string
		newStatus      string
	)
	if err := row.Scan(
		&record.ID,
		&record.IncidentID,
		&previousStatus,
		&newStatus,
		&record.PreviousAssigneeID,
		&record.NewAssigneeID,
		&record.Comment,
		&record.UserID,
		&record.ChangeTimestamp,
	); err != nil {
		return nil, err
	}
	record.PreviousStatus = StoredStatus(previousStatus)
	record.NewStatus = StoredStatus(newStatus)
	return &record, nil
}
