package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/incident-service/internal/domain"
)

// IncidentFilter captures incident listing parameters. A zero Limit returns
// every matching row.
type IncidentFilter struct {
	CreatorID      *string
	AssigneeID     *string
	WorkLocationID *string
	CategoryID     *string
	Statuses       []domain.IncidentStatus
	Limit          int
	Offset         int
}

// IncidentRepository encapsulates incident persistence.
type IncidentRepository interface {
	Create(ctx context.Context, incident *domain.Incident) error
	GetByID(ctx context.Context, id string) (*domain.Incident, error)
	GetByDisplayNumber(ctx context.Context, displayNumber int64) (*domain.Incident, error)
	// GetForUpdate reads the incident and holds its lock until the enclosing
	// unit of work ends.
	GetForUpdate(ctx context.Context, id string) (*domain.Incident, error)
	List(ctx context.Context, filter IncidentFilter) ([]domain.Incident, error)
	UpdateState(ctx context.Context, incident *domain.Incident) error
	UpdateClassification(ctx context.Context, incident *domain.Incident) error
}

type incidentRepository struct {
	pool *pgxpool.Pool
}

// NewIncidentRepository instantiates repository.
func NewIncidentRepository(pool *pgxpool.Pool) IncidentRepository {
	return &incidentRepository{pool: pool}
}

const incidentColumns = `id, display_number, work_location_id, type_id, category_id, subcategory_id,
               observer_description, incident_date, incident_time, reported_date, status,
               assignee_id, initial_assignee_id, creator_id, action_taken, updated_at`

func (r *incidentRepository) Create(ctx context.Context, incident *domain.Incident) error {
	const query = `
        INSERT INTO incidents (id, work_location_id, type_id, category_id, subcategory_id,
            observer_description, incident_date, incident_time, status, assignee_id,
            initial_assignee_id, creator_id, action_taken)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        RETURNING display_number, reported_date, updated_at`
	return conn(ctx, r.pool).QueryRow(ctx, query,
		incident.ID,
		incident.WorkLocationID,
		incident.TypeID,
		incident.CategoryID,
		incident.SubcategoryID,
		incident.ObserverDescription,
		incident.IncidentDate,
		incident.IncidentTime,
		string(incident.Status),
		incident.AssigneeID,
		incident.InitialAssigneeID,
		incident.CreatorID,
		incident.ActionTaken,
	).Scan(&incident.DisplayNumber, &incident.ReportedDate, &incident.UpdatedAt)
}

func (r *incidentRepository) GetByID(ctx context.Context, id string) (*domain.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *incidentRepository) GetByDisplayNumber(ctx context.Context, displayNumber int64) (*domain.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE display_number=$1`
	return r.fetchSingle(ctx, query, displayNumber)
}

func (r *incidentRepository) GetForUpdate(ctx context.Context, id string) (*domain.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE id=$1 FOR UPDATE`
	return r.fetchSingle(ctx, query, id)
}

func (r *incidentRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Incident, error) {
	incident, err := scanIncident(conn(ctx, r.pool).QueryRow(ctx, query, arg))
	if err != nil {
		return nil, mapNoRows(err)
	}
	return incident, nil
}

func (r *incidentRepository) List(ctx context.Context, filter IncidentFilter) ([]domain.Incident, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CreatorID != nil {
		args = append(args, *filter.CreatorID)
		clauses = append(clauses, fmt.Sprintf("creator_id=$%d", len(args)))
	}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("assignee_id=$%d", len(args)))
	}
	if filter.WorkLocationID != nil {
		args = append(args, *filter.WorkLocationID)
		clauses = append(clauses, fmt.Sprintf("work_location_id=$%d", len(args)))
	}
	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		clauses = append(clauses, fmt.Sprintf("category_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, string(status))
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}

	query := fmt.Sprintf(`SELECT %s FROM incidents WHERE %s ORDER BY reported_date DESC, display_number DESC`,
		incidentColumns, strings.Join(clauses, " AND "))
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

	result := []domain.Incident{}
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *incident)
	}
	return result, rows.Err()
}

func (r *incidentRepository) UpdateState(ctx context.Context, incident *domain.Incident) error {
	const query = `
        UPDATE incidents SET status=$1, assignee_id=$2, action_taken=$3, updated_at=NOW()
        WHERE id=$4
        RETURNING updated_at`
	err := conn(ctx, r.pool).QueryRow(ctx, query,
		string(incident.Status),
		incident.AssigneeID,
		incident.ActionTaken,
		incident.ID,
	).Scan(&incident.UpdatedAt)
	return mapNoRows(err)
}

func (r *incidentRepository) UpdateClassification(ctx context.Context, incident *domain.Incident) error {
	const query = `
        UPDATE incidents SET work_location_id=$1, type_id=$2, category_id=$3, subcategory_id=$4, updated_at=NOW()
        WHERE id=$5
        RETURNING updated_at`
	err := conn(ctx, r.pool).QueryRow(ctx, query,
		incident.WorkLocationID,
		incident.TypeID,
		incident.CategoryID,
		incident.SubcategoryID,
		incident.ID,
	).Scan(&incident.UpdatedAt)
	return mapNoRows(err)
}

func scanIncident(row pgx.Row) (*domain.Incident, error) {
	var (
		incident domain.Incident
		status   string
	)
	if err := row.Scan(
		&incident.ID,
		&incident.DisplayNumber,
		&incident.WorkLocationID,
		&incident.TypeID,
		&incident.CategoryID,
		&incident.SubcategoryID,
		&incident.ObserverDescription,
		&incident.IncidentDate,
		&incident.IncidentTime,
		&incident.ReportedDate,
		&status,
		&incident.AssigneeID,
		&incident.InitialAssigneeID,
		&incident.CreatorID,
		&incident.ActionTaken,
		&incident.UpdatedAt,
	); err != nil {
		return nil, err
	}
	incident.Status = StoredStatus(status)
	return &incident, nil
}

// StoredStatus canonicalizes a persisted status. Unrecognized legacy values
// are kept verbatim so aggregates can exclude them.
func StoredStatus(raw string) domain.IncidentStatus {
	if status, ok := domain.NormalizeStatus(raw); ok {
		return status
	}
	return domain.IncidentStatus(raw)
}
