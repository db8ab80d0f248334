package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/incident-service/internal/domain"
)

// ClassificationRepository stores the read-mostly registry of classification
// entities and users that incidents reference.
type ClassificationRepository interface {
	Get(ctx context.Context, kind domain.ClassificationKind, id string) (*domain.ClassificationEntity, error)
	List(ctx context.Context, kind domain.ClassificationKind) ([]domain.ClassificationEntity, error)
	Upsert(ctx context.Context, entity *domain.ClassificationEntity) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	UpsertUser(ctx context.Context, user *domain.User) error
}

type classificationRepository struct {
	pool *pgxpool.Pool
}

// NewClassificationRepository creates repository.
func NewClassificationRepository(pool *pgxpool.Pool) ClassificationRepository {
	return &classificationRepository{pool: pool}
}

func (r *classificationRepository) Get(ctx context.Context, kind domain.ClassificationKind, id string) (*domain.ClassificationEntity, error) {
	const query = `
        SELECT kind, id, name, parent_id, owner_user_id, owner_email, location_type
        FROM classifications WHERE kind=$1 AND id=$2`
	entity, err := scanClassification(conn(ctx, r.pool).QueryRow(ctx, query, string(kind), id))
	if err != nil {
		return nil, mapNoRows(err)
	}
	return entity, nil
}

func (r *classificationRepository) List(ctx context.Context, kind domain.ClassificationKind) ([]domain.ClassificationEntity, error) {
	const query = `
        SELECT kind, id, name, parent_id, owner_user_id, owner_email, location_type
        FROM classifications WHERE kind=$1 ORDER BY name ASC, id ASC`
	rows, err := conn(ctx, r.pool).Query(ctx, query, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.ClassificationEntity{}
	for rows.Next() {
		entity, err := scanClassification(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *entity)
	}
	return result, rows.Err()
}

func (r *classificationRepository) Upsert(ctx context.Context, entity *domain.ClassificationEntity) error {
	const query = `
        INSERT INTO classifications (kind, id, name, parent_id, owner_user_id, owner_email, location_type)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        ON CONFLICT (kind, id) DO UPDATE SET name=EXCLUDED.name, parent_id=EXCLUDED.parent_id,
            owner_user_id=EXCLUDED.owner_user_id, owner_email=EXCLUDED.owner_email,
            location_type=EXCLUDED.location_type`
	_, err := conn(ctx, r.pool).Exec(ctx, query,
		string(entity.Kind),
		entity.ID,
		entity.Name,
		entity.ParentID,
		entity.OwnerUserID,
		entity.OwnerEmail,
		entity.LocationType,
	)
	return err
}

func (r *classificationRepository) GetUser(ctx context.Context, id string) (*domain.User, error) {
	const query = `SELECT id, name, email, role, employee_id, department FROM users WHERE id=$1`
	user, err := scanUser(conn(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapNoRows(err)
	}
	return user, nil
}

func (r *classificationRepository) ListUsers(ctx context.Context) ([]domain.User, error) {
	const query = `SELECT id, name, email, role, employee_id, department FROM users ORDER BY name ASC, id ASC`
	rows, err := conn(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *user)
	}
	return result, rows.Err()
}

func (r *classificationRepository) UpsertUser(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (id, name, email, role, employee_id, department)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, email=EXCLUDED.email, role=EXCLUDED.role,
            employee_id=EXCLUDED.employee_id, department=EXCLUDED.department`
	_, err := conn(ctx, r.pool).Exec(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		string(user.Role),
		user.EmployeeID,
		user.Department,
	)
	return err
}

func scanClassification(row pgx.Row) (*domain.ClassificationEntity, error) {
	var (
		entity domain.ClassificationEntity
		kind   string
	)
	if err := row.Scan(
		&kind,
		&entity.ID,
		&entity.Name,
		&entity.ParentID,
		&entity.OwnerUserID,
		&entity.OwnerEmail,
		&entity.LocationType,
	); err != nil {
		return nil, err
	}
	entity.Kind = domain.ClassificationKind(kind)
	return &entity, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		user domain.User
		role string
	)
	if err := row.Scan(&user.ID, &user.Name, &user.Email, &role, &user.EmployeeID, &user.Department); err != nil {
		return nil, err
	}
	user.Role = domain.ParseUserRole(role)
	return &user, nil
}
