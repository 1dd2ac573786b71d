package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"channel-market-backend/internal/features/application/models"
	"channel-market-backend/internal/features/application/repository"

	_ "github.com/lib/pq"
)

type postgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) repository.ApplicationRepository {
	return &postgresRepository{db: db}
}

const applicationColumns = `id, applicant_id, category_id, type, username, name, description,
	avatar_url, price, status, rejection_reason, reviewer_id, created_at, updated_at`

type rowScanner interface{ Scan(...interface{}) error }

func scanApplication(row rowScanner) (*models.Application, error) {
	var app models.Application
	err := row.Scan(
		&app.ID, &app.ApplicantID, &app.CategoryID, &app.Type, &app.Username,
		&app.Name, &app.Description, &app.AvatarURL, &app.Price, &app.Status,
		&app.RejectionReason, &app.ReviewerID, &app.CreatedAt, &app.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrApplicationNotFound
		}
		return nil, fmt.Errorf("failed to scan application: %w", err)
	}
	return &app, nil
}

// CreateTx создает заявку внутри транзакции подачи (вместе со списанием платы)
func (r *postgresRepository) CreateTx(ctx context.Context, tx *sql.Tx, app *models.Application) error {
	query := `
		INSERT INTO channel_applications
			(applicant_id, category_id, type, username, name, description, avatar_url, price, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`

	err := tx.QueryRowContext(ctx, query,
		app.ApplicantID, app.CategoryID, app.Type, app.Username, app.Name,
		app.Description, app.AvatarURL, app.Price, app.Status,
	).Scan(&app.ID, &app.CreatedAt, &app.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	return nil
}

// GetByID получает заявку по ID
func (r *postgresRepository) GetByID(ctx context.Context, id int64) (*models.Application, error) {
	query := fmt.Sprintf(`SELECT %s FROM channel_applications WHERE id = $1`, applicationColumns)
	return scanApplication(r.db.QueryRowContext(ctx, query, id))
}

// GetByIDForUpdateTx получает заявку с блокировкой строки
func (r *postgresRepository) GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Application, error) {
	query := fmt.Sprintf(`SELECT %s FROM channel_applications WHERE id = $1 FOR UPDATE`, applicationColumns)
	return scanApplication(tx.QueryRowContext(ctx, query, id))
}

// HasPendingByUsername проверяет наличие нерешенной заявки на тот же username
func (r *postgresRepository) HasPendingByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM channel_applications
			WHERE username = $1 AND status = 'pending'
		)
	`, username).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check pending applications: %w", err)
	}
	return exists, nil
}

// ListByApplicant возвращает заявки пользователя
func (r *postgresRepository) ListByApplicant(ctx context.Context, applicantID int64) ([]*models.Application, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM channel_applications
		WHERE applicant_id = $1
		ORDER BY created_at DESC
	`, applicationColumns)

	rows, err := r.db.QueryContext(ctx, query, applicantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications by applicant: %w", err)
	}
	defer rows.Close()

	return collectApplications(rows)
}

// ListPending возвращает очередь модерации, старые заявки первыми
func (r *postgresRepository) ListPending(ctx context.Context, limit, offset int) ([]*models.Application, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	query := fmt.Sprintf(`
		SELECT %s FROM channel_applications
		WHERE status = 'pending'
		ORDER BY created_at ASC
		LIMIT $1 OFFSET $2
	`, applicationColumns)

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending applications: %w", err)
	}
	defer rows.Close()

	return collectApplications(rows)
}

func collectApplications(rows *sql.Rows) ([]*models.Application, error) {
	var apps []*models.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

// SetApprovedTx переводит pending-заявку в approved. WHERE по статусу
// гарантирует, что терминальная заявка не будет перерешена.
func (r *postgresRepository) SetApprovedTx(ctx context.Context, tx *sql.Tx, id, reviewerID int64) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE channel_applications
		SET status = 'approved', reviewer_id = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`, id, reviewerID)
	if err != nil {
		return fmt.Errorf("failed to approve application: %w", err)
	}
	return requireRowAffected(result, repository.ErrApplicationNotFound)
}

// SetRejectedTx переводит pending-заявку в rejected с причиной
func (r *postgresRepository) SetRejectedTx(ctx context.Context, tx *sql.Tx, id, reviewerID int64, reason string) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE channel_applications
		SET status = 'rejected', reviewer_id = $2, rejection_reason = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`, id, reviewerID, reason)
	if err != nil {
		return fmt.Errorf("failed to reject application: %w", err)
	}
	return requireRowAffected(result, repository.ErrApplicationNotFound)
}

func requireRowAffected(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}
