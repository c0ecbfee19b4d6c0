package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"notification-engine/internal/common/errors"
	"notification-engine/internal/models"
)

type TemplateStore struct {
	db *sql.DB
}

func NewTemplateStore(db *sql.DB) *TemplateStore {
	return &TemplateStore{db: db}
}

const templateColumns = `id, name, description, type, subject, body, html_body, is_active, created_at, updated_at`

func (s *TemplateStore) GetByID(ctx context.Context, id string) (*models.NotificationTemplate, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+templateColumns+` FROM notification_templates WHERE id = $1`, id)
	return scanTemplate(row, id)
}

// GetByName resolves a template by its unique name.
func (s *TemplateStore) GetByName(ctx context.Context, name string) (*models.NotificationTemplate, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+templateColumns+` FROM notification_templates WHERE name = $1`, name)
	return scanTemplate(row, name)
}

// Upsert inserts a template or updates the existing row with the same name.
// Used by the catalog seeder; live sends never mutate templates.
func (s *TemplateStore) Upsert(ctx context.Context, t *models.NotificationTemplate) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notification_templates
			(id, name, description, type, subject, body, html_body, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		ON CONFLICT (name) DO UPDATE SET
			description = EXCLUDED.description,
			type = EXCLUDED.type,
			subject = EXCLUDED.subject,
			body = EXCLUDED.body,
			html_body = EXCLUDED.html_body,
			is_active = EXCLUDED.is_active,
			updated_at = NOW()`,
		t.ID, t.Name, t.Description, string(t.Type), t.Subject, t.Body, t.HTMLBody, t.Active,
	)
	if err != nil {
		return fmt.Errorf("upsert template %s: %w", t.Name, err)
	}
	return nil
}

func scanTemplate(row *sql.Row, ref string) (*models.NotificationTemplate, error) {
	var (
		t       models.NotificationTemplate
		tplType string
	)
	err := row.Scan(
		&t.ID, &t.Name, &t.Description, &tplType, &t.Subject, &t.Body, &t.HTMLBody,
		&t.Active, &t.CreatedAt, &t.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("template", ref)
	}
	if err != nil {
		return nil, fmt.Errorf("select template %s: %w", ref, err)
	}
	t.Type = models.TemplateType(tplType)
	return &t, nil
}
