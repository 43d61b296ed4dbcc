package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"care-session-service/internal/domain"
)

// PostgresTagsRepository is a read-only view of the nfc_tags table, which is
// provisioned by the tag service and only consulted at session creation.
type PostgresTagsRepository struct {
	db *sql.DB
}

func NewPostgresTagsRepository(db *sql.DB) *PostgresTagsRepository {
	return &PostgresTagsRepository{db: db}
}

var _ TagsRepository = (*PostgresTagsRepository)(nil)

func (r *PostgresTagsRepository) GetActiveTag(ctx context.Context, schema Schema, tagID string) (*domain.NFCTag, error) {
	if tagID == "" {
		return nil, domain.ErrTagNotFound
	}

	query := fmt.Sprintf(`
		SELECT tag_id::text, patient_id::text, active
		FROM %s
		WHERE tag_id = $1 AND active = true
	`, schema.Qualify("nfc_tags"))

	var tag domain.NFCTag
	err := r.db.QueryRowContext(ctx, query, tagID).Scan(&tag.TagID, &tag.PatientID, &tag.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTagNotFound
		}
		return nil, fmt.Errorf("failed to get tag: %w", err)
	}
	return &tag, nil
}
