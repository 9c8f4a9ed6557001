package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/scholarsphere/internal/app/models"
	"github.com/yigit/scholarsphere/internal/app/workflow"
	database "github.com/yigit/scholarsphere/internal/db"
	"github.com/yigit/scholarsphere/internal/pkg/apperrors"
	"github.com/yigit/scholarsphere/internal/pkg/logger"
)

// DocumentRepository handles the document requirement catalogue and uploaded application documents
type DocumentRepository struct {
	baseRepository
}

// NewDocumentRepository creates a new DocumentRepository
func NewDocumentRepository(db *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{baseRepository: newBaseRepository(db)}
}

var documentRequirementColumns = []string{
	"dr.id", "dr.document_type", "dr.custom_name", "dr.description", "dr.is_required",
	"dr.accepted_formats", "dr.max_file_size_mb", "dr.created_at",
}

func queryDocumentRequirements(ctx context.Context, q database.Querier, sql string, args []interface{}) ([]*models.DocumentRequirement, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing document requirements: %w", err)
	}
	defer rows.Close()

	items := []*models.DocumentRequirement{}
	for rows.Next() {
		d := &models.DocumentRequirement{}
		if err := rows.Scan(&d.ID, &d.DocumentType, &d.CustomName, &d.Description, &d.IsRequired,
			&d.AcceptedFormats, &d.MaxFileSizeMB, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning document requirement: %w", err)
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

// CreateRequirement adds an entry to the document requirement catalogue
func (r *DocumentRepository) CreateRequirement(ctx context.Context, d *models.DocumentRequirement) (int64, error) {
	sql, args, err := r.sb.Insert("document_requirements").
		Columns("document_type", "custom_name", "description", "is_required", "accepted_formats", "max_file_size_mb").
		Values(d.DocumentType, d.CustomName, d.Description, d.IsRequired, d.AcceptedFormats, d.MaxFileSizeMB).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build create document requirement query: %w", err)
	}
	if err := r.conn(ctx).QueryRow(ctx, sql, args...).Scan(&d.ID, &d.CreatedAt); err != nil {
		return 0, fmt.Errorf("error creating document requirement: %w", err)
	}
	return d.ID, nil
}

// ListRequirements returns the whole catalogue
func (r *DocumentRepository) ListRequirements(ctx context.Context) ([]*models.DocumentRequirement, error) {
	sql, args, err := r.sb.Select(documentRequirementColumns...).
		From("document_requirements dr").
		OrderBy("dr.document_type", "dr.id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list document requirements query: %w", err)
	}
	return queryDocumentRequirements(ctx, r.conn(ctx), sql, args)
}

// RequirementExists reports whether the catalogue holds a requirement of type with the given custom name
func (r *DocumentRepository) RequirementExists(ctx context.Context, docType models.DocumentType, customName *string) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM document_requirements
		WHERE document_type = $1 AND COALESCE(custom_name, '') = COALESCE($2, ''))`,
		docType, customName).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error checking document requirement: %w", err)
	}
	return exists, nil
}

func (r *DocumentRepository) createDocumentQuery(d *models.ApplicationDocument, editable []workflow.Status) squirrel.InsertBuilder {
	source := squirrel.Select("a.id").
		Column("?::bigint", d.RequirementID).
		Column("?::varchar", d.Name).
		Column("?::varchar", d.FilePath).
		Column("?::bigint", d.FileSize).
		Column("?::varchar", d.MimeType).
		From("applications a").
		Where(squirrel.Eq{"a.id": d.ApplicationID, "a.status": editable}).
		Suffix("FOR SHARE")
	return r.sb.Insert("application_documents").
		Columns("application_id", "requirement_id", "name", "file_path", "file_size", "mime_type").
		Select(source).
		Suffix("RETURNING id, uploaded_at")
}

// CreateDocument records an uploaded file while the application status is one of editable.
// The application row is share-locked so a concurrent status change waits for the insert.
func (r *DocumentRepository) CreateDocument(ctx context.Context, d *models.ApplicationDocument, editable []workflow.Status) (int64, error) {
	sql, args, err := r.createDocumentQuery(d, editable).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build create document query: %w", err)
	}
	if err := r.conn(ctx).QueryRow(ctx, sql, args...).Scan(&d.ID, &d.UploadedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperrors.ErrApplicationNotEditable
		}
		logger.Error().Err(err).Int64("applicationID", d.ApplicationID).Msg("Error executing create document query")
		return 0, fmt.Errorf("error creating document: %w", err)
	}
	return d.ID, nil
}

// ListByApplication returns the documents attached to an application
func (r *DocumentRepository) ListByApplication(ctx context.Context, applicationID int64) ([]*models.ApplicationDocument, error) {
	sql, args, err := r.sb.Select("id", "application_id", "requirement_id", "name", "file_path", "file_size", "mime_type", "uploaded_at").
		From("application_documents").
		Where(squirrel.Eq{"application_id": applicationID}).
		OrderBy("uploaded_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list documents query: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing documents: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.ApplicationDocument, error) {
		d := &models.ApplicationDocument{}
		err := row.Scan(&d.ID, &d.ApplicationID, &d.RequirementID, &d.Name, &d.FilePath, &d.FileSize, &d.MimeType, &d.UploadedAt)
		return d, err
	})
}

// GetDocument returns one document of an application
func (r *DocumentRepository) GetDocument(ctx context.Context, applicationID, documentID int64) (*models.ApplicationDocument, error) {
	d := &models.ApplicationDocument{}
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, application_id, requirement_id, name, file_path, file_size, mime_type, uploaded_at
		FROM application_documents WHERE id = $1 AND application_id = $2`,
		documentID, applicationID).
		Scan(&d.ID, &d.ApplicationID, &d.RequirementID, &d.Name, &d.FilePath, &d.FileSize, &d.MimeType, &d.UploadedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("error getting document: %w", err)
	}
	return d, nil
}

func (r *DocumentRepository) deleteDocumentQuery(applicationID, documentID int64, editable []workflow.Status) squirrel.DeleteBuilder {
	owner := squirrel.Select("id").
		From("applications").
		Where(squirrel.Eq{"id": applicationID, "status": editable}).
		Suffix("FOR SHARE")
	return r.sb.Delete("application_documents").
		Where(squirrel.Eq{"id": documentID, "application_id": applicationID}).
		Where(squirrel.Expr("application_id IN (?)", owner))
}

// DeleteDocument removes a document row while the application status is one of editable
func (r *DocumentRepository) DeleteDocument(ctx context.Context, applicationID, documentID int64, editable []workflow.Status) error {
	sql, args, err := r.deleteDocumentQuery(applicationID, documentID, editable).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete document query: %w", err)
	}
	tag, err := r.conn(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error deleting document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetDocument(ctx, applicationID, documentID); err != nil {
			return err
		}
		return apperrors.ErrApplicationNotEditable
	}
	return nil
}
