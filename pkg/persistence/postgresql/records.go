package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/stageflow/pkg/models"
	"github.com/dukex/stageflow/pkg/persistence"
)

// ActivityRepository handles activity rows.
type ActivityRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewActivityRepository(db *sql.DB, logger *slog.Logger) *ActivityRepository {
	return &ActivityRepository{db: db, logger: logger}
}

const activityColumns = "id, workflow_id, stage_id, name, description, type, config, created_at, updated_at"

func (r *ActivityRepository) List(ctx context.Context, workflowID string) ([]*models.Activity, error) {
	query := "SELECT " + activityColumns + " FROM activities"
	args := make([]any, 0, 1)

	if workflowID != "" {
		query += " WHERE workflow_id = $1"

		args = append(args, workflowID)
	}

	query += " ORDER BY created_at ASC, id ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query activities: %w", err)
	}
	defer closeRows(ctx, r.logger, rows)

	activities := make([]*models.Activity, 0)

	for rows.Next() {
		activity, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}

		activities = append(activities, activity)
	}

	return activities, rows.Err()
}

func (r *ActivityRepository) GetByID(ctx context.Context, id string) (*models.Activity, error) {
	activity, err := scanActivity(r.db.QueryRowContext(ctx, "SELECT "+activityColumns+" FROM activities WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewRecordError("GetByID", "activity", id, persistence.ErrActivityNotFound)
	}

	if err != nil {
		return nil, persistence.NewRecordError("GetByID", "activity", id, err)
	}

	return activity, nil
}

func (r *ActivityRepository) Save(ctx context.Context, activity *models.Activity) error {
	config, err := json.Marshal(activity.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal activity config: %w", err)
	}

	if activity.Config == nil {
		config = []byte("{}")
	}

	query := `
		INSERT INTO activities (id, workflow_id, stage_id, name, description, type, config, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			workflow_id = EXCLUDED.workflow_id,
			stage_id = EXCLUDED.stage_id,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			type = EXCLUDED.type,
			config = EXCLUDED.config,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		activity.ID,
		activity.WorkflowID,
		activity.StageID,
		activity.Name,
		activity.Description,
		activity.Type,
		config,
		activity.CreatedAt,
		activity.UpdatedAt,
	)
	if err != nil {
		return persistence.NewRecordError("Save", "activity", activity.ID, err)
	}

	return nil
}

func (r *ActivityRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM activities WHERE id = $1", id)
	if err == nil {
		err = expectAffected(result, persistence.ErrActivityNotFound)
	}

	if err != nil {
		return persistence.NewRecordError("Delete", "activity", id, err)
	}

	return nil
}

func scanActivity(row scanner) (*models.Activity, error) {
	var (
		activity models.Activity
		config   []byte
	)

	err := row.Scan(
		&activity.ID,
		&activity.WorkflowID,
		&activity.StageID,
		&activity.Name,
		&activity.Description,
		&activity.Type,
		&config,
		&activity.CreatedAt,
		&activity.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(config, &activity.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal activity config: %w", err)
	}

	if len(activity.Config) == 0 {
		activity.Config = nil
	}

	return &activity, nil
}

// MappingRepository handles workflow_mappings rows.
type MappingRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewMappingRepository(db *sql.DB, logger *slog.Logger) *MappingRepository {
	return &MappingRepository{db: db, logger: logger}
}

const mappingColumns = "id, workflow_id, functionality_id, functionality_name, functionality_type, created_at"

func (r *MappingRepository) List(ctx context.Context) ([]*models.WorkflowMapping, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+mappingColumns+" FROM workflow_mappings ORDER BY created_at ASC, id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query workflow mappings: %w", err)
	}
	defer closeRows(ctx, r.logger, rows)

	mappings := make([]*models.WorkflowMapping, 0)

	for rows.Next() {
		mapping, err := scanMapping(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow mapping: %w", err)
		}

		mappings = append(mappings, mapping)
	}

	return mappings, rows.Err()
}

func (r *MappingRepository) GetByID(ctx context.Context, id string) (*models.WorkflowMapping, error) {
	mapping, err := scanMapping(r.db.QueryRowContext(ctx, "SELECT "+mappingColumns+" FROM workflow_mappings WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewRecordError("GetByID", "mapping", id, persistence.ErrMappingNotFound)
	}

	if err != nil {
		return nil, persistence.NewRecordError("GetByID", "mapping", id, err)
	}

	return mapping, nil
}

func (r *MappingRepository) Save(ctx context.Context, mapping *models.WorkflowMapping) error {
	query := `
		INSERT INTO workflow_mappings (id, workflow_id, functionality_id, functionality_name, functionality_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			workflow_id = EXCLUDED.workflow_id,
			functionality_id = EXCLUDED.functionality_id,
			functionality_name = EXCLUDED.functionality_name,
			functionality_type = EXCLUDED.functionality_type
	`

	_, err := r.db.ExecContext(ctx, query,
		mapping.ID,
		mapping.WorkflowID,
		mapping.FunctionalityID,
		mapping.FunctionalityName,
		string(mapping.FunctionalityType),
		mapping.CreatedAt,
	)
	if err != nil {
		return persistence.NewRecordError("Save", "mapping", mapping.ID, err)
	}

	return nil
}

func (r *MappingRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM workflow_mappings WHERE id = $1", id)
	if err == nil {
		err = expectAffected(result, persistence.ErrMappingNotFound)
	}

	if err != nil {
		return persistence.NewRecordError("Delete", "mapping", id, err)
	}

	return nil
}

func scanMapping(row scanner) (*models.WorkflowMapping, error) {
	var (
		mapping           models.WorkflowMapping
		functionalityType string
	)

	err := row.Scan(
		&mapping.ID,
		&mapping.WorkflowID,
		&mapping.FunctionalityID,
		&mapping.FunctionalityName,
		&functionalityType,
		&mapping.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	mapping.FunctionalityType = models.FunctionalityType(functionalityType)

	return &mapping, nil
}

// FunctionalityRepository handles the functionality catalog.
type FunctionalityRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewFunctionalityRepository(db *sql.DB, logger *slog.Logger) *FunctionalityRepository {
	return &FunctionalityRepository{db: db, logger: logger}
}

func (r *FunctionalityRepository) List(ctx context.Context) ([]*models.Functionality, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name, type FROM functionalities ORDER BY name ASC, id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query functionalities: %w", err)
	}
	defer closeRows(ctx, r.logger, rows)

	functionalities := make([]*models.Functionality, 0)

	for rows.Next() {
		functionality, err := scanFunctionality(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan functionality: %w", err)
		}

		functionalities = append(functionalities, functionality)
	}

	return functionalities, rows.Err()
}

func (r *FunctionalityRepository) GetByID(ctx context.Context, id string) (*models.Functionality, error) {
	functionality, err := scanFunctionality(r.db.QueryRowContext(ctx, "SELECT id, name, type FROM functionalities WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewRecordError("GetByID", "functionality", id, persistence.ErrFunctionalityNotFound)
	}

	if err != nil {
		return nil, persistence.NewRecordError("GetByID", "functionality", id, err)
	}

	return functionality, nil
}

func (r *FunctionalityRepository) Save(ctx context.Context, functionality *models.Functionality) error {
	query := `
		INSERT INTO functionalities (id, name, type) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, type = EXCLUDED.type
	`

	_, err := r.db.ExecContext(ctx, query, functionality.ID, functionality.Name, string(functionality.Type))
	if err != nil {
		return persistence.NewRecordError("Save", "functionality", functionality.ID, err)
	}

	return nil
}

func scanFunctionality(row scanner) (*models.Functionality, error) {
	var (
		functionality     models.Functionality
		functionalityType string
	)

	err := row.Scan(&functionality.ID, &functionality.Name, &functionalityType)
	if err != nil {
		return nil, err
	}

	functionality.Type = models.FunctionalityType(functionalityType)

	return &functionality, nil
}

// ApprovalRepository keeps pending approval records as JSON documents with indexed status.
type ApprovalRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewApprovalRepository(db *sql.DB, logger *slog.Logger) *ApprovalRepository {
	return &ApprovalRepository{db: db, logger: logger}
}

func (r *ApprovalRepository) List(ctx context.Context) ([]*models.PendingApproval, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT data FROM pending_approvals ORDER BY requested_at ASC, id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query approvals: %w", err)
	}
	defer closeRows(ctx, r.logger, rows)

	approvals := make([]*models.PendingApproval, 0)

	for rows.Next() {
		approval, err := scanApproval(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan approval: %w", err)
		}

		approvals = append(approvals, approval)
	}

	return approvals, rows.Err()
}

func (r *ApprovalRepository) GetByID(ctx context.Context, id string) (*models.PendingApproval, error) {
	approval, err := scanApproval(r.db.QueryRowContext(ctx, "SELECT data FROM pending_approvals WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewRecordError("GetByID", "approval", id, persistence.ErrApprovalNotFound)
	}

	if err != nil {
		return nil, persistence.NewRecordError("GetByID", "approval", id, err)
	}

	return approval, nil
}

func (r *ApprovalRepository) Save(ctx context.Context, approval *models.PendingApproval) error {
	data, err := json.Marshal(approval)
	if err != nil {
		return fmt.Errorf("failed to marshal approval: %w", err)
	}

	query := `
		INSERT INTO pending_approvals (id, workflow_id, status, requested_at, data)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			workflow_id = EXCLUDED.workflow_id,
			status = EXCLUDED.status,
			requested_at = EXCLUDED.requested_at,
			data = EXCLUDED.data
	`

	_, err = r.db.ExecContext(ctx, query, approval.ID, approval.WorkflowID, string(approval.Status), approval.RequestedAt, data)
	if err != nil {
		return persistence.NewRecordError("Save", "approval", approval.ID, err)
	}

	return nil
}

func (r *ApprovalRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM pending_approvals WHERE id = $1", id)
	if err == nil {
		err = expectAffected(result, persistence.ErrApprovalNotFound)
	}

	if err != nil {
		return persistence.NewRecordError("Delete", "approval", id, err)
	}

	return nil
}

func scanApproval(row scanner) (*models.PendingApproval, error) {
	var data []byte

	err := row.Scan(&data)
	if err != nil {
		return nil, err
	}

	var approval models.PendingApproval

	err = json.Unmarshal(data, &approval)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal approval: %w", err)
	}

	return &approval, nil
}
