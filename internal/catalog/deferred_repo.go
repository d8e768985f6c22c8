package catalog

import (
	"context"
	"fmt"

	"github.com/jmylchreest/cif/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// deferredRepo implements DeferredRepository using GORM.
type deferredRepo struct {
	db *gorm.DB
}

func newDeferredRepo(db *gorm.DB) *deferredRepo {
	return &deferredRepo{db: db}
}

// deferredUpsertKey is the composite upsert key named in spec.md §4.6:
// "each attempt upserts a row keyed by" this tuple, matching the
// idx_deferred_key unique index on models.DeferredDisaggregation.
var deferredUpsertKey = []clause.Column{
	{Name: "source_id"},
	{Name: "generation_id"},
	{Name: "artifact_id"},
	{Name: "extractor_type"},
	{Name: "fragment_id"},
	{Name: "byte_range_start"},
	{Name: "byte_range_end"},
}

// UpsertBatch inserts or updates rows keyed by deferredUpsertKey.
func (r *deferredRepo) UpsertBatch(ctx context.Context, rows []models.DeferredDisaggregation) error {
	if len(rows) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   deferredUpsertKey,
			DoUpdates: clause.AssignmentColumns([]string{"status", "delivery_attempt", "last_error", "updated_at"}),
		}).
		CreateInBatches(rows, DeferredPersistBatchSize).Error; err != nil {
		return fmt.Errorf("upserting deferred disaggregation batch: %w", err)
	}
	return nil
}

// GetDeferredByID retrieves a deferred_disaggregation row by ID.
func (r *deferredRepo) GetDeferredByID(ctx context.Context, id int64) (*models.DeferredDisaggregation, error) {
	var row models.DeferredDisaggregation
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting deferred disaggregation by id: %w", err)
	}
	return &row, nil
}

// MarkDone transitions a row to the terminal DONE state.
func (r *deferredRepo) MarkDone(ctx context.Context, id int64, deliveryAttempt int) error {
	updates := map[string]any{
		"status":           models.DeferredDone,
		"delivery_attempt": deliveryAttempt,
	}
	if err := r.db.WithContext(ctx).Model(&models.DeferredDisaggregation{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("marking deferred disaggregation done: %w", err)
	}
	return nil
}

// MarkFailed transitions a row to FAILED, recording the cause. FAILED is
// not necessarily terminal: a retried message may reach DONE on a later
// attempt.
func (r *deferredRepo) MarkFailed(ctx context.Context, id int64, deliveryAttempt int, lastError string) error {
	updates := map[string]any{
		"status":           models.DeferredFailed,
		"delivery_attempt": deliveryAttempt,
		"last_error":       lastError,
	}
	if err := r.db.WithContext(ctx).Model(&models.DeferredDisaggregation{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("marking deferred disaggregation failed: %w", err)
	}
	return nil
}

// ListByStatus returns deferred_disaggregation rows in status, newest
// first, paginated by offset/limit, plus the total matching count.
func (r *deferredRepo) ListByStatus(ctx context.Context, status models.DeferredStatus, offset, limit int) ([]models.DeferredDisaggregation, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.DeferredDisaggregation{}).
		Where("status = ?", status).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting deferred disaggregations by status: %w", err)
	}

	var rows []models.DeferredDisaggregation
	if err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("listing deferred disaggregations by status: %w", err)
	}
	return rows, total, nil
}

// Requeue resets a FAILED row back to PENDING so a re-published message
// gets another delivery attempt, without touching delivery_attempt
// (preserved so the worker's markDiscarded/MarkFailed history survives).
func (r *deferredRepo) Requeue(ctx context.Context, id int64) (*models.DeferredDisaggregation, error) {
	updates := map[string]any{
		"status":     models.DeferredPending,
		"last_error": "",
	}
	if err := r.db.WithContext(ctx).Model(&models.DeferredDisaggregation{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("requeuing deferred disaggregation: %w", err)
	}
	return r.GetDeferredByID(ctx, id)
}

var _ DeferredRepository = (*deferredRepo)(nil)
