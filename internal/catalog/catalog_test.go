package catalog

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/jmylchreest/cif/internal/database/migrations"
	"github.com/jmylchreest/cif/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	migrator := migrations.NewMigrator(db, nil)
	migrator.RegisterAll(migrations.AllMigrations())
	require.NoError(t, migrator.Up(context.Background()))

	return db
}

func testSource(t *testing.T, db *gorm.DB) models.Source {
	t.Helper()
	source := models.Source{
		Name:          "test source",
		ConnectorType: models.ConnectorFilesystem,
		DispatchMode:  models.DispatchImmediate,
	}
	require.NoError(t, db.Create(&source).Error)
	return source
}

// stageArtifacts stages n rows under a fresh stage/batch id and returns
// the stage_id, batch_id and created_on shared by all of them.
func stageArtifacts(t *testing.T, ctx context.Context, cat Catalog, sourceID models.HexID, n int, versionSuffix string) (stageID, batchID string, createdOn models.Time) {
	t.Helper()
	stageID = uuid.NewString()
	batchID = uuid.NewString()
	createdOn = models.Now()

	rows := make([]models.StageRow, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, models.StageRow{
			StageID:    stageID,
			BatchID:    batchID,
			SourceID:   sourceID,
			ExternalID: externalIDFor(i),
			Version:    "v1" + versionSuffix,
			ArtifactID: models.NewHexID(),
			CreatedOn:  createdOn,
		})
	}
	require.NoError(t, cat.StageBatch(ctx, rows))
	return stageID, batchID, createdOn
}

func externalIDFor(i int) string {
	return "doc-" + string(rune('a'+i))
}

func TestPromote_FreshSource(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	cat := New(db)
	source := testSource(t, db)

	stageID, batchID, createdOn := stageArtifacts(t, ctx, cat, source.ID, 5, "")

	inserted, deleted, err := cat.ChangeCounts(ctx, source.ID, stageID)
	require.NoError(t, err)
	assert.EqualValues(t, 5, inserted)
	assert.EqualValues(t, 0, deleted)

	counts, err := cat.Promote(ctx, source.ID, stageID, batchID, createdOn)
	require.NoError(t, err)
	assert.EqualValues(t, 0, counts.Reconciled)
	assert.EqualValues(t, 5, counts.Created)
	assert.EqualValues(t, 5, counts.Generated)

	latest, err := cat.LatestGenerationID(ctx, source.ID)
	require.NoError(t, err)
	assert.Equal(t, createdOn.UnixMicro(), latest)

	artifacts, total, err := cat.NewArtifactsInGeneration(ctx, source.ID, latest, 0, 100)
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	assert.Len(t, artifacts, 5)
}

func TestPromote_NoOpReintakeCreatesNoNewGeneration(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	cat := New(db)
	source := testSource(t, db)

	stageID1, batchID1, createdOn1 := stageArtifacts(t, ctx, cat, source.ID, 3, "")
	_, err := cat.Promote(ctx, source.ID, stageID1, batchID1, createdOn1)
	require.NoError(t, err)

	firstGen, err := cat.LatestGenerationID(ctx, source.ID)
	require.NoError(t, err)

	// Re-stage identical (external_id, version) pairs under a fresh
	// stage/batch id, as a fresh intake cycle would.
	stageID2, _, _ := stageArtifacts(t, ctx, cat, source.ID, 3, "")
	inserted, deleted, err := cat.ChangeCounts(ctx, source.ID, stageID2)
	require.NoError(t, err)
	assert.EqualValues(t, 0, inserted)
	assert.EqualValues(t, 0, deleted)

	latestAfter, err := cat.LatestGenerationID(ctx, source.ID)
	require.NoError(t, err)
	assert.Equal(t, firstGen, latestAfter, "generation must not change when nothing changed")
}

func TestPromote_UpdateOneArtifactReconcilesTheRest(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	cat := New(db)
	source := testSource(t, db)

	stageID1, batchID1, createdOn1 := stageArtifacts(t, ctx, cat, source.ID, 5, "")
	_, err := cat.Promote(ctx, source.ID, stageID1, batchID1, createdOn1)
	require.NoError(t, err)
	genA, err := cat.LatestGenerationID(ctx, source.ID)
	require.NoError(t, err)

	// Second cycle: same identities, except doc-a's version changes.
	stageID2 := uuid.NewString()
	batchID2 := uuid.NewString()
	createdOn2 := models.Now()
	rows := make([]models.StageRow, 0, 5)
	for i := 0; i < 5; i++ {
		version := "v1"
		if i == 0 {
			version = "v2"
		}
		rows = append(rows, models.StageRow{
			StageID:    stageID2,
			BatchID:    batchID2,
			SourceID:   source.ID,
			ExternalID: externalIDFor(i),
			Version:    version,
			ArtifactID: models.NewHexID(),
			CreatedOn:  createdOn2,
		})
	}
	require.NoError(t, cat.StageBatch(ctx, rows))

	inserted, deleted, err := cat.ChangeCounts(ctx, source.ID, stageID2)
	require.NoError(t, err)
	assert.EqualValues(t, 1, inserted)
	assert.EqualValues(t, 1, deleted) // doc-a@v1 is bound to genA but no longer staged

	counts, err := cat.Promote(ctx, source.ID, stageID2, batchID2, createdOn2)
	require.NoError(t, err)
	assert.EqualValues(t, 4, counts.Reconciled)
	assert.EqualValues(t, 1, counts.Created)

	genB, err := cat.LatestGenerationID(ctx, source.ID)
	require.NoError(t, err)
	assert.NotEqual(t, genA, genB)

	entries, err := cat.Diff(ctx, source.ID, genA, genB)
	require.NoError(t, err)
	var updated, none int
	for _, e := range entries {
		switch e.Status {
		case DiffUpdated:
			updated++
		case DiffNone:
			none++
		}
	}
	assert.Equal(t, 1, updated)
	assert.Equal(t, 4, none)
}

func TestDiff_SelfIsAllNone(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	cat := New(db)
	source := testSource(t, db)

	stageID, batchID, createdOn := stageArtifacts(t, ctx, cat, source.ID, 4, "")
	_, err := cat.Promote(ctx, source.ID, stageID, batchID, createdOn)
	require.NoError(t, err)

	gen, err := cat.LatestGenerationID(ctx, source.ID)
	require.NoError(t, err)

	entries, err := cat.Diff(ctx, source.ID, gen, gen)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	for _, e := range entries {
		assert.Equal(t, DiffNone, e.Status)
	}
}

func TestSearch_TextMode(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	cat := New(db)
	source := testSource(t, db)

	stageID, batchID, createdOn := stageArtifacts(t, ctx, cat, source.ID, 1, "")
	_, err := cat.Promote(ctx, source.ID, stageID, batchID, createdOn)
	require.NoError(t, err)

	gen, err := cat.LatestGenerationID(ctx, source.ID)
	require.NoError(t, err)
	artifacts, _, err := cat.NewArtifactsInGeneration(ctx, source.ID, gen, 0, 10)
	require.NoError(t, err)
	require.Len(t, artifacts, 1)

	fragment := models.Fragment{
		FragmentID:    models.NewHexID(),
		ArtifactID:    artifacts[0].ID,
		GenerationID:  gen,
		ExtractorType: "html_document",
		Type:          models.FragmentDocument,
		TextContent:   "the quick brown fox",
	}
	require.NoError(t, cat.CreateFragments(ctx, []models.Fragment{fragment}, 0))

	result, err := cat.Search(ctx, SearchParams{
		Mode:     SearchText,
		SourceID: source.ID,
		Query:    "quick",
	})
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Equal(t, fragment.FragmentID, result.Records[0].FragmentID)
}

func TestSearch_KeyedMode(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	cat := New(db)
	source := testSource(t, db)

	stageID, batchID, createdOn := stageArtifacts(t, ctx, cat, source.ID, 2, "")
	_, err := cat.Promote(ctx, source.ID, stageID, batchID, createdOn)
	require.NoError(t, err)

	gen, err := cat.LatestGenerationID(ctx, source.ID)
	require.NoError(t, err)
	artifacts, _, err := cat.NewArtifactsInGeneration(ctx, source.ID, gen, 0, 10)
	require.NoError(t, err)
	require.Len(t, artifacts, 2)

	// matching carries both requested keys with matching values; partial
	// only carries ada_code.
	matching := models.Fragment{FragmentID: models.NewHexID(), ArtifactID: artifacts[0].ID, GenerationID: gen, ExtractorType: "csv_row", Type: models.FragmentRow}
	partial := models.Fragment{FragmentID: models.NewHexID(), ArtifactID: artifacts[1].ID, GenerationID: gen, ExtractorType: "csv_row", Type: models.FragmentRow}
	require.NoError(t, cat.CreateFragments(ctx, []models.Fragment{matching, partial}, 0))

	require.NoError(t, cat.CreateFragmentKeys(ctx, []models.FragmentKey{
		{FragmentID: matching.FragmentID, ArtifactID: matching.ArtifactID, Key: "ada_code", Value: "12345"},
		{FragmentID: matching.FragmentID, ArtifactID: matching.ArtifactID, Key: "dr_code", Value: "XY99"},
		{FragmentID: partial.FragmentID, ArtifactID: partial.ArtifactID, Key: "ada_code", Value: "12345"},
	}, 0))

	result, err := cat.Search(ctx, SearchParams{
		Mode:     SearchKeyed,
		SourceID: source.ID,
		Keys: []KeySearchTerm{
			{Key: "ada_code", Values: []string{"12345"}},
			{Key: "dr_code", Values: []string{"XY99"}},
		},
	})
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Equal(t, matching.FragmentID, result.Records[0].FragmentID)
}

func TestCapacity_PromotionBatchSizeDerivedFromMutationCap(t *testing.T) {
	assert.Equal(t, transactionMutationCap/mutationsPerRow, PromotionBatchSize)
	assert.Less(t, mutationsPerRow*PromotionBatchSize, transactionMutationCap+1)
}
