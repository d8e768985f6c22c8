package disaggregation

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/jmylchreest/cif/internal/catalog"
	"github.com/jmylchreest/cif/internal/connector"
	"github.com/jmylchreest/cif/internal/database/migrations"
	"github.com/jmylchreest/cif/internal/extractor"
	"github.com/jmylchreest/cif/internal/models"
	"github.com/jmylchreest/cif/internal/queue"
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

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

// seedGeneration stages and promotes one filesystem source's files,
// reusing internal/intake indirectly is unnecessary here: disaggregation
// only needs an existing generation with new artifacts in it, built
// directly through the catalog the way promotion.go's own tests do.
func seedGeneration(t *testing.T, db *gorm.DB, cat catalog.Catalog, dir string, mode models.DispatchMode) (models.Source, connector.Connector, int64) {
	t.Helper()
	config, err := json.Marshal(connector.FilesystemConfig{Root: dir, Pattern: "*.html"})
	require.NoError(t, err)
	source := models.Source{
		Name:            "pages",
		ConnectorType:   models.ConnectorFilesystem,
		ConnectorConfig: config,
		DispatchMode:    mode,
		LinesPerChunk:   2,
	}
	require.NoError(t, db.Create(&source).Error)

	conn, err := connector.NewFactory().Build(&source)
	require.NoError(t, err)

	ctx := context.Background()
	stageID := "stage-1"
	createdOn := models.Now()
	var rows []models.StageRow
	for ref, err := range conn.ListArtifacts(ctx) {
		require.NoError(t, err)
		rows = append(rows, models.StageRow{
			StageID:     stageID,
			BatchID:     "batch-1",
			SourceID:    source.ID,
			ArtifactID:  models.NewHexID(),
			ExternalID:  ref.ExternalID,
			Version:     ref.Fingerprint.Version,
			ContentType: ref.Fingerprint.ContentType,
			Size:        ref.Fingerprint.Size,
			CreatedOn:   createdOn,
		})
	}
	require.NoError(t, cat.StageBatch(ctx, rows))
	_, err = cat.Promote(ctx, source.ID, stageID, "batch-1", createdOn)
	require.NoError(t, err)

	genID, err := cat.LatestGenerationID(ctx, source.ID)
	require.NoError(t, err)
	return source, conn, genID
}

func htmlDeps(cat catalog.Catalog, conn connector.Connector, pub queue.Publisher) Dependencies {
	htmlExt, _ := extractor.NewHTMLDocumentExtractor(nil)
	return Dependencies{
		Catalog:    cat,
		Connector:  conn,
		Extractors: []extractor.Extractor{htmlExt},
		Publisher:  pub,
	}
}

func TestDisaggregate_ImmediateCreatesFragments(t *testing.T) {
	db := setupTestDB(t)
	cat := catalog.New(db)
	dir := t.TempDir()
	writeFile(t, dir, "a.html", "<html><body><p>hello world</p></body></html>")
	writeFile(t, dir, "b.html", "<html><body><p>goodbye world</p></body></html>")

	source, conn, genID := seedGeneration(t, db, cat, dir, models.DispatchImmediate)

	summary, err := Disaggregate(context.Background(), htmlDeps(cat, conn, nil), &source, genID)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.ArtifactsProcessed)
	assert.Equal(t, 2, summary.FragmentsCreated)
}

func TestDisaggregate_ImmediateChunkedSharesFragmentIDPerChunk(t *testing.T) {
	db := setupTestDB(t)
	cat := catalog.New(db)
	dir := t.TempDir()
	writeFile(t, dir, "a.html", "<p>one</p>\n<p>two</p>\n<p>three</p>\n<p>four</p>\n")

	source, conn, genID := seedGeneration(t, db, cat, dir, models.DispatchImmediateChunked)

	summary, err := Disaggregate(context.Background(), htmlDeps(cat, conn, nil), &source, genID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.ArtifactsProcessed)
	assert.Greater(t, summary.FragmentsCreated, 0)
}

// TestDisaggregate_ImmediateChunkedHTMLLinkSharesFragmentIDPerChunk uses
// html_link rather than html_document because html_document always emits
// exactly one fragment per chunk, which can never expose a bug in
// sharing one fragment_id across more than one fragment. Two lines fit
// in one chunk (LinesPerChunk: 2, set by seedGeneration), so all three
// links below land in the same chunked extraction task and must share
// one fragment_id, distinguished only by seq_no.
func TestDisaggregate_ImmediateChunkedHTMLLinkSharesFragmentIDPerChunk(t *testing.T) {
	db := setupTestDB(t)
	cat := catalog.New(db)
	dir := t.TempDir()
	writeFile(t, dir, "a.html", `<a href="/one">One</a><a href="/two">Two</a>`+"\n"+`<a href="/three">Three</a>`+"\n")

	source, conn, genID := seedGeneration(t, db, cat, dir, models.DispatchImmediateChunked)

	linkExt, err := extractor.NewHTMLLinkExtractor(nil)
	require.NoError(t, err)
	deps := Dependencies{Catalog: cat, Connector: conn, Extractors: []extractor.Extractor{linkExt}}

	summary, err := Disaggregate(context.Background(), deps, &source, genID)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.FragmentsCreated)

	var fragments []models.Fragment
	require.NoError(t, db.Order("seq_no ASC").Find(&fragments).Error)
	require.Len(t, fragments, 3)

	for _, f := range fragments {
		assert.Equal(t, fragments[0].FragmentID, f.FragmentID,
			"every fragment produced from one chunked task must share the task's fragment_id")
	}
	seqNos := make(map[int]bool, len(fragments))
	for _, f := range fragments {
		seqNos[f.SeqNo] = true
	}
	assert.Len(t, seqNos, 3, "each fragment sharing a fragment_id must have a distinct seq_no")
}

func TestDisaggregate_DeferredPublishesPendingRows(t *testing.T) {
	db := setupTestDB(t)
	cat := catalog.New(db)
	dir := t.TempDir()
	writeFile(t, dir, "a.html", "<html><body><p>hello</p></body></html>")

	source, conn, genID := seedGeneration(t, db, cat, dir, models.DispatchDeferred)
	mq := queue.NewMemQueue(3)

	summary, err := Disaggregate(context.Background(), htmlDeps(cat, conn, mq), &source, genID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.DeferredPublished)
	assert.Equal(t, 0, summary.FragmentsCreated, "deferred dispatch leaves extraction to a worker")
}

func TestDisaggregate_DeferredChunkedAttachesByteRanges(t *testing.T) {
	db := setupTestDB(t)
	cat := catalog.New(db)
	dir := t.TempDir()
	writeFile(t, dir, "a.html", "<p>one</p>\n<p>two</p>\n<p>three</p>\n<p>four</p>\n")

	source, conn, genID := seedGeneration(t, db, cat, dir, models.DispatchDeferredChunked)
	mq := queue.NewMemQueue(3)

	summary, err := Disaggregate(context.Background(), htmlDeps(cat, conn, mq), &source, genID)
	require.NoError(t, err)
	assert.Greater(t, summary.DeferredPublished, 0)
}

func TestDisaggregate_UnknownDispatchModeErrors(t *testing.T) {
	db := setupTestDB(t)
	cat := catalog.New(db)
	dir := t.TempDir()
	writeFile(t, dir, "a.html", "<html><body><p>hello</p></body></html>")

	source, conn, genID := seedGeneration(t, db, cat, dir, models.DispatchImmediate)
	source.DispatchMode = models.DispatchMode("bogus")

	_, err := Disaggregate(context.Background(), htmlDeps(cat, conn, nil), &source, genID)
	assert.Error(t, err)
}
