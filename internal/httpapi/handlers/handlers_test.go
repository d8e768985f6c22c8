package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/glebarez/sqlite"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jmylchreest/cif/internal/catalog"
	"github.com/jmylchreest/cif/internal/connector"
	"github.com/jmylchreest/cif/internal/database/migrations"
	"github.com/jmylchreest/cif/internal/httpapi/handlers"
	"github.com/jmylchreest/cif/internal/models"
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

func newTestRouter() *chi.Mux {
	return chi.NewRouter()
}

// seedSourceWithGeneration stages and promotes one filesystem source's
// single file, returning the source and its latest generation ID.
func seedSourceWithGeneration(t *testing.T, db *gorm.DB, cat catalog.Catalog) (models.Source, int64) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.html"), []byte("<p>hello</p>"), 0o644))

	config, err := json.Marshal(connector.FilesystemConfig{Root: dir, Pattern: "*.html"})
	require.NoError(t, err)
	source := models.Source{
		Name:            "pages",
		ConnectorType:   models.ConnectorFilesystem,
		ConnectorConfig: config,
		DispatchMode:    models.DispatchImmediate,
	}
	require.NoError(t, db.Create(&source).Error)

	conn, err := connector.NewFactory().Build(&source)
	require.NoError(t, err)

	ctx := context.Background()
	createdOn := models.Now()
	var rows []models.StageRow
	for ref, err := range conn.ListArtifacts(ctx) {
		require.NoError(t, err)
		rows = append(rows, models.StageRow{
			StageID: "s1", BatchID: "b1", SourceID: source.ID,
			ArtifactID: models.NewHexID(), ExternalID: ref.ExternalID,
			Version: ref.Fingerprint.Version, ContentType: ref.Fingerprint.ContentType,
			Size: ref.Fingerprint.Size, CreatedOn: createdOn,
		})
	}
	require.NoError(t, cat.StageBatch(ctx, rows))
	_, err = cat.Promote(ctx, source.ID, "s1", "b1", createdOn)
	require.NoError(t, err)

	genID, err := cat.LatestGenerationID(ctx, source.ID)
	require.NoError(t, err)
	return source, genID
}

func TestSourceHandler_ListAndGetByID(t *testing.T) {
	db := setupTestDB(t)
	cat := catalog.New(db)
	source, _ := seedSourceWithGeneration(t, db, cat)

	router := newTestRouter()
	api := humachi.New(router, huma.DefaultConfig("Test API", "1.0.0"))
	handlers.NewSourceHandler(cat).Register(api)

	req := httptest.NewRequest("GET", "/api/v1/sources", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var list handlers.ListSourcesOutput
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list.Body))
	assert.Len(t, list.Body.Records, 1)

	req = httptest.NewRequest("GET", "/api/v1/sources/"+source.ID.String(), nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSourceHandler_GetByIDMissingReturns404(t *testing.T) {
	db := setupTestDB(t)
	cat := catalog.New(db)

	router := newTestRouter()
	api := humachi.New(router, huma.DefaultConfig("Test API", "1.0.0"))
	handlers.NewSourceHandler(cat).Register(api)

	req := httptest.NewRequest("GET", "/api/v1/sources/"+models.NewHexID().String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGenerationHandler_LatestAndArtifacts(t *testing.T) {
	db := setupTestDB(t)
	cat := catalog.New(db)
	source, genID := seedSourceWithGeneration(t, db, cat)

	router := newTestRouter()
	api := humachi.New(router, huma.DefaultConfig("Test API", "1.0.0"))
	handlers.NewGenerationHandler(cat).Register(api)

	req := httptest.NewRequest("GET", "/api/v1/sources/"+source.ID.String()+"/generations/latest", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var latest handlers.GetLatestGenerationOutput
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&latest.Body))
	assert.Equal(t, genID, latest.Body.GenerationID)

	path := "/api/v1/sources/" + source.ID.String() + "/generations/" +
		strconv.FormatInt(genID, 10) + "/artifacts?offset=0&limit=10"
	req = httptest.NewRequest("GET", path, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var page handlers.ListGenerationArtifactsOutput
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&page.Body))
	assert.Len(t, page.Body.Records, 1)
	assert.Nil(t, page.Body.NextOffset)
}

func TestSearchHandler_TextRequiresSourceID(t *testing.T) {
	db := setupTestDB(t)
	cat := catalog.New(db)

	router := newTestRouter()
	api := humachi.New(router, huma.DefaultConfig("Test API", "1.0.0"))
	handlers.NewSearchHandler(cat).Register(api)

	req := httptest.NewRequest("POST", "/api/v1/search/text", strings.NewReader(`{"query":"hello"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeferredHandler_ListByStatus(t *testing.T) {
	db := setupTestDB(t)
	cat := catalog.New(db)
	source, genID := seedSourceWithGeneration(t, db, cat)

	artifacts, _, err := cat.NewArtifactsInGeneration(context.Background(), source.ID, genID, 0, 10)
	require.NoError(t, err)
	require.Len(t, artifacts, 1)

	rows := []models.DeferredDisaggregation{{
		SourceID: source.ID, GenerationID: genID, ArtifactID: artifacts[0].ID,
		ExtractorType: "html_document", Status: models.DeferredFailed, LastError: "boom",
	}}
	require.NoError(t, cat.UpsertBatch(context.Background(), rows))

	router := newTestRouter()
	api := humachi.New(router, huma.DefaultConfig("Test API", "1.0.0"))
	handlers.NewDeferredHandler(cat, nil).Register(api)

	req := httptest.NewRequest("GET", "/api/v1/deferred?status=FAILED", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var page handlers.ListDeferredOutput
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&page.Body))
	assert.Len(t, page.Body.Records, 1)

	req = httptest.NewRequest("POST", "/api/v1/deferred/"+strconv.FormatInt(rows[0].ID, 10)+"/requeue", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var requeued handlers.RequeueDeferredOutput
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&requeued.Body))
	assert.Equal(t, models.DeferredPending, requeued.Body.Status)
}
