package httpapi_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jmylchreest/cif/internal/catalog"
	"github.com/jmylchreest/cif/internal/database/migrations"
	"github.com/jmylchreest/cif/internal/httpapi"
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

func TestNewServer_RoutesRespond(t *testing.T) {
	db := setupTestDB(t)
	cat := catalog.New(db)

	s := httpapi.NewServer(httpapi.DefaultServerConfig(), nil, "test")
	httpapi.RegisterHandlers(s, cat, nil)

	req := httptest.NewRequest("GET", "/api/v1/sources", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
