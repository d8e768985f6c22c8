package connector

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	_ "github.com/glebarez/go-sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTabularConnector(t *testing.T, query string, keyColumns []string) *TabularConnector {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`create table docs (id integer primary key, title text, body text)`)
	require.NoError(t, err)
	_, err = db.Exec(`insert into docs (id, title, body) values (1, 'first', 'hello'), (2, 'second', 'world')`)
	require.NoError(t, err)

	return &TabularConnector{db: db, query: query, keyColumns: keyColumns}
}

func TestTabularConnector_ListArtifacts(t *testing.T) {
	conn := newTestTabularConnector(t, "select id, title, body from docs order by id", []string{"id"})

	var refs []ArtifactRef
	for ref, err := range conn.ListArtifacts(context.Background()) {
		require.NoError(t, err)
		refs = append(refs, ref)
	}

	require.Len(t, refs, 2)
	assert.Equal(t, "1", refs[0].ExternalID)
	assert.Equal(t, "2", refs[1].ExternalID)
	assert.NotEmpty(t, refs[0].Fingerprint.Version)
	assert.NotEqual(t, refs[0].Fingerprint.Version, refs[1].Fingerprint.Version)
}

func TestTabularConnector_VersionChangesWithRowContent(t *testing.T) {
	cfg, err := json.Marshal(TabularConfig{})
	require.NoError(t, err)
	_, err = NewTabularConnector(cfg)
	assert.Error(t, err, "empty config must fail validation")

	conn := newTestTabularConnector(t, "select id, title, body from docs order by id", []string{"id"})
	var before string
	for ref, err := range conn.ListArtifacts(context.Background()) {
		require.NoError(t, err)
		if ref.ExternalID == "1" {
			before = ref.Fingerprint.Version
		}
	}

	db := conn.db
	_, err = db.Exec(`update docs set body = 'changed' where id = 1`)
	require.NoError(t, err)

	var after string
	for ref, err := range conn.ListArtifacts(context.Background()) {
		require.NoError(t, err)
		if ref.ExternalID == "1" {
			after = ref.Fingerprint.Version
		}
	}
	assert.NotEqual(t, before, after)
}

func TestTabularConnector_StreamingUnsupported(t *testing.T) {
	conn := newTestTabularConnector(t, "select id from docs", []string{"id"})

	_, _, err := conn.GetArtifact(context.Background(), "1", "")
	assert.Error(t, err)

	_, err = conn.GetArtifactChunk(context.Background(), "1", 0, 1, "")
	assert.Error(t, err)

	for _, err := range conn.CalcLineChunks(context.Background(), "1", 10, "") {
		assert.Error(t, err)
	}
}
