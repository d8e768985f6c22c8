package connector

import (
	"encoding/json"
	"testing"

	"github.com/jmylchreest/cif/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactory_NewFactory(t *testing.T) {
	f := NewFactory()
	types := f.SupportedTypes()
	assert.Len(t, types, 4, "all four built-in connector variants must be registered")
}

func TestFactory_Build_Filesystem(t *testing.T) {
	f := NewFactory()
	cfg, err := json.Marshal(FilesystemConfig{Root: t.TempDir()})
	require.NoError(t, err)

	source := &models.Source{
		ConnectorType:   models.ConnectorFilesystem,
		ConnectorConfig: cfg,
	}
	conn, err := f.Build(source)
	require.NoError(t, err)
	_, ok := conn.(*FilesystemConnector)
	assert.True(t, ok)
}

func TestFactory_Build_UnknownType(t *testing.T) {
	f := NewFactory()
	source := &models.Source{ConnectorType: "unknown"}
	_, err := f.Build(source)
	assert.Error(t, err)
}

func TestFactory_Build_NilSource(t *testing.T) {
	f := NewFactory()
	_, err := f.Build(nil)
	assert.Error(t, err)
}

func TestFactory_Register_Override(t *testing.T) {
	f := NewFactory()
	called := false
	f.Register(models.ConnectorFilesystem, func(config []byte) (Connector, error) {
		called = true
		return nil, nil
	})
	_, err := f.Build(&models.Source{ConnectorType: models.ConnectorFilesystem})
	require.NoError(t, err)
	assert.True(t, called, "Register must override the default constructor")
}
