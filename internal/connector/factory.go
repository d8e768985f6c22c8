package connector

import (
	"fmt"
	"sync"

	"github.com/jmylchreest/cif/internal/models"
)

// Factory builds Connectors by tagged variant name, keeping the mapping
// between a Source's connector_type and its concrete implementation in
// one registry rather than a conditional chain.
type Factory struct {
	mu           sync.RWMutex
	constructors map[models.ConnectorType]Constructor
}

// NewFactory returns a Factory with the four built-in variants registered.
func NewFactory() *Factory {
	f := &Factory{
		constructors: make(map[models.ConnectorType]Constructor),
	}
	f.Register(models.ConnectorFilesystem, NewFilesystemConnector)
	f.Register(models.ConnectorBlobStore, NewBlobStoreConnector)
	f.Register(models.ConnectorBlobStoreDynamic, NewBlobStoreDynamicConnector)
	f.Register(models.ConnectorTabular, NewTabularConnector)
	return f
}

// Register adds or replaces the constructor for connectorType.
func (f *Factory) Register(connectorType models.ConnectorType, ctor Constructor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.constructors[connectorType] = ctor
}

// Build constructs a Connector for source, unmarshaling source's
// connector_config through the registered constructor.
func (f *Factory) Build(source *models.Source) (Connector, error) {
	if source == nil {
		return nil, fmt.Errorf("source is nil")
	}
	f.mu.RLock()
	ctor, ok := f.constructors[source.ConnectorType]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no connector registered for type: %s", source.ConnectorType)
	}
	return ctor(source.ConnectorConfig)
}

// SupportedTypes returns every registered connector type.
func (f *Factory) SupportedTypes() []models.ConnectorType {
	f.mu.RLock()
	defer f.mu.RUnlock()
	types := make([]models.ConnectorType, 0, len(f.constructors))
	for t := range f.constructors {
		types = append(types, t)
	}
	return types
}
