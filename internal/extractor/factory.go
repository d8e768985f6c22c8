package extractor

import (
	"fmt"
	"sync"
)

// Factory builds Extractors by tagged variant name (extractor_type),
// grounded on the same registry-over-interface shape as
// internal/connector.Factory.
type Factory struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}

// NewFactory returns a Factory with the four built-in extractor variants
// registered.
func NewFactory() *Factory {
	f := &Factory{constructors: make(map[string]Constructor)}
	f.Register(HTMLDocumentType, NewHTMLDocumentExtractor)
	f.Register(HTMLLinkType, NewHTMLLinkExtractor)
	f.Register(HTMLTitleType, NewHTMLTitleExtractor)
	f.Register(CSVRowType, NewCSVRowExtractor)
	return f
}

// Register adds or replaces the constructor for extractorType.
func (f *Factory) Register(extractorType string, ctor Constructor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.constructors[extractorType] = ctor
}

// Build constructs the named Extractor from raw JSON configuration.
func (f *Factory) Build(extractorType string, config []byte) (Extractor, error) {
	f.mu.RLock()
	ctor, ok := f.constructors[extractorType]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no extractor registered for type: %s", extractorType)
	}
	return ctor(config)
}

// BuildAll constructs one Extractor per name in extractorTypes, in order,
// all sharing the same raw config.
func (f *Factory) BuildAll(extractorTypes []string, config []byte) ([]Extractor, error) {
	extractors := make([]Extractor, 0, len(extractorTypes))
	for _, t := range extractorTypes {
		e, err := f.Build(t, config)
		if err != nil {
			return nil, err
		}
		extractors = append(extractors, e)
	}
	return extractors, nil
}

// SupportedTypes returns every registered extractor type name.
func (f *Factory) SupportedTypes() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	types := make([]string, 0, len(f.constructors))
	for t := range f.constructors {
		types = append(types, t)
	}
	return types
}
