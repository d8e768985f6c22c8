// Package factory reifies a models.Source into the wired collaborators
// (Connector, Extractors, KeyRules) that internal/disaggregation and
// internal/worker need, grounded on
// internal/pipeline/core/factory.go's Dependencies/Factory.Create shape:
// one struct of shared singletons (here, the connector/extractor
// registries plus the Catalog and Publisher) plus a per-target Create
// call that resolves the target's own configuration against them.
package factory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jmylchreest/cif/internal/catalog"
	"github.com/jmylchreest/cif/internal/connector"
	"github.com/jmylchreest/cif/internal/disaggregation"
	"github.com/jmylchreest/cif/internal/extractor"
	"github.com/jmylchreest/cif/internal/intake"
	"github.com/jmylchreest/cif/internal/models"
	"github.com/jmylchreest/cif/internal/queue"
)

// Dependencies bundles the process-wide singletons every Source's
// disaggregation.Dependencies is built from.
type Dependencies struct {
	Catalog   catalog.Catalog
	Publisher queue.Publisher
	Logger    *slog.Logger

	ChunkLines int
	Workers    int
}

// Factory builds per-Source collaborators from the shared singletons in
// Dependencies plus each Source's own stored configuration.
type Factory struct {
	deps    Dependencies
	connFac *connector.Factory
	extFac  *extractor.Factory
}

// New returns a Factory backed by the default connector and extractor
// registries.
func New(deps Dependencies) *Factory {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Factory{
		deps:    deps,
		connFac: connector.NewFactory(),
		extFac:  extractor.NewFactory(),
	}
}

// BuildConnector constructs source's configured Connector.
func (f *Factory) BuildConnector(source *models.Source) (connector.Connector, error) {
	return f.connFac.Build(source)
}

// BuildExtractor constructs a single named Extractor, used by
// internal/worker to resolve the one extractor_type a deferred message
// names without needing a full Source in hand.
func (f *Factory) BuildExtractor(extractorType string) (extractor.Extractor, error) {
	return f.extFac.Build(extractorType, nil)
}

// BuildExtractors constructs one Extractor per source.ExtractorTypes
// entry, in order. Extractor configuration is not currently stored
// per-source-per-type; every extractor is built with an empty config,
// which every built-in variant accepts (HTMLDocumentExtractor simply
// falls back to its default stop-word list).
func (f *Factory) BuildExtractors(source *models.Source) ([]extractor.Extractor, error) {
	return f.extFac.BuildAll(source.ExtractorTypes, nil)
}

// BuildKeyRules parses source.KeyRules (a JSON object mapping
// extractor_type to extractor.KeyRuleSpec) into a ready-to-run
// map[string]extractor.KeyRule.
func (f *Factory) BuildKeyRules(source *models.Source) (map[string]extractor.KeyRule, error) {
	if len(source.KeyRules) == 0 {
		return nil, nil
	}
	var specs map[string]extractor.KeyRuleSpec
	if err := json.Unmarshal(source.KeyRules, &specs); err != nil {
		return nil, fmt.Errorf("parsing key rules for source %s: %w", source.ID, err)
	}
	rules := make(map[string]extractor.KeyRule, len(specs))
	for extractorType, spec := range specs {
		rule, err := extractor.BuildKeyRule(spec)
		if err != nil {
			return nil, fmt.Errorf("building key rule for %s: %w", extractorType, err)
		}
		rules[extractorType] = rule
	}
	return rules, nil
}

// BuildDisaggregationDeps wires one Source's Connector, Extractors, and
// KeyRules together with the Factory's shared Catalog/Publisher into a
// ready-to-run disaggregation.Dependencies.
func (f *Factory) BuildDisaggregationDeps(source *models.Source) (disaggregation.Dependencies, error) {
	conn, err := f.BuildConnector(source)
	if err != nil {
		return disaggregation.Dependencies{}, fmt.Errorf("building connector for source %s: %w", source.ID, err)
	}
	extractors, err := f.BuildExtractors(source)
	if err != nil {
		return disaggregation.Dependencies{}, fmt.Errorf("building extractors for source %s: %w", source.ID, err)
	}
	keyRules, err := f.BuildKeyRules(source)
	if err != nil {
		return disaggregation.Dependencies{}, err
	}
	return disaggregation.Dependencies{
		Catalog:    f.deps.Catalog,
		Connector:  conn,
		Extractors: extractors,
		KeyRules:   keyRules,
		Publisher:  f.deps.Publisher,
		ChunkLines: f.deps.ChunkLines,
		Workers:    f.deps.Workers,
	}, nil
}

// RunIngestionCycle runs the one Intake+Disaggregate cycle a scheduled or
// on-demand ingestion trigger executes for one Source: stage and promote
// every currently-listed artifact, then dispatch disaggregation over the
// resulting generation's new artifacts (a no-op disaggregation.Summary if
// nothing was promoted). This is the composition root `cmd/cif ingestion`
// and internal/scheduler's cron callback both call, grounded on
// internal/pipeline/core/factory.go's Factory.Create assembling one
// runnable unit from the shared Dependencies.
func (f *Factory) RunIngestionCycle(ctx context.Context, source *models.Source, opts intake.Options) (disaggregation.Summary, error) {
	conn, err := f.BuildConnector(source)
	if err != nil {
		return disaggregation.Summary{}, fmt.Errorf("building connector for source %s: %w", source.ID, err)
	}

	generation, outcome, err := intake.Intake(ctx, f.deps.Catalog, conn, source, opts)
	if err != nil {
		return disaggregation.Summary{}, fmt.Errorf("intake for source %s: %w", source.ID, err)
	}
	if outcome != intake.Promoted {
		return disaggregation.Summary{}, nil
	}

	deps, err := f.BuildDisaggregationDeps(source)
	if err != nil {
		return disaggregation.Summary{}, err
	}
	summary, err := disaggregation.Disaggregate(ctx, deps, source, generation.GenerationID)
	if err != nil {
		return summary, fmt.Errorf("disaggregating source %s generation %d: %w", source.ID, generation.GenerationID, err)
	}
	return summary, nil
}
