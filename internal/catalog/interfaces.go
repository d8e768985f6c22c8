// Package catalog is the typed data-access layer over the transactional
// database: it owns all DML and query construction for the seven
// persisted tables (source, stage, artifact, generation, fragment,
// fragment_key, deferred_disaggregation) and the Stage-to-Generation
// promotion state machine.
package catalog

import (
	"context"

	"github.com/jmylchreest/cif/internal/models"
)

// SourceRepository is the data-access contract for the source table.
type SourceRepository interface {
	CreateSource(ctx context.Context, source *models.Source) error
	GetSource(ctx context.Context, id models.HexID) (*models.Source, error)
	ListSources(ctx context.Context) ([]*models.Source, error)
	UpdateSource(ctx context.Context, source *models.Source) error
}

// StageRepository is the data-access contract for the stage table, the
// transient per-intake-cycle buffer promotion reads from.
type StageRepository interface {
	// StageBatch inserts one buffered batch of staged rows.
	StageBatch(ctx context.Context, rows []models.StageRow) error
	// BatchIDs returns the distinct batch_id values staged under stageID,
	// in ascending insertion order.
	BatchIDs(ctx context.Context, stageID string) ([]string, error)
	// BatchRows returns the staged rows for one (stageID, batchID) pair.
	BatchRows(ctx context.Context, stageID, batchID string) ([]models.StageRow, error)
	// SetArtifactID rewrites the provisional artifact_id of one staged
	// row, keyed by its StageRow.ID. Called only during promotion pass 1.
	SetArtifactID(ctx context.Context, rowID int64, artifactID models.HexID) error
}

// ArtifactRepository is the data-access contract for the artifact table.
type ArtifactRepository interface {
	// FindExisting looks up, for each (external_id, version) pair under
	// sourceID, the artifact_id of an existing matching artifact. Pairs
	// with no match are simply absent from the returned map.
	FindExisting(ctx context.Context, sourceID models.HexID, identities []ArtifactIdentity) (map[ArtifactIdentity]models.HexID, error)
	// CreateArtifacts inserts new artifact rows, ignoring rows whose ID
	// already exists (duplicates are expected and silently skipped, per
	// promotion pass 2).
	CreateArtifacts(ctx context.Context, artifacts []models.Artifact, batchSize int) error
	GetArtifactByID(ctx context.Context, id models.HexID) (*models.Artifact, error)
}

// ArtifactIdentity is the (external_id, version) half of an artifact's
// identity tuple; source_id is supplied alongside it wherever this type
// is used rather than embedded, since every lookup is already scoped to
// one source.
type ArtifactIdentity struct {
	ExternalID string
	Version    string
}

// GenerationRepository is the data-access contract for the generation
// table.
type GenerationRepository interface {
	CreateGenerations(ctx context.Context, generations []models.Generation, batchSize int) error
	// LatestGenerationID returns the highest generation_id recorded for
	// sourceID, or zero if the source has no generations yet.
	LatestGenerationID(ctx context.Context, sourceID models.HexID) (int64, error)
	// ArtifactIDsInGeneration returns every artifact_id belonging to one
	// generation.
	ArtifactIDsInGeneration(ctx context.Context, sourceID models.HexID, generationID int64) ([]models.HexID, error)
	// NewArtifactsInGeneration returns the artifacts newly created in
	// generationID: those whose artifact.created_at equals the
	// generation's created_at, paginated by offset/limit.
	NewArtifactsInGeneration(ctx context.Context, sourceID models.HexID, generationID int64, offset, limit int) ([]models.Artifact, int64, error)
}

// FragmentRepository is the data-access contract for the fragment table.
type FragmentRepository interface {
	CreateFragments(ctx context.Context, fragments []models.Fragment, batchSize int) error
	GetFragmentByID(ctx context.Context, id models.HexID) (*models.Fragment, error)
	// ExistsForArtifact reports whether at least one fragment row exists
	// for (artifactID, fragmentID); fragmentID is optional (zero value
	// matches any fragment for the artifact).
	ExistsForArtifact(ctx context.Context, artifactID, fragmentID models.HexID) (bool, error)
}

// FragmentKeyRepository is the data-access contract for the fragment_key
// table.
type FragmentKeyRepository interface {
	CreateFragmentKeys(ctx context.Context, keys []models.FragmentKey, batchSize int) error
}

// DeferredRepository is the data-access contract for the
// deferred_disaggregation table.
type DeferredRepository interface {
	// UpsertBatch inserts or updates rows keyed by the composite upsert
	// key (source_id, generation_id, artifact_id, extractor_type,
	// fragment_id, byte_range_start, byte_range_end).
	UpsertBatch(ctx context.Context, rows []models.DeferredDisaggregation) error
	GetDeferredByID(ctx context.Context, id int64) (*models.DeferredDisaggregation, error)
	MarkDone(ctx context.Context, id int64, deliveryAttempt int) error
	MarkFailed(ctx context.Context, id int64, deliveryAttempt int, lastError string) error
	// ListByStatus supports the deferred-disaggregation admin listing
	// endpoint: paginated rows filtered to one status.
	ListByStatus(ctx context.Context, status models.DeferredStatus, offset, limit int) ([]models.DeferredDisaggregation, int64, error)
	// Requeue resets a row back to PENDING, for the admin requeue
	// endpoint to republish after fixing whatever caused it to fail.
	Requeue(ctx context.Context, id int64) (*models.DeferredDisaggregation, error)
}

// PromotionCounts reports, per pass, how many rows the promotion
// transaction touched.
type PromotionCounts struct {
	Reconciled int64 // pass 1: staged rows whose artifact_id was rewritten
	Created    int64 // pass 2: new artifact rows inserted
	Generated  int64 // pass 3: new generation rows inserted
}

// DiffStatus classifies one external_id's membership change between two
// generations.
type DiffStatus string

const (
	DiffInserted DiffStatus = "INSERTED"
	DiffDeleted  DiffStatus = "DELETED"
	DiffUpdated  DiffStatus = "UPDATED"
	DiffNone     DiffStatus = "NONE"
)

// DiffEntry is one external_id's classification in a Diff result.
type DiffEntry struct {
	ExternalID string
	Status     DiffStatus
	// ArtifactID is the artifact_id on the B (later) side, or the A side
	// if absent from B (i.e. for DELETED entries).
	ArtifactID models.HexID
}

// SearchMode selects which of the four fragment-search predicate
// builders applies.
type SearchMode string

const (
	SearchText  SearchMode = "text"
	SearchNgram SearchMode = "ngram"
	SearchJSON  SearchMode = "json_path"
	SearchKeyed SearchMode = "keyed"
)

// KeySearchTerm is one named key and the set of values that satisfy it
// for SearchKeyed, mirroring the original engine's KeySearchTerm
// (key, values) shape rather than treating a bare value list as if it
// were a list of key names.
type KeySearchTerm struct {
	Key    string
	Values []string
}

// SearchParams is the explicit parameter struct for fragment search,
// replacing the keyword-spread configuration the design notes call out:
// one struct per call instead of an open-ended set of named arguments.
type SearchParams struct {
	Mode SearchMode

	SourceID models.HexID
	// GenerationID defaults to the source's latest generation when zero.
	GenerationID int64
	// ExternalID narrows the search to one artifact's external_id; empty
	// means unrestricted.
	ExternalID string
	// AggregationLevel narrows by fragment type; empty means unrestricted.
	AggregationLevel models.FragmentType

	// Query is the text/n-gram search string (SearchText/SearchNgram).
	Query string
	// JSONPath and JSONValues are used for SearchJSON: fragments whose
	// json_content at JSONPath equals one of JSONValues.
	JSONPath   string
	JSONValues []string
	// Keys is used for SearchKeyed: fragments carrying, for every term in
	// Keys, a FragmentKey whose Key matches the term's name and whose
	// Value is one of the term's Values (AND semantics across terms,
	// enforced via a HAVING count-distinct-key-name check).
	Keys []KeySearchTerm

	Offset int
	Limit  int
}

// SearchResult is one page of fragment-search results.
type SearchResult struct {
	Records    []models.Fragment
	NextOffset *int
}

// Catalog is the full data-access + state-machine contract consumed by
// Intake, Disaggregation, and Worker.
type Catalog interface {
	SourceRepository
	StageRepository
	ArtifactRepository
	GenerationRepository
	FragmentRepository
	FragmentKeyRepository
	DeferredRepository

	// ChangeCounts reports the inserted/updated and deleted counts of
	// every batch staged under stageID, relative to sourceID's current
	// latest generation.
	ChangeCounts(ctx context.Context, sourceID models.HexID, stageID string) (insertedOrUpdated, deleted int64, err error)

	// Promote runs the three-pass promotion transaction for one staged
	// batch.
	Promote(ctx context.Context, sourceID models.HexID, stageID, batchID string, createdOn models.Time) (PromotionCounts, error)

	// Diff classifies every external_id present in generation A or B (or
	// both) of sourceID.
	Diff(ctx context.Context, sourceID models.HexID, genA, genB int64) ([]DiffEntry, error)

	// Search executes one of the four fragment-search modes.
	Search(ctx context.Context, params SearchParams) (SearchResult, error)
}
