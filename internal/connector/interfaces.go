// Package connector implements the four Connector variants that read
// artifacts from a configured origin: filesystem, GCS blob store, a
// dynamic-prefix blob store, and a tabular SQL source.
package connector

import (
	"context"
	"io"
	"iter"

	"github.com/jmylchreest/cif/internal/models"
)

// ArtifactRef is one entry yielded by ListArtifacts: an external_id paired
// with the Fingerprint a fresh read of that artifact would currently
// report, used by intake to stage rows without reading full content.
type ArtifactRef struct {
	ExternalID  string
	Fingerprint models.Fingerprint
}

// ByteRange is an inclusive-inclusive [Start, End] byte span, as produced
// by CalcLineChunks and consumed by GetArtifactChunk.
type ByteRange struct {
	Start int64
	End   int64
}

// Connector reads artifacts from one configured origin. All four
// operations are deterministic for a pinned version: calling GetArtifact
// twice with the same (externalID, version) must return identical bytes.
type Connector interface {
	// ListArtifacts lazily enumerates every artifact currently visible at
	// the origin. The sequence is finite and safe to consume once.
	ListArtifacts(ctx context.Context) iter.Seq2[ArtifactRef, error]

	// GetArtifact opens a streaming read of one artifact. An empty version
	// means "whatever is current"; callers that pinned a version from
	// ListArtifacts should pass it back to get a consistent read.
	GetArtifact(ctx context.Context, externalID string, version string) (io.ReadCloser, models.Fingerprint, error)

	// GetArtifactChunk reads one inclusive byte range [start, end] without
	// materializing the whole artifact.
	GetArtifactChunk(ctx context.Context, externalID string, start, end int64, version string) ([]byte, error)

	// CalcLineChunks partitions an artifact into byte ranges of
	// linesPerChunk lines each, covering the entire content; the last
	// chunk may be shorter.
	CalcLineChunks(ctx context.Context, externalID string, linesPerChunk int, version string) iter.Seq2[ByteRange, error]
}

// Constructor builds a Connector from a Source's raw connector_config.
type Constructor func(config []byte) (Connector, error)
