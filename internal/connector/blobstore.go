package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"path"
	"strconv"

	"cloud.google.com/go/storage"
	"github.com/jmylchreest/cif/internal/models"
	"google.golang.org/api/iterator"
)

// BlobStoreConfig is the connector_config shape for models.ConnectorBlobStore.
type BlobStoreConfig struct {
	Bucket string `json:"bucket"`
	// Prefix scopes listing to objects under this key prefix.
	Prefix string `json:"prefix"`
	// Glob is an optional path.Match-style pattern applied client-side to
	// object names after the prefix listing, since GCS has no native glob.
	Glob string `json:"glob"`
}

// BlobStoreConnector reads artifacts from a Google Cloud Storage bucket.
// version is the object's generation number; content_type is the stored
// object metadata, both already authoritative so no local sniffing is
// needed the way the filesystem variant requires.
type BlobStoreConnector struct {
	client *storage.Client
	bucket string
	prefix string
	glob   string
}

// NewBlobStoreConnector builds a BlobStoreConnector from raw JSON config.
func NewBlobStoreConnector(config []byte) (Connector, error) {
	var cfg BlobStoreConfig
	if len(config) > 0 {
		if err := json.Unmarshal(config, &cfg); err != nil {
			return nil, fmt.Errorf("parsing blob store connector config: %w", err)
		}
	}
	if cfg.Bucket == "" {
		return nil, models.Validation("bucket", "is required")
	}
	client, err := storage.NewClient(context.Background())
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}
	return &BlobStoreConnector{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		glob:   cfg.Glob,
	}, nil
}

func (c *BlobStoreConnector) objectHandle(externalID string) *storage.ObjectHandle {
	return c.client.Bucket(c.bucket).Object(externalID)
}

func fingerprintFromAttrs(attrs *storage.ObjectAttrs) models.Fingerprint {
	return models.Fingerprint{
		ExternalID:  attrs.Name,
		Version:     strconv.FormatInt(attrs.Generation, 10),
		Size:        attrs.Size,
		ContentType: attrs.ContentType,
	}
}

// ListArtifacts lists every object under c.prefix, filtering client-side by
// c.glob when set (GCS's own listing API has no pattern matching).
func (c *BlobStoreConnector) ListArtifacts(ctx context.Context) iter.Seq2[ArtifactRef, error] {
	return func(yield func(ArtifactRef, error) bool) {
		it := c.client.Bucket(c.bucket).Objects(ctx, &storage.Query{Prefix: c.prefix})
		for {
			attrs, err := it.Next()
			if err == iterator.Done {
				return
			}
			if err != nil {
				yield(ArtifactRef{}, fmt.Errorf("listing bucket %s: %w", c.bucket, err))
				return
			}
			if c.glob != "" {
				matched, err := path.Match(c.glob, attrs.Name)
				if err != nil {
					yield(ArtifactRef{}, fmt.Errorf("matching glob %s: %w", c.glob, err))
					return
				}
				if !matched {
					continue
				}
			}
			if !yield(ArtifactRef{ExternalID: attrs.Name, Fingerprint: fingerprintFromAttrs(attrs)}, nil) {
				return
			}
		}
	}
}

// GetArtifact opens a streaming read of one object, optionally pinned to a
// specific generation when version is set.
func (c *BlobStoreConnector) GetArtifact(ctx context.Context, externalID string, version string) (io.ReadCloser, models.Fingerprint, error) {
	obj := c.objectHandle(externalID)
	if version != "" {
		generation, err := strconv.ParseInt(version, 10, 64)
		if err != nil {
			return nil, models.Fingerprint{}, models.Validation("version", "must be a valid object generation")
		}
		obj = obj.Generation(generation)
	}
	attrs, err := obj.Attrs(ctx)
	if err != nil {
		return nil, models.Fingerprint{}, fmt.Errorf("getting attrs for %s: %w", externalID, err)
	}
	reader, err := obj.NewReader(ctx)
	if err != nil {
		return nil, models.Fingerprint{}, fmt.Errorf("opening reader for %s: %w", externalID, err)
	}
	return reader, fingerprintFromAttrs(attrs), nil
}

// GetArtifactChunk reads the inclusive byte range [start, end] via a
// ranged read, GCS's native equivalent of an HTTP Range request.
func (c *BlobStoreConnector) GetArtifactChunk(ctx context.Context, externalID string, start, end int64, version string) ([]byte, error) {
	length := end - start + 1
	if length <= 0 {
		return nil, models.Validation("end", "must be >= start")
	}
	obj := c.objectHandle(externalID)
	if version != "" {
		generation, err := strconv.ParseInt(version, 10, 64)
		if err != nil {
			return nil, models.Validation("version", "must be a valid object generation")
		}
		obj = obj.Generation(generation)
	}
	reader, err := obj.NewRangeReader(ctx, start, length)
	if err != nil {
		return nil, fmt.Errorf("opening range reader for %s: %w", externalID, err)
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

// CalcLineChunks downloads the object once to partition it on line
// boundaries; GCS has no server-side line-counting primitive.
func (c *BlobStoreConnector) CalcLineChunks(ctx context.Context, externalID string, linesPerChunk int, version string) iter.Seq2[ByteRange, error] {
	return func(yield func(ByteRange, error) bool) {
		reader, _, err := c.GetArtifact(ctx, externalID, version)
		if err != nil {
			yield(ByteRange{}, err)
			return
		}
		defer reader.Close()

		for r, rErr := range calcLineChunksFromReader(reader, linesPerChunk) {
			if !yield(r, rErr) {
				return
			}
			if rErr != nil {
				return
			}
		}
	}
}

var _ Connector = (*BlobStoreConnector)(nil)
