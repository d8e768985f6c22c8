package connector

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"net/http"
	"os"
	"path/filepath"

	"github.com/jmylchreest/cif/internal/models"
)

// FilesystemConfig is the connector_config shape for models.ConnectorFilesystem.
type FilesystemConfig struct {
	// Root is the directory ListArtifacts globs under.
	Root string `json:"root"`
	// Pattern is a filepath.Glob pattern relative to Root; defaults to "*"
	// (direct children only, non-recursive).
	Pattern string `json:"pattern"`
}

// FilesystemConnector reads artifacts from a local directory tree.
// version is the MD5 digest of file content; content_type is sniffed from
// the first 512 bytes (the most net/http.DetectContentType considers),
// keeping the sniff window small.
type FilesystemConnector struct {
	root    string
	pattern string
}

// NewFilesystemConnector builds a FilesystemConnector from raw JSON config.
func NewFilesystemConnector(config []byte) (Connector, error) {
	var cfg FilesystemConfig
	if len(config) > 0 {
		if err := json.Unmarshal(config, &cfg); err != nil {
			return nil, fmt.Errorf("parsing filesystem connector config: %w", err)
		}
	}
	if cfg.Root == "" {
		return nil, models.Validation("root", "is required")
	}
	if cfg.Pattern == "" {
		cfg.Pattern = "*"
	}
	return &FilesystemConnector{root: cfg.Root, pattern: cfg.Pattern}, nil
}

func (c *FilesystemConnector) resolve(externalID string) string {
	return filepath.Join(c.root, externalID)
}

// ListArtifacts globs c.pattern under c.root and yields one ArtifactRef
// per matched regular file, with external_id relative to root.
func (c *FilesystemConnector) ListArtifacts(ctx context.Context) iter.Seq2[ArtifactRef, error] {
	return func(yield func(ArtifactRef, error) bool) {
		matches, err := filepath.Glob(filepath.Join(c.root, c.pattern))
		if err != nil {
			yield(ArtifactRef{}, fmt.Errorf("globbing %s: %w", c.pattern, err))
			return
		}
		for _, path := range matches {
			if ctx.Err() != nil {
				yield(ArtifactRef{}, ctx.Err())
				return
			}
			info, err := os.Stat(path)
			if err != nil {
				if !yield(ArtifactRef{}, fmt.Errorf("stat %s: %w", path, err)) {
					return
				}
				continue
			}
			if info.IsDir() {
				continue
			}
			externalID, err := filepath.Rel(c.root, path)
			if err != nil {
				if !yield(ArtifactRef{}, fmt.Errorf("relativizing %s: %w", path, err)) {
					return
				}
				continue
			}
			fp, err := c.fingerprint(path, info.Size())
			if err != nil {
				if !yield(ArtifactRef{}, err) {
					return
				}
				continue
			}
			fp.ExternalID = externalID
			if !yield(ArtifactRef{ExternalID: externalID, Fingerprint: fp}, nil) {
				return
			}
		}
	}
}

func (c *FilesystemConnector) fingerprint(path string, size int64) (models.Fingerprint, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.Fingerprint{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	sniff := make([]byte, 512)
	n, err := f.Read(sniff)
	if err != nil && err != io.EOF {
		return models.Fingerprint{}, fmt.Errorf("sniffing %s: %w", path, err)
	}
	contentType := http.DetectContentType(sniff[:n])

	h := md5.New()
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return models.Fingerprint{}, fmt.Errorf("rewinding %s: %w", path, err)
	}
	if _, err := io.Copy(h, f); err != nil {
		return models.Fingerprint{}, fmt.Errorf("hashing %s: %w", path, err)
	}

	return models.Fingerprint{
		Version:     hex.EncodeToString(h.Sum(nil)),
		Size:        size,
		ContentType: contentType,
	}, nil
}

// GetArtifact opens a streaming read of one file. version is accepted for
// interface symmetry but not enforced: the filesystem has no generation
// history, so a caller pinning a stale version simply reads current
// content under its current fingerprint.
func (c *FilesystemConnector) GetArtifact(ctx context.Context, externalID string, version string) (io.ReadCloser, models.Fingerprint, error) {
	path := c.resolve(externalID)
	info, err := os.Stat(path)
	if err != nil {
		return nil, models.Fingerprint{}, fmt.Errorf("stat %s: %w", externalID, err)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, models.Fingerprint{}, fmt.Errorf("opening %s: %w", externalID, err)
	}
	fp, err := c.fingerprint(path, info.Size())
	if err != nil {
		f.Close()
		return nil, models.Fingerprint{}, err
	}
	fp.ExternalID = externalID
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, models.Fingerprint{}, fmt.Errorf("rewinding %s: %w", externalID, err)
	}
	return f, fp, nil
}

// GetArtifactChunk reads the inclusive byte range [start, end].
func (c *FilesystemConnector) GetArtifactChunk(ctx context.Context, externalID string, start, end int64, version string) ([]byte, error) {
	f, err := os.Open(c.resolve(externalID))
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", externalID, err)
	}
	defer f.Close()

	length := end - start + 1
	if length <= 0 {
		return nil, models.Validation("end", "must be >= start")
	}
	buf := make([]byte, length)
	n, err := f.ReadAt(buf, start)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("reading %s chunk [%d,%d]: %w", externalID, start, end, err)
	}
	return buf[:n], nil
}

// CalcLineChunks partitions the file into byte ranges of linesPerChunk
// lines each. The final chunk's end equals content_length - 1, matching
// every other chunk's inclusive upper bound.
func (c *FilesystemConnector) CalcLineChunks(ctx context.Context, externalID string, linesPerChunk int, version string) iter.Seq2[ByteRange, error] {
	return func(yield func(ByteRange, error) bool) {
		f, err := os.Open(c.resolve(externalID))
		if err != nil {
			yield(ByteRange{}, fmt.Errorf("opening %s: %w", externalID, err))
			return
		}
		defer f.Close()

		for r, rErr := range calcLineChunksFromReader(f, linesPerChunk) {
			if !yield(r, rErr) {
				return
			}
			if rErr != nil {
				return
			}
		}
	}
}

var _ Connector = (*FilesystemConnector)(nil)
