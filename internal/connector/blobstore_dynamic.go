package connector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"cloud.google.com/go/storage"
	"github.com/jmylchreest/cif/internal/models"
	"google.golang.org/api/iterator"
)

// errNoPrefixesFound is returned when no top-level prefix under
// BlobStoreDynamicConfig.PrefixGlob matches anything in the bucket.
var errNoPrefixesFound = errors.New("no prefixes found")

// BlobStoreDynamicConfig is the connector_config shape for
// models.ConnectorBlobStoreDynamic.
type BlobStoreDynamicConfig struct {
	Bucket string `json:"bucket"`
	// PrefixGlob selects which top-level prefixes are candidates; the
	// lexicographically greatest match is used (e.g. "foo_" selects
	// "foo_20250619/" over "foo_20250101/").
	PrefixGlob string `json:"prefix_glob"`
}

// BlobStoreDynamicConnector wraps a BlobStoreConnector whose prefix is
// resolved at construction time by listing top-level delimited prefixes
// and picking the lexicographically greatest match — selecting the most
// recent dated drop without the caller needing to know its exact name.
type BlobStoreDynamicConnector struct {
	*BlobStoreConnector
	resolvedPrefix string
}

// NewBlobStoreDynamicConnector builds a BlobStoreDynamicConnector from raw
// JSON config, resolving the live prefix immediately.
func NewBlobStoreDynamicConnector(config []byte) (Connector, error) {
	var cfg BlobStoreDynamicConfig
	if len(config) > 0 {
		if err := json.Unmarshal(config, &cfg); err != nil {
			return nil, fmt.Errorf("parsing dynamic blob store connector config: %w", err)
		}
	}
	if cfg.Bucket == "" {
		return nil, models.Validation("bucket", "is required")
	}

	client, err := storage.NewClient(context.Background())
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}

	prefix, err := resolveLatestPrefix(context.Background(), client, cfg.Bucket, cfg.PrefixGlob)
	if err != nil {
		return nil, err
	}

	return &BlobStoreDynamicConnector{
		BlobStoreConnector: &BlobStoreConnector{
			client: client,
			bucket: cfg.Bucket,
			prefix: prefix,
		},
		resolvedPrefix: prefix,
	}, nil
}

// resolveLatestPrefix lists delimited top-level prefixes matching
// prefixGlob and returns the lexicographically greatest one.
func resolveLatestPrefix(ctx context.Context, client *storage.Client, bucket, prefixGlob string) (string, error) {
	it := client.Bucket(bucket).Objects(ctx, &storage.Query{
		Prefix:    prefixGlob,
		Delimiter: "/",
	})

	var prefixes []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return "", fmt.Errorf("listing prefixes in %s: %w", bucket, err)
		}
		if attrs.Prefix != "" {
			prefixes = append(prefixes, attrs.Prefix)
		}
	}
	if len(prefixes) == 0 {
		return "", errNoPrefixesFound
	}
	sort.Strings(prefixes)
	return prefixes[len(prefixes)-1], nil
}

// ResolvedPrefix returns the prefix chosen at construction time.
func (c *BlobStoreDynamicConnector) ResolvedPrefix() string {
	return c.resolvedPrefix
}

var _ Connector = (*BlobStoreDynamicConnector)(nil)
