package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/qdrant/go-client/qdrant"

	"github.com/randalmurphal/convopipe/pkg/convopipe"
)

// payloadTextKey is the Qdrant payload field holding the chunk text.
const payloadTextKey = "text"

// QdrantConfig holds connection settings for a Qdrant server.
type QdrantConfig struct {
	URL        string // e.g. "https://xyz.cloud.qdrant.io:6333" or "http://localhost:6333"
	APIKey     string
	Collection string
}

// QdrantSearcher implements convopipe.Searcher over a Qdrant collection.
// Queries are embedded first, then matched against the collection's
// dense vectors.
type QdrantSearcher struct {
	client     *qdrant.Client
	collection string
	embedder   Embedder
	logger     *slog.Logger
}

// Compile-time interface check.
var _ convopipe.Searcher = (*QdrantSearcher)(nil)

// parseQdrantURL extracts host, port, and TLS flag from a Qdrant URL.
// Accepts forms like "https://host:6333", "http://host:6333", or "host:6334".
func parseQdrantURL(rawURL string) (host string, port int, useTLS bool, err error) {
	u, parseErr := url.Parse(rawURL)
	if parseErr != nil || u.Host == "" {
		return "", 0, false, fmt.Errorf("retrieval: invalid qdrant URL: %q", rawURL)
	}

	useTLS = u.Scheme == "https"
	host = u.Hostname()

	if portStr := u.Port(); portStr != "" {
		p, err := strconv.Atoi(portStr)
		if err != nil {
			return "", 0, false, fmt.Errorf("retrieval: invalid port in qdrant URL: %q", portStr)
		}
		// If the user specified the REST port (6333), use the gRPC port (6334).
		if p == 6333 {
			port = 6334
		} else {
			port = p
		}
	} else {
		port = 6334
	}

	return host, port, useTLS, nil
}

// NewQdrantSearcher connects to Qdrant over gRPC.
// A nil logger defaults to slog.Default().
func NewQdrantSearcher(cfg QdrantConfig, embedder Embedder, logger *slog.Logger) (*QdrantSearcher, error) {
	if embedder == nil {
		return nil, fmt.Errorf("retrieval: embedder cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	host, port, useTLS, err := parseQdrantURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("retrieval: connect to qdrant at %s:%d: %w", host, port, err)
	}

	return &QdrantSearcher{
		client:     client,
		collection: cfg.Collection,
		embedder:   embedder,
		logger:     logger,
	}, nil
}

// Query implements convopipe.Searcher.
func (q *QdrantSearcher) Query(ctx context.Context, text string, k int) ([]convopipe.Document, error) {
	if k <= 0 {
		return nil, nil
	}

	vec, err := q.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("retrieval: embed query: %w", err)
	}

	limit := uint64(k)
	scored, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQueryDense(vec),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("retrieval: qdrant query: %w", err)
	}

	docs := make([]convopipe.Document, 0, len(scored))
	for _, sp := range scored {
		id := sp.Id.GetUuid()
		if id == "" {
			id = strconv.FormatUint(sp.Id.GetNum(), 10)
		}

		text := ""
		if payload := sp.GetPayload(); payload != nil {
			if v, ok := payload[payloadTextKey]; ok {
				text = v.GetStringValue()
			}
		}
		if text == "" {
			q.logger.Warn("qdrant: point has no text payload, skipping", "id", id)
			continue
		}

		docs = append(docs, convopipe.Document{
			ID:    id,
			Text:  text,
			Score: float64(sp.Score),
		})
	}

	return docs, nil
}

// Close releases the gRPC connection.
func (q *QdrantSearcher) Close() error {
	return q.client.Close()
}
