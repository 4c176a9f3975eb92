// Package vectorstore stores repository file embeddings partitioned by
// namespace ("owner/repo/branch").
//
// Gateway is the entry point used by the ingestion and query pipelines. It
// batches upserts, sorts namespace listings, checks existence before
// deletes and records metrics. The storage itself is a Backend:
//
//   - QdrantStore: one Qdrant collection, namespace held in a keyword-indexed
//     payload field (default)
//   - ChromemStore: embedded chromem-go, one collection per namespace
//   - PGVectorStore: PostgreSQL with the pgvector extension
//
// NewBackend selects one from configuration.
package vectorstore
