// Package embeddings turns text and repository files into vectors.
//
// Two providers are supported: OpenAI (the default, 1536-dimension ada-002
// vectors) and a self-hosted Text Embeddings Inference server. NewProvider
// selects one from configuration. FileEmbedder sits on top of a provider
// and applies the ingestion rules: extension allow-list, character cap,
// whitespace trim and dimension check.
package embeddings
