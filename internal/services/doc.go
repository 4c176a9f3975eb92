// Package services provides the service registry shared by the HTTP server
// and the CLI.
//
// Open builds every client from configuration (fetcher, embedding
// provider, vector store gateway, completion generator) and wires them
// into the ingestion and query pipelines. Transports depend on Registry
// only, so tests can hand in fakes through NewRegistry.
package services
