// Package services implements the core business logic: corpus
// ingestion and snapshot publication, query routing, tiered
// retrieval, prompt construction and answer orchestration.
package services
