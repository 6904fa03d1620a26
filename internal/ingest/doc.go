// Package ingest turns a directory of raw study material into ordered,
// summarized document chunks.
//
// Files are loaded by extension (.txt, .md, .csv, .html), split into
// token-sized chunks, and each chunk receives an LLM-generated summary.
// A fingerprint cache keyed by content hash lets unchanged files be
// served from the persisted chunk store without issuing a single model
// call. An optional fsnotify watcher re-ingests when sources change.
package ingest
