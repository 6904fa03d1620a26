// Package services provides the centralized service registry for
// tutord.
//
// Build constructs every service from the loaded configuration in
// dependency order: session and completion first, then embeddings and
// the indexes, then the pipeline stages and the user-facing services
// on top. Use the accessor methods to retrieve individual services.
package services
