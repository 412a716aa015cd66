// Package models defines domain entities and persistence interfaces for the discpack resource pack builder.
//
// The package contains three categories of types:
//
// 1. The disc catalog: an immutable, ordered table of the 21 music disc records
//   - [Slot] : one named record with its canonical duration in seconds
//   - [Slots] : a copy of the catalog in reference order
//
// 2. Build inputs and outputs: lightweight structs passed through the build pipeline
//   - [Track] : a user-supplied audio asset with its measured duration
//   - [Assignment] : one track paired with one disc slot
//   - [Metadata] : pack name, description and version
//   - [Manifest] : the manifest.json document written into every pack
//
// 3. Persistent Entities: Database-backed models with full lifecycle management
//   - [PersistedBuild] : one recorded pack build with its disc records
//
// All persistent entities implement the Model interface providing ID generation, timestamps, and validation.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
