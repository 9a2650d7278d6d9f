// Package engine holds the status-effect runtime: the Status variant, the
// per-role StatusSet registry, the dispatch table that gives each status id
// its gameplay behavior, and the Ticker that ages everything on a fixed period.
//
// ARCHITECTURAL RULE: the engine talks to clients, the AI process, storage and
// combat only through the interfaces in collaborators.go.
package engine
