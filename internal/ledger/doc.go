// Package ledger persists the identifier remaps of successful merge runs in
// SQLite so merged image and annotation IDs can be traced back to the scene
// and local ID they came from.
package ledger
