// Package memory provides layered conversation memory for a crew.
//
// Each agent keeps a short-term window of conversation turns and a working
// set of weighted entries (facts, task results, preferences). A crew-wide
// shared memory records delegations and results so agents can see each
// other's work. Entries above an importance threshold can be persisted
// through a pluggable Store.
package memory
