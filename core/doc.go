// Package core defines the crew communication protocol: message shapes,
// agent descriptors, routing rules and the scoring function the coordinator
// uses to pick a specialist for an incoming request.
//
// Everything here is a foundation type with no dependency on the higher level
// subsystems (queue, memory, review, engine). Messages are immutable once
// created; routing rules are derived data regenerated whenever the agent set
// changes and never include the coordinator, which is always the fallback
// rather than a routing target.
package core
