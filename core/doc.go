// Package core provides the foundational domain types and interfaces of the
// memora agent loop. It defines:
//
//   - Tasks (units of sub-work with status and local history)
//   - Actions (the closed set of planner decisions: UseTool, TaskList, Final)
//   - TraceEvents (immutable, timestamped orchestration records)
//   - Checkpoints (self-contained snapshots enabling crash recovery)
//   - The collaborator contracts the orchestrator is driven through
//     (Planner, Writer, ToolResolver/Capability, CheckpointStore)
//
// The package intentionally keeps implementation concerns (persistence,
// model transport, concrete tools) out of scope, exposing small interfaces
// so backends can be swapped without touching the state machine.
package core
