// Package orchestrator implements the crash-resumable agent loop.
//
// An Orchestrator drives one run per agent identity through a fixed state
// machine:
//
//	IDLE -> PLANNING -> TOOL_CALLING -> OBSERVING -> PLANNING ...
//	PLANNING -> TASK_READY -> TASK_RUNNING -> PLANNING ... -> WRITING -> DONE
//	any -> ERROR
//
// Every transition follows the same write-ahead protocol: the new state is
// applied, a STATE_CHANGE trace event is emitted and a full checkpoint is
// persisted before the next handler runs. A checkpoint is also written right
// after a tool returns, so a confirmed side effect is never lost.
//
// Resuming with an agent id whose checkpoint exists restores the complete
// run (tasks, cursor, contexts, in-flight action and observation, trace)
// and continues at the restored state. Historical trace events are replayed
// into memory only; listeners only see new events.
//
// The entry points never panic and never return errors to the caller of
// Run: failures are encoded in the returned text ("Error: ...") so that CLI
// and HTTP surfaces can display the outcome as is.
package orchestrator
