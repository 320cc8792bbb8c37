// Package agent provides the model backed collaborators of the orchestrator:
// a Planner that asks a routed model for the next JSON action and a Writer
// that synthesizes the final answer from the accumulated context.
//
// Both resolve the model id of every call through a model.Router and stream
// when the routed entry asks for it, forwarding chunks to an optional
// OnDelta callback.
package agent
