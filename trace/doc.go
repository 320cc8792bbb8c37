// Package trace records the ordered stream of orchestration events of one
// run and fans them out to listeners.
//
// A Collector owns the in-memory event list that is persisted inside every
// checkpoint. Listeners receive each newly emitted event synchronously; a
// panicking listener is recovered and logged so it can never affect the run.
// Events restored from a checkpoint are loaded with Restore and are not
// replayed to listeners.
//
// Built-in listeners:
//
//   - ConsoleListener prints "[T=<ms>ms] TYPE: summary" lines, coloured when
//     the output is a terminal
//   - JSONLListener appends one JSON document per event to a writer or file
//   - LogListener forwards events to a logging.Logger at debug level
package trace
