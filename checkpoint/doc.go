// Package checkpoint provides core.CheckpointStore implementations.
//
// FileStore keeps one JSON document per agent identity under a directory
// (".memora/checkpoints" by default), written atomically through a temp file
// and rename. It also implements core.RunLocker with an exclusive flock on
// "<agent>.lock" so that two processes cannot drive the same agent at once.
//
// InMemoryStore is a volatile store for tests and embedded use. The sqlite
// subpackage offers a database backed store.
package checkpoint
