// Package testutil contains builders and test doubles used across tests to
// reduce boilerplate when constructing checkpoints, trace events, planners,
// writers and tools. They are not intended for production usage.
package testutil
