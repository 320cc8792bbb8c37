// Package model defines the provider agnostic abstraction memora uses to talk
// to language models, plus helpers shared by every provider.
//
// Core goals:
//   - Unify streaming and non-streaming generation behind a single interface
//   - Keep request/response shapes minimal and transport independent
//   - Resolve models by id through an explicit Router instead of a global
//   - Facilitate lightweight mocking for tests (MockModel)
//
// Providers (model/openai, model/anthropic) implement Model so higher layers
// (agent.Planner, agent.Writer) remain decoupled from vendor SDKs.
package model
