// Package model defines the provider‑agnostic abstractions and concrete
// helpers for interacting with the language models that back each speaker.
//
// Core goals:
//   - Hide vendor request shapes behind a single Generate call
//   - Keep request/response shapes minimal and transport independent
//   - Run every provider call off the caller's goroutine so the caller can
//     stop waiting on cancellation
//   - Facilitate lightweight mocking for tests (MockModel)
//
// Providers (OpenAI, Anthropic, Gemini) implement the Model interface from
// this package so the gateway and scheduler remain decoupled from vendor SDKs.
package model
