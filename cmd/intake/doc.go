// Package main hosts the intake CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into
// operations against the shared store: capture, processing, export, artifact
// inspection and diffing, batch maintenance, and queue diagnostics. It
// centralizes configuration resolution so subcommands can focus on user
// experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
