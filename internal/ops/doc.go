// Package ops is the operations facade over the store: capture, process,
// export, query, intent, archive, and batch entry points with idempotent
// replay semantics and stable error codes.
package ops
