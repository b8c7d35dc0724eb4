// Package daemon binds the scheduler and store into a single lifecycle with
// flock-based locking to prevent multiple daemon instances from sharing one
// database.
package daemon
