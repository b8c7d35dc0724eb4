// Package services holds the shared plumbing for external collaborator
// clients: sentinel error markers with a Wrap helper that tags failures for
// later classification, and context annotations that carry item, job, run,
// and request identifiers through a processing run.
package services
