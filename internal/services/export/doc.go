// Package export renders enriched cards into shareable files.
package export
