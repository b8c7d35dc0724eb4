// Package extract implements the content-extraction collaborator: given a
// URL it fetches the page within a bounded timeout and reduces it to
// normalized readable text plus metadata via go-readability.
package extract
