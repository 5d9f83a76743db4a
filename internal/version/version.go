// Package version exposes build metadata for the receiptdex binary.
// The release pipeline overrides these via -ldflags "-X ...".
package version

var (
	// Version is the semantic version or "dev" for local builds.
	Version = "dev"
	// Commit is the short git SHA the binary was built from.
	Commit = "unknown"
	// Date is the UTC build timestamp.
	Date = "unknown"
)
