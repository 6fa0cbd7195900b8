// Package preflight checks that cmsindex can run before a reindex starts.
//
// The checks cover:
//   - CMS reachability (one id query)
//   - Write permissions on the index and session directories
//   - Disk space under the index directory (minimum 100MB)
//   - File descriptor limits (minimum 1024, bleve keeps segments open)
//   - Presence of the configured index
//
// Use the Checker type to run all validations:
//
//	checker := preflight.New()
//	results := checker.RunAll(ctx, targets)
//	if checker.HasCriticalFailures(results) {
//	    // Handle failures
//	}
package preflight
