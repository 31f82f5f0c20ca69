package upload

import "context"

// Uploader uploads generated report files to remote storage.
type Uploader interface {
	// Preflight verifies that the remote storage is reachable and writable.
	// Writes a small test object to the bucket to fail fast on misconfiguration.
	Preflight(ctx context.Context) error

	// UploadReport uploads report files for one job. Files are keyed under
	// the configured prefix and the job identifier.
	UploadReport(ctx context.Context, jobKey string, paths ...string) error
}
