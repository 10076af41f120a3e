package download

import "errors"

// Failure taxonomy surfaced to callers. Resolution failures
// (stream.ErrNoStreamSource, stream.ErrNoStreamURL) pass through unchanged.
var (
	// ErrAlreadyDownloaded means the track has both a record and bytes.
	ErrAlreadyDownloaded = errors.New("track already downloaded")
	// ErrDownloadInProgress means another download for the same id is in flight.
	ErrDownloadInProgress = errors.New("download already in progress")
	// ErrTransferFailed means the stream transfer did not complete.
	ErrTransferFailed = errors.New("transfer failed")
	// ErrNotFound means no download record exists for the id.
	ErrNotFound = errors.New("download not found")
	// ErrStoreFailure wraps content store or index I/O errors.
	ErrStoreFailure = errors.New("store failure")
)
