package model

// DownloadStatus is the lifecycle state of one in-flight download.
type DownloadStatus string

const (
	DownloadPending     DownloadStatus = "pending"
	DownloadDownloading DownloadStatus = "downloading"
	DownloadCompleted   DownloadStatus = "completed"
	DownloadFailed      DownloadStatus = "failed"
	DownloadPaused      DownloadStatus = "paused"
)

// DownloadRecord is the persisted metadata for one completed download.
// The record list (most-recent first) is the source of truth for
// "is this track downloaded"; the bytes live in the content store.
type DownloadRecord struct {
	ID           string      `json:"id"`
	Track        Track       `json:"track"`
	LocalURL     string      `json:"localUrl"`
	DownloadedAt int64       `json:"downloadedAt"` // epoch milliseconds
	ByteSize     int64       `json:"byteSize"`
	Quality      QualityTier `json:"quality"`
}

// DownloadProgress is the ephemeral progress of one in-flight download.
// It is never persisted; the entry is retained briefly after a terminal
// status so a late poller can still read the outcome.
type DownloadProgress struct {
	ID              string         `json:"id"`
	Status          DownloadStatus `json:"status"`
	DownloadedBytes int64          `json:"downloadedBytes"`
	TotalBytes      int64          `json:"totalBytes"`
	Progress        float64        `json:"progress"` // percent, 0-100
	Error           string         `json:"error,omitempty"`
}

// DownloadStats aggregates the download record list.
type DownloadStats struct {
	TotalDownloads int                 `json:"totalDownloads"`
	TotalSize      int64               `json:"totalSize"`
	AverageSize    float64             `json:"averageSize"`
	ByQuality      map[QualityTier]int `json:"byQuality"`
}
