package download

import (
	"context"

	"github.com/anuragpy07/Sausico/model"
)

// GetStats aggregates the download record list.
func (m *Manager) GetStats(ctx context.Context) (*model.DownloadStats, error) {
	records, err := m.Records(ctx)
	if err != nil {
		return nil, err
	}

	stats := &model.DownloadStats{
		TotalDownloads: len(records),
		ByQuality:      make(map[model.QualityTier]int),
	}
	for _, rec := range records {
		stats.TotalSize += rec.ByteSize
		stats.ByQuality[rec.Quality]++
	}
	if len(records) > 0 {
		stats.AverageSize = float64(stats.TotalSize) / float64(len(records))
	}
	return stats, nil
}

// GetTotalSize returns the summed byte size of all downloads.
func (m *Manager) GetTotalSize(ctx context.Context) (int64, error) {
	records, err := m.Records(ctx)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, rec := range records {
		total += rec.ByteSize
	}
	return total, nil
}
