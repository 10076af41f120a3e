// Package download orchestrates chunked streaming downloads into the
// content store, with per-track single-flight, progress reporting, and
// cache lifecycle management.
//
// The persisted record list is the source of truth for "is this track
// downloaded"; the bytes live in the content store. CleanupOrphans
// reconciles the two when they diverge.
package download

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/anuragpy07/Sausico/cache"
	"github.com/anuragpy07/Sausico/logger"
	"github.com/anuragpy07/Sausico/model"
	"github.com/anuragpy07/Sausico/storage"
	"github.com/anuragpy07/Sausico/stream"
)

const (
	// terminalRetention keeps a finished progress entry visible briefly so
	// a caller polling right after completion still reads the outcome.
	terminalRetention = 1 * time.Second
	// exportPacing is the delay inserted between multi-track exports.
	exportPacing = 300 * time.Millisecond

	chunkSize = 32 * 1024
)

// ProgressFunc receives a progress snapshot at least once per received
// chunk, plus one final terminal notification.
type ProgressFunc func(progress model.DownloadProgress)

// Manager owns the offline download cache.
type Manager struct {
	store    storage.ContentStore
	settings cache.Store
	resolver *stream.Resolver
	client   *http.Client

	exportDir string
	retention time.Duration
	pacing    time.Duration

	// mu guards the in-flight set; check-and-insert under it is the
	// single-flight guarantee.
	mu        sync.Mutex
	inflight  map[string]*model.DownloadProgress
	callbacks map[string]ProgressFunc

	// indexMu serializes record-list read-modify-write so concurrent
	// completions cannot lose updates.
	indexMu sync.Mutex
}

// NewManager creates a download manager writing into store and keeping its
// record index in settings.
func NewManager(store storage.ContentStore, settings cache.Store, resolver *stream.Resolver, exportDir string) *Manager {
	return &Manager{
		store:     store,
		settings:  settings,
		resolver:  resolver,
		client:    &http.Client{},
		exportDir: exportDir,
		retention: terminalRetention,
		pacing:    exportPacing,
		inflight:  make(map[string]*model.DownloadProgress),
		callbacks: make(map[string]ProgressFunc),
	}
}

// Records returns the persisted download records, most-recent first.
func (m *Manager) Records(ctx context.Context) ([]model.DownloadRecord, error) {
	raw, err := m.settings.GetItem(ctx, cache.KeyDownloads)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read download index: %w", ErrStoreFailure, err)
	}
	if raw == "" {
		return []model.DownloadRecord{}, nil
	}
	var records []model.DownloadRecord
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, fmt.Errorf("%w: corrupt download index: %w", ErrStoreFailure, err)
	}
	return records, nil
}

func (m *Manager) saveRecords(ctx context.Context, records []model.DownloadRecord) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("%w: failed to encode download index: %w", ErrStoreFailure, err)
	}
	if err := m.settings.SetItem(ctx, cache.KeyDownloads, string(data)); err != nil {
		return fmt.Errorf("%w: failed to write download index: %w", ErrStoreFailure, err)
	}
	return nil
}

// IsDownloaded reports whether the track has both a record and bytes.
func (m *Manager) IsDownloaded(ctx context.Context, id string) bool {
	records, err := m.Records(ctx)
	if err != nil {
		logger.Warn("failed to read download records", logger.ErrorField(err))
		return false
	}
	if findRecord(records, id) == nil {
		return false
	}
	exists, err := m.store.Exists(ctx, id)
	if err != nil {
		logger.Warn("failed to check stored bytes",
			logger.String("trackId", id), logger.ErrorField(err))
		return false
	}
	return exists
}

// GetDownloadInfo returns the record for id, or nil when absent. When the
// backing bytes exist, the record's local handle is re-derived; each call
// supersedes any handle issued before.
func (m *Manager) GetDownloadInfo(ctx context.Context, id string) (*model.DownloadRecord, error) {
	records, err := m.Records(ctx)
	if err != nil {
		return nil, err
	}
	rec := findRecord(records, id)
	if rec == nil {
		return nil, nil
	}
	out := *rec
	if exists, err := m.store.Exists(ctx, id); err == nil && exists {
		if fresh, err := m.store.URL(ctx, id); err == nil {
			out.LocalURL = fresh
		} else {
			logger.Warn("failed to refresh local handle",
				logger.String("trackId", id), logger.ErrorField(err))
		}
	}
	return &out, nil
}

// GetProgress returns a snapshot of the in-flight (or recently terminal)
// progress for id, or nil.
func (m *Manager) GetProgress(id string) *model.DownloadProgress {
	m.mu.Lock()
	defer m.mu.Unlock()
	prog, ok := m.inflight[id]
	if !ok {
		return nil
	}
	snapshot := *prog
	return &snapshot
}

// LocalURL derives a playable handle for a downloaded track. It reports
// false when the track is not fully downloaded. Implements the resolver's
// local source.
func (m *Manager) LocalURL(ctx context.Context, trackID string) (string, bool) {
	if !m.IsDownloaded(ctx, trackID) {
		return "", false
	}
	url, err := m.store.URL(ctx, trackID)
	if err != nil {
		logger.Warn("failed to derive local handle",
			logger.String("trackId", trackID), logger.ErrorField(err))
		return "", false
	}
	return url, true
}

// DownloadTrack streams the track at the configured quality tier into the
// content store and prepends a record to the index. A second call for an id
// already in flight fails immediately with ErrDownloadInProgress.
func (m *Manager) DownloadTrack(ctx context.Context, track *model.Track, onProgress ProgressFunc) (*model.DownloadRecord, error) {
	id := track.ID

	if m.IsDownloaded(ctx, id) {
		return nil, fmt.Errorf("track %s: %w", id, ErrAlreadyDownloaded)
	}

	m.mu.Lock()
	if _, ok := m.inflight[id]; ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("track %s: %w", id, ErrDownloadInProgress)
	}
	m.inflight[id] = &model.DownloadProgress{ID: id, Status: model.DownloadPending}
	if onProgress != nil {
		m.callbacks[id] = onProgress
	}
	m.mu.Unlock()

	defer time.AfterFunc(m.retention, func() {
		m.mu.Lock()
		delete(m.inflight, id)
		delete(m.callbacks, id)
		m.mu.Unlock()
	})

	record, err := m.runDownload(ctx, track)
	if err != nil {
		m.updateProgress(id, func(p *model.DownloadProgress) {
			p.Status = model.DownloadFailed
			p.Error = err.Error()
		})
		logger.Error("download failed",
			logger.String("trackId", id), logger.ErrorField(err))
		return nil, err
	}

	m.updateProgress(id, func(p *model.DownloadProgress) {
		p.Status = model.DownloadCompleted
		p.Progress = 100
	})
	logger.Info("download completed",
		logger.String("trackId", id),
		logger.String("title", track.Title),
		logger.Int64("bytes", record.ByteSize),
		logger.String("quality", string(record.Quality)))
	return record, nil
}

// runDownload resolves, transfers, and commits one download. Failed
// downloads leave neither bytes nor a record behind.
func (m *Manager) runDownload(ctx context.Context, track *model.Track) (*model.DownloadRecord, error) {
	id := track.ID
	m.updateProgress(id, func(p *model.DownloadProgress) {
		p.Status = model.DownloadDownloading
	})

	streamURL, quality, err := m.resolver.RemoteURL(ctx, track)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		return nil, fmt.Errorf("track %s: %w: %w", id, ErrTransferFailed, err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("track %s: %w: %w", id, ErrTransferFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("track %s: %w: status %d", id, ErrTransferFailed, resp.StatusCode)
	}

	// Declared length may be absent; progress stays at 0 until completion.
	totalBytes := resp.ContentLength
	if totalBytes < 0 {
		totalBytes = 0
	}
	m.updateProgress(id, func(p *model.DownloadProgress) {
		p.TotalBytes = totalBytes
	})

	var buf bytes.Buffer
	chunk := make([]byte, chunkSize)
	var downloaded int64
	for {
		n, readErr := resp.Body.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			downloaded += int64(n)
			m.updateProgress(id, func(p *model.DownloadProgress) {
				p.DownloadedBytes = downloaded
				if totalBytes > 0 {
					p.Progress = float64(downloaded) / float64(totalBytes) * 100
				}
			})
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return nil, fmt.Errorf("track %s: %w: %w", id, ErrTransferFailed, readErr)
		}
	}

	data := buf.Bytes()
	if err := m.store.Put(ctx, id, data, resp.Header.Get("Content-Type")); err != nil {
		return nil, fmt.Errorf("track %s: %w: %w", id, ErrStoreFailure, err)
	}

	localURL, err := m.store.URL(ctx, id)
	if err != nil {
		// Not fatal: GetDownloadInfo re-derives the handle on access.
		logger.Warn("failed to derive local handle after download",
			logger.String("trackId", id), logger.ErrorField(err))
	}

	record := model.DownloadRecord{
		ID:           id,
		Track:        *track,
		LocalURL:     localURL,
		DownloadedAt: time.Now().UnixMilli(),
		ByteSize:     int64(len(data)),
		Quality:      quality,
	}

	if err := m.prependRecord(ctx, record); err != nil {
		// Roll the bytes back so a failed download leaves nothing behind.
		if delErr := m.store.Delete(ctx, id); delErr != nil {
			logger.Warn("failed to roll back stored bytes",
				logger.String("trackId", id), logger.ErrorField(delErr))
		}
		return nil, err
	}

	return &record, nil
}

func (m *Manager) prependRecord(ctx context.Context, record model.DownloadRecord) error {
	m.indexMu.Lock()
	defer m.indexMu.Unlock()

	records, err := m.Records(ctx)
	if err != nil {
		return err
	}
	records = append([]model.DownloadRecord{record}, records...)
	return m.saveRecords(ctx, records)
}

// updateProgress mutates the in-flight entry and delivers a snapshot to the
// registered callback. The callback runs outside the lock.
func (m *Manager) updateProgress(id string, mutate func(p *model.DownloadProgress)) {
	m.mu.Lock()
	prog, ok := m.inflight[id]
	if !ok {
		m.mu.Unlock()
		return
	}
	mutate(prog)
	snapshot := *prog
	callback := m.callbacks[id]
	m.mu.Unlock()

	if callback != nil {
		callback(snapshot)
	}
}

// DeleteDownload removes the record and bytes for id.
func (m *Manager) DeleteDownload(ctx context.Context, id string) error {
	m.indexMu.Lock()
	defer m.indexMu.Unlock()

	records, err := m.Records(ctx)
	if err != nil {
		return err
	}
	if findRecord(records, id) == nil {
		return fmt.Errorf("track %s: %w", id, ErrNotFound)
	}

	if err := m.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("track %s: %w: %w", id, ErrStoreFailure, err)
	}

	kept := records[:0]
	for _, rec := range records {
		if rec.ID != id {
			kept = append(kept, rec)
		}
	}
	if err := m.saveRecords(ctx, kept); err != nil {
		return err
	}

	logger.Info("download deleted", logger.String("trackId", id))
	return nil
}

// DeleteAllDownloads removes every record and all stored bytes.
func (m *Manager) DeleteAllDownloads(ctx context.Context) error {
	m.indexMu.Lock()
	defer m.indexMu.Unlock()

	if err := m.store.Clear(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	if err := m.saveRecords(ctx, []model.DownloadRecord{}); err != nil {
		return err
	}

	logger.Info("all downloads deleted")
	return nil
}

// CleanupOrphans reconciles the record list with the content store: bytes
// without a record are deleted, records without bytes are dropped. Ids
// with an in-flight download are left alone; they have no record yet.
func (m *Manager) CleanupOrphans(ctx context.Context) error {
	m.indexMu.Lock()
	defer m.indexMu.Unlock()

	records, err := m.Records(ctx)
	if err != nil {
		return err
	}
	valid := make(map[string]bool, len(records))
	for _, rec := range records {
		valid[rec.ID] = true
	}

	keys, err := m.store.ListKeys(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	removedBytes := 0
	for _, key := range keys {
		if valid[key] || m.isInflight(key) {
			continue
		}
		if err := m.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("orphan %s: %w: %w", key, ErrStoreFailure, err)
		}
		removedBytes++
	}

	kept := make([]model.DownloadRecord, 0, len(records))
	for _, rec := range records {
		exists, err := m.store.Exists(ctx, rec.ID)
		if err != nil {
			return fmt.Errorf("record %s: %w: %w", rec.ID, ErrStoreFailure, err)
		}
		if exists {
			kept = append(kept, rec)
		}
	}
	if len(kept) != len(records) {
		if err := m.saveRecords(ctx, kept); err != nil {
			return err
		}
	}

	if removedBytes > 0 || len(kept) != len(records) {
		logger.Info("orphan cleanup finished",
			logger.Int("bytesRemoved", removedBytes),
			logger.Int("recordsRemoved", len(records)-len(kept)))
	}
	return nil
}

func (m *Manager) isInflight(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.inflight[id]
	return ok
}

func findRecord(records []model.DownloadRecord, id string) *model.DownloadRecord {
	for i := range records {
		if records[i].ID == id {
			return &records[i]
		}
	}
	return nil
}

var _ stream.LocalSource = (*Manager)(nil)
