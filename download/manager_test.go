package download

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/anuragpy07/Sausico/cache"
	"github.com/anuragpy07/Sausico/catalog"
	"github.com/anuragpy07/Sausico/model"
	"github.com/anuragpy07/Sausico/storage"
	"github.com/anuragpy07/Sausico/stream"
)

// fakeCatalog resolves every track to the same stream URL at all tiers.
type fakeCatalog struct {
	streamURL string
}

func (f *fakeCatalog) GetTrackByID(_ context.Context, id string) (*model.Track, error) {
	return &model.Track{ID: id, Media: &model.MediaSource{EncryptedURL: "enc-" + id}}, nil
}

func (f *fakeCatalog) ResolveStreamURLs(_ context.Context, _, _ string, _ bool) ([]catalog.StreamURL, error) {
	urls := make([]catalog.StreamURL, 4)
	for i := range urls {
		urls[i] = catalog.StreamURL{URL: f.streamURL}
	}
	return urls, nil
}

func newTestManager(t *testing.T, streamURL string) (*Manager, *storage.MemoryStore, *cache.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	settings := cache.NewMemoryStore()
	resolver := stream.NewResolver(&fakeCatalog{streamURL: streamURL}, settings, nil)
	m := NewManager(store, settings, resolver, t.TempDir())
	m.retention = 50 * time.Millisecond
	m.pacing = time.Millisecond
	return m, store, settings
}

func mediaTrack(id, title string) *model.Track {
	return &model.Track{
		ID:      id,
		Title:   title,
		Artists: []model.Artist{{Name: "Artist"}},
		Media:   &model.MediaSource{EncryptedURL: "enc-" + id},
	}
}

func audioServer(t *testing.T, body []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mp4")
		w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDownloadTrack(t *testing.T) {
	ctx := context.Background()

	t.Run("Round Trip", func(t *testing.T) {
		body := []byte("fake-audio-content")
		srv := audioServer(t, body)
		m, store, _ := newTestManager(t, srv.URL)

		record, err := m.DownloadTrack(ctx, mediaTrack("t1", "Song"), nil)
		if err != nil {
			t.Fatalf("DownloadTrack: %v", err)
		}
		if record.ByteSize != int64(len(body)) {
			t.Errorf("ByteSize = %d, want %d", record.ByteSize, len(body))
		}
		if record.Quality != model.QualityMedium {
			t.Errorf("Quality = %q, want MEDIUM", record.Quality)
		}
		if record.LocalURL == "" {
			t.Error("LocalURL is empty")
		}

		data, contentType, err := store.Get(ctx, "t1")
		if err != nil {
			t.Fatalf("stored bytes missing: %v", err)
		}
		if string(data) != string(body) {
			t.Errorf("stored bytes = %q", data)
		}
		if contentType != "audio/mp4" {
			t.Errorf("contentType = %q, want audio/mp4", contentType)
		}

		if !m.IsDownloaded(ctx, "t1") {
			t.Error("IsDownloaded = false after download")
		}
		records, err := m.Records(ctx)
		if err != nil {
			t.Fatalf("Records: %v", err)
		}
		if len(records) != 1 || records[0].ID != "t1" {
			t.Errorf("Records = %+v", records)
		}
	})

	t.Run("Already Downloaded", func(t *testing.T) {
		srv := audioServer(t, []byte("x"))
		m, _, _ := newTestManager(t, srv.URL)

		if _, err := m.DownloadTrack(ctx, mediaTrack("t1", "Song"), nil); err != nil {
			t.Fatalf("first download: %v", err)
		}
		_, err := m.DownloadTrack(ctx, mediaTrack("t1", "Song"), nil)
		if !errors.Is(err, ErrAlreadyDownloaded) {
			t.Errorf("second download = %v, want ErrAlreadyDownloaded", err)
		}
	})

	t.Run("Single Flight", func(t *testing.T) {
		release := make(chan struct{})
		started := make(chan struct{})
		var once sync.Once
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			once.Do(func() { close(started) })
			<-release
			w.Write([]byte("slow-body"))
		}))
		defer srv.Close()

		m, _, _ := newTestManager(t, srv.URL)

		errCh := make(chan error, 1)
		go func() {
			_, err := m.DownloadTrack(context.Background(), mediaTrack("t1", "Song"), nil)
			errCh <- err
		}()

		<-started
		_, err := m.DownloadTrack(ctx, mediaTrack("t1", "Song"), nil)
		if !errors.Is(err, ErrDownloadInProgress) {
			t.Errorf("concurrent download = %v, want ErrDownloadInProgress", err)
		}

		close(release)
		if err := <-errCh; err != nil {
			t.Fatalf("first download: %v", err)
		}
	})

	t.Run("Progress Reaches Completion", func(t *testing.T) {
		body := make([]byte, 100*1024)
		srv := audioServer(t, body)
		m, _, _ := newTestManager(t, srv.URL)

		var mu sync.Mutex
		var snapshots []model.DownloadProgress
		_, err := m.DownloadTrack(ctx, mediaTrack("t1", "Song"), func(p model.DownloadProgress) {
			mu.Lock()
			snapshots = append(snapshots, p)
			mu.Unlock()
		})
		if err != nil {
			t.Fatalf("DownloadTrack: %v", err)
		}

		mu.Lock()
		defer mu.Unlock()
		if len(snapshots) == 0 {
			t.Fatal("no progress snapshots delivered")
		}
		var prev int64
		for _, p := range snapshots {
			if p.DownloadedBytes < prev {
				t.Fatalf("DownloadedBytes went backward: %d after %d", p.DownloadedBytes, prev)
			}
			prev = p.DownloadedBytes
		}
		last := snapshots[len(snapshots)-1]
		if last.Status != model.DownloadCompleted {
			t.Errorf("final status = %q, want completed", last.Status)
		}
		if last.Progress != 100 {
			t.Errorf("final progress = %v, want 100", last.Progress)
		}
	})

	t.Run("Transfer Failure Leaves Nothing", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		m, store, _ := newTestManager(t, srv.URL)

		var last model.DownloadProgress
		_, err := m.DownloadTrack(ctx, mediaTrack("t1", "Song"), func(p model.DownloadProgress) {
			last = p
		})
		if !errors.Is(err, ErrTransferFailed) {
			t.Fatalf("DownloadTrack = %v, want ErrTransferFailed", err)
		}
		if last.Status != model.DownloadFailed {
			t.Errorf("final status = %q, want failed", last.Status)
		}
		if last.Error == "" {
			t.Error("final snapshot has no error message")
		}

		if exists, _ := store.Exists(ctx, "t1"); exists {
			t.Error("failed download left bytes behind")
		}
		records, _ := m.Records(ctx)
		if len(records) != 0 {
			t.Errorf("failed download left records: %+v", records)
		}
	})

	t.Run("Terminal Progress Evicted After Retention", func(t *testing.T) {
		srv := audioServer(t, []byte("x"))
		m, _, _ := newTestManager(t, srv.URL)

		if _, err := m.DownloadTrack(ctx, mediaTrack("t1", "Song"), nil); err != nil {
			t.Fatalf("DownloadTrack: %v", err)
		}
		if m.GetProgress("t1") == nil {
			t.Fatal("progress evicted immediately, want retention window")
		}

		deadline := time.Now().Add(time.Second)
		for m.GetProgress("t1") != nil {
			if time.Now().After(deadline) {
				t.Fatal("progress never evicted")
			}
			time.Sleep(10 * time.Millisecond)
		}
	})
}

func TestDeleteDownload(t *testing.T) {
	ctx := context.Background()

	t.Run("Removes Record And Bytes", func(t *testing.T) {
		srv := audioServer(t, []byte("x"))
		m, store, _ := newTestManager(t, srv.URL)
		m.DownloadTrack(ctx, mediaTrack("t1", "Song"), nil)

		if err := m.DeleteDownload(ctx, "t1"); err != nil {
			t.Fatalf("DeleteDownload: %v", err)
		}
		if exists, _ := store.Exists(ctx, "t1"); exists {
			t.Error("bytes still present after delete")
		}
		if m.IsDownloaded(ctx, "t1") {
			t.Error("IsDownloaded = true after delete")
		}
	})

	t.Run("Unknown Id", func(t *testing.T) {
		srv := audioServer(t, []byte("x"))
		m, _, _ := newTestManager(t, srv.URL)

		if err := m.DeleteDownload(ctx, "nope"); !errors.Is(err, ErrNotFound) {
			t.Errorf("DeleteDownload = %v, want ErrNotFound", err)
		}
	})

	t.Run("Delete All", func(t *testing.T) {
		srv := audioServer(t, []byte("x"))
		m, store, _ := newTestManager(t, srv.URL)
		m.DownloadTrack(ctx, mediaTrack("t1", "One"), nil)
		m.DownloadTrack(ctx, mediaTrack("t2", "Two"), nil)

		if err := m.DeleteAllDownloads(ctx); err != nil {
			t.Fatalf("DeleteAllDownloads: %v", err)
		}
		keys, _ := store.ListKeys(ctx)
		if len(keys) != 0 {
			t.Errorf("store still holds %d objects", len(keys))
		}
		records, _ := m.Records(ctx)
		if len(records) != 0 {
			t.Errorf("index still holds %d records", len(records))
		}
	})
}

func TestCleanupOrphans(t *testing.T) {
	ctx := context.Background()

	t.Run("Reconciles Both Directions", func(t *testing.T) {
		srv := audioServer(t, []byte("x"))
		m, store, _ := newTestManager(t, srv.URL)
		m.DownloadTrack(ctx, mediaTrack("t1", "Keep"), nil)
		m.DownloadTrack(ctx, mediaTrack("t2", "LoseBytes"), nil)

		// Orphan bytes with no record, and a record whose bytes vanished.
		store.Put(ctx, "stray", []byte("junk"), "")
		store.Delete(ctx, "t2")

		if err := m.CleanupOrphans(ctx); err != nil {
			t.Fatalf("CleanupOrphans: %v", err)
		}

		if exists, _ := store.Exists(ctx, "stray"); exists {
			t.Error("stray bytes survived cleanup")
		}
		records, _ := m.Records(ctx)
		if len(records) != 1 || records[0].ID != "t1" {
			t.Errorf("records after cleanup = %+v, want just t1", records)
		}
		if exists, _ := store.Exists(ctx, "t1"); !exists {
			t.Error("intact download was removed")
		}
	})

	t.Run("Idempotent", func(t *testing.T) {
		srv := audioServer(t, []byte("x"))
		m, store, _ := newTestManager(t, srv.URL)
		m.DownloadTrack(ctx, mediaTrack("t1", "Keep"), nil)
		store.Put(ctx, "stray", []byte("junk"), "")

		if err := m.CleanupOrphans(ctx); err != nil {
			t.Fatalf("first cleanup: %v", err)
		}
		if err := m.CleanupOrphans(ctx); err != nil {
			t.Fatalf("second cleanup: %v", err)
		}
		records, _ := m.Records(ctx)
		if len(records) != 1 {
			t.Errorf("records = %+v", records)
		}
	})
}

func TestGetDownloadInfo(t *testing.T) {
	ctx := context.Background()
	srv := audioServer(t, []byte("x"))
	m, _, _ := newTestManager(t, srv.URL)
	m.DownloadTrack(ctx, mediaTrack("t1", "Song"), nil)

	first, err := m.GetDownloadInfo(ctx, "t1")
	if err != nil || first == nil {
		t.Fatalf("GetDownloadInfo: %v, %v", first, err)
	}
	second, err := m.GetDownloadInfo(ctx, "t1")
	if err != nil || second == nil {
		t.Fatalf("GetDownloadInfo: %v, %v", second, err)
	}
	if first.LocalURL == second.LocalURL {
		t.Error("expected each access to derive a fresh local handle")
	}

	missing, err := m.GetDownloadInfo(ctx, "nope")
	if err != nil {
		t.Fatalf("GetDownloadInfo missing: %v", err)
	}
	if missing != nil {
		t.Errorf("GetDownloadInfo missing = %+v, want nil", missing)
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	srv := audioServer(t, []byte("0123456789"))
	m, _, _ := newTestManager(t, srv.URL)
	m.DownloadTrack(ctx, mediaTrack("t1", "One"), nil)
	m.DownloadTrack(ctx, mediaTrack("t2", "Two"), nil)

	stats, err := m.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.TotalDownloads != 2 {
		t.Errorf("TotalDownloads = %d, want 2", stats.TotalDownloads)
	}
	if stats.TotalSize != 20 {
		t.Errorf("TotalSize = %d, want 20", stats.TotalSize)
	}
	if stats.AverageSize != 10 {
		t.Errorf("AverageSize = %v, want 10", stats.AverageSize)
	}
	if stats.ByQuality[model.QualityMedium] != 2 {
		t.Errorf("ByQuality = %+v", stats.ByQuality)
	}

	total, err := m.GetTotalSize(ctx)
	if err != nil {
		t.Fatalf("GetTotalSize: %v", err)
	}
	if total != 20 {
		t.Errorf("GetTotalSize = %d, want 20", total)
	}
}
