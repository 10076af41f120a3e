package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anuragpy07/Sausico/cache"
	"github.com/anuragpy07/Sausico/catalog"
	"github.com/anuragpy07/Sausico/config"
	"github.com/anuragpy07/Sausico/download"
	"github.com/anuragpy07/Sausico/model"
	"github.com/anuragpy07/Sausico/player"
	"github.com/anuragpy07/Sausico/queue"
	"github.com/anuragpy07/Sausico/storage"
	"github.com/anuragpy07/Sausico/stream"
)

// fakeDevice satisfies player.Device without a real playback process.
type fakeDevice struct {
	handler player.EventHandler
}

func (d *fakeDevice) Load(string) error                     { return nil }
func (d *fakeDevice) Play() error                           { return nil }
func (d *fakeDevice) Pause() error                          { return nil }
func (d *fakeDevice) SeekTo(int64) error                    { return nil }
func (d *fakeDevice) PositionMs() int64                     { return 0 }
func (d *fakeDevice) DurationMs() int64                     { return 0 }
func (d *fakeDevice) Stop() error                           { return nil }
func (d *fakeDevice) SetEventHandler(h player.EventHandler) { d.handler = h }
func (d *fakeDevice) Close() error                          { return nil }

// catalogFixture serves the catalog API envelope for a fixed track set.
func catalogFixture(t *testing.T, streamURL string) *httptest.Server {
	t.Helper()
	mustWrite := func(w http.ResponseWriter, data interface{}) {
		raw, _ := json.Marshal(data)
		json.NewEncoder(w).Encode(map[string]interface{}{"code": 200, "data": json.RawMessage(raw)})
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/songs/stream":
			urls := make([]catalog.StreamURL, 4)
			for i := range urls {
				urls[i] = catalog.StreamURL{URL: streamURL}
			}
			mustWrite(w, urls)
		case "/api/songs/t1":
			mustWrite(w, []model.Track{{
				ID:    "t1",
				Title: "Song",
				Media: &model.MediaSource{EncryptedURL: "enc"},
			}})
		default:
			// Suggestions and unknown tracks both come back empty.
			mustWrite(w, []model.Track{})
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestServer(t *testing.T) (*httptest.Server, *download.Manager) {
	t.Helper()

	audio := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mp4")
		w.Write([]byte("audio"))
	}))
	t.Cleanup(audio.Close)

	catSrv := catalogFixture(t, audio.URL)
	cat := catalog.NewClient(catSrv.URL)

	settings := cache.NewMemoryStore()
	store := storage.NewMemoryStore()
	resolver := stream.NewResolver(cat, settings, nil)
	manager := download.NewManager(store, settings, resolver, t.TempDir())
	resolver.AttachLocalSource(manager)

	controller := player.NewController(&fakeDevice{}, resolver, queue.NewService(cat), player.NopControls{}, settings)
	t.Cleanup(func() { controller.Close() })

	hub := NewStateHub(controller)
	t.Cleanup(hub.Close)

	cfg := &config.Config{HTTPAddr: ":0"}
	handler := NewAPIHandler(controller, manager, resolver, cat, settings, cfg)

	srv := httptest.NewServer(NewRouter(handler, hub))
	t.Cleanup(srv.Close)
	return srv, manager
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestPlayerEndpoints(t *testing.T) {
	t.Run("State Starts Idle", func(t *testing.T) {
		srv, _ := newTestServer(t)

		resp, err := http.Get(srv.URL + "/api/player/state")
		if err != nil {
			t.Fatalf("GET state: %v", err)
		}
		defer resp.Body.Close()

		var state model.PlaybackState
		if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
			t.Fatalf("decode state: %v", err)
		}
		if state.Status != model.StatusIdle {
			t.Errorf("status = %q, want idle", state.Status)
		}
	})

	t.Run("Play Requires Track", func(t *testing.T) {
		srv, _ := newTestServer(t)

		resp := postJSON(t, srv.URL+"/api/player/play", map[string]interface{}{})
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("Play Sets Current Track", func(t *testing.T) {
		srv, _ := newTestServer(t)

		resp := postJSON(t, srv.URL+"/api/player/play", playRequest{
			Track: &model.Track{ID: "t1", Title: "Song", Media: &model.MediaSource{EncryptedURL: "enc"}},
		})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		var state model.PlaybackState
		json.NewDecoder(resp.Body).Decode(&state)
		if state.CurrentTrack == nil || state.CurrentTrack.ID != "t1" {
			t.Errorf("CurrentTrack = %+v", state.CurrentTrack)
		}
	})

	t.Run("Seek Rejects Negative Position", func(t *testing.T) {
		srv, _ := newTestServer(t)

		resp := postJSON(t, srv.URL+"/api/player/seek", map[string]int64{"positionMs": -5})
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})
}

func TestQualityEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/quality")
	if err != nil {
		t.Fatalf("GET quality: %v", err)
	}
	defer resp.Body.Close()
	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	if body["quality"] != "MEDIUM" {
		t.Errorf("default quality = %q, want MEDIUM", body["quality"])
	}

	raw, _ := json.Marshal(map[string]string{"quality": "HIGH"})
	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/api/quality", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	putResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT quality: %v", err)
	}
	defer putResp.Body.Close()

	resp2, _ := http.Get(srv.URL + "/api/quality")
	defer resp2.Body.Close()
	json.NewDecoder(resp2.Body).Decode(&body)
	if body["quality"] != "HIGH" {
		t.Errorf("quality after PUT = %q, want HIGH", body["quality"])
	}
}

func TestDownloadEndpoints(t *testing.T) {
	t.Run("List Starts Empty", func(t *testing.T) {
		srv, _ := newTestServer(t)

		resp, err := http.Get(srv.URL + "/api/downloads")
		if err != nil {
			t.Fatalf("GET downloads: %v", err)
		}
		defer resp.Body.Close()

		var records []model.DownloadRecord
		if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
			t.Fatalf("decode records: %v", err)
		}
		if len(records) != 0 {
			t.Errorf("records = %+v, want empty", records)
		}
	})

	t.Run("Start Returns Accepted", func(t *testing.T) {
		srv, _ := newTestServer(t)

		resp := postJSON(t, srv.URL+"/api/downloads", downloadRequest{TrackID: "t1"})
		if resp.StatusCode != http.StatusAccepted {
			t.Errorf("status = %d, want 202", resp.StatusCode)
		}
	})

	t.Run("Info Unknown Id", func(t *testing.T) {
		srv, _ := newTestServer(t)

		resp, err := http.Get(srv.URL + "/api/downloads/nope")
		if err != nil {
			t.Fatalf("GET info: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d, want 404", resp.StatusCode)
		}
	})

	t.Run("Progress Unknown Id", func(t *testing.T) {
		srv, _ := newTestServer(t)

		resp, err := http.Get(srv.URL + "/api/downloads/nope/progress")
		if err != nil {
			t.Fatalf("GET progress: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d, want 404", resp.StatusCode)
		}
	})

	t.Run("Delete Unknown Id", func(t *testing.T) {
		srv, _ := newTestServer(t)

		req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/downloads/nope", nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("DELETE: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d, want 404", resp.StatusCode)
		}
	})

	t.Run("Completed Download Appears In List", func(t *testing.T) {
		srv, manager := newTestServer(t)

		if _, err := manager.DownloadTrack(context.Background(), &model.Track{
			ID: "t1", Title: "Song", Media: &model.MediaSource{EncryptedURL: "enc"},
		}, nil); err != nil {
			t.Fatalf("DownloadTrack: %v", err)
		}

		resp, err := http.Get(srv.URL + "/api/downloads")
		if err != nil {
			t.Fatalf("GET downloads: %v", err)
		}
		defer resp.Body.Close()
		var records []model.DownloadRecord
		json.NewDecoder(resp.Body).Decode(&records)
		if len(records) != 1 || records[0].ID != "t1" {
			t.Errorf("records = %+v, want t1", records)
		}

		statsResp, err := http.Get(srv.URL + "/api/downloads/stats")
		if err != nil {
			t.Fatalf("GET stats: %v", err)
		}
		defer statsResp.Body.Close()
		var stats model.DownloadStats
		json.NewDecoder(statsResp.Body).Decode(&stats)
		if stats.TotalDownloads != 1 {
			t.Errorf("TotalDownloads = %d, want 1", stats.TotalDownloads)
		}
	})
}
