package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anuragpy07/Sausico/model"
)

func envelope(t *testing.T, w http.ResponseWriter, code int, data interface{}) {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal envelope data: %v", err)
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"code": code,
		"data": json.RawMessage(raw),
	})
}

func TestGetTrackByID(t *testing.T) {
	ctx := context.Background()

	t.Run("Decodes Track", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/songs/abc123" {
				t.Errorf("path = %q", r.URL.Path)
			}
			envelope(t, w, 200, []model.Track{{
				ID:    "abc123",
				Title: "Song",
				Media: &model.MediaSource{EncryptedURL: "enc"},
			}})
		}))
		defer srv.Close()

		track, err := NewClient(srv.URL).GetTrackByID(ctx, "abc123")
		if err != nil {
			t.Fatalf("GetTrackByID: %v", err)
		}
		if track.Title != "Song" {
			t.Errorf("Title = %q", track.Title)
		}
		if track.Media == nil || track.Media.EncryptedURL != "enc" {
			t.Errorf("Media = %+v", track.Media)
		}
	})

	t.Run("Empty Result Is Not Found", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			envelope(t, w, 200, []model.Track{})
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL).GetTrackByID(ctx, "gone")
		if !errors.Is(err, ErrTrackNotFound) {
			t.Errorf("GetTrackByID = %v, want ErrTrackNotFound", err)
		}
	})

	t.Run("API Error Code Fails", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"code": 500,
				"msg":  "backend exploded",
				"data": nil,
			})
		}))
		defer srv.Close()

		if _, err := NewClient(srv.URL).GetTrackByID(ctx, "abc"); err == nil {
			t.Error("expected error for non-200 envelope code")
		}
	})

	t.Run("HTTP Error Fails", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		if _, err := NewClient(srv.URL).GetTrackByID(ctx, "abc"); err == nil {
			t.Error("expected error for HTTP 502")
		}
	})
}

func TestResolveStreamURLs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/songs/stream" {
			t.Errorf("path = %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("ref") != "enc-ref" || q.Get("edge") != "edge" || q.Get("flag") != "true" {
			t.Errorf("query = %v", q)
		}
		envelope(t, w, 200, []StreamURL{
			{Quality: "12kbps", URL: "http://cdn/low"},
			{Quality: "160kbps", URL: "http://cdn/medium"},
			{Quality: "320kbps", URL: "http://cdn/high"},
			{Quality: "lossless", URL: "http://cdn/lossless"},
		})
	}))
	defer srv.Close()

	urls, err := NewClient(srv.URL).ResolveStreamURLs(context.Background(), "enc-ref", "edge", true)
	if err != nil {
		t.Fatalf("ResolveStreamURLs: %v", err)
	}
	if len(urls) != 4 {
		t.Fatalf("len(urls) = %d, want 4", len(urls))
	}
	if urls[2].URL != "http://cdn/high" {
		t.Errorf("urls[2] = %+v", urls[2])
	}
}

func TestGetSuggestions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/songs/seed/suggestions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.URL.Query().Get("limit") != "5" {
			t.Errorf("limit = %q", r.URL.Query().Get("limit"))
		}
		envelope(t, w, 200, []model.Track{{ID: "s1"}, {ID: "s2"}})
	}))
	defer srv.Close()

	tracks, err := NewClient(srv.URL).GetSuggestions(context.Background(), "seed", 5)
	if err != nil {
		t.Fatalf("GetSuggestions: %v", err)
	}
	if len(tracks) != 2 || tracks[0].ID != "s1" {
		t.Errorf("tracks = %+v", tracks)
	}
}
