package tts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/seslichat/sesli/pkg/Logger"
)

func TestSynthesizeWritesFileAndReturnsURL(t *testing.T) {
	var gotText, gotVoice string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/text-to-speech" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		gotText = r.URL.Query().Get("text")
		gotVoice = r.URL.Query().Get("voice")
		w.Write([]byte("RIFFfakewav"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	c := New(srv.URL, dir, "/static/audio", 5*time.Second, Logger.New(true))

	audioURL, err := c.Synthesize(context.Background(), "Merhaba, nasılsın?", "tr", "req-1")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	if audioURL != "/static/audio/audio-req-1.wav" {
		t.Errorf("audioURL = %q", audioURL)
	}
	if gotVoice != "tr_TR-fettah-medium" {
		t.Errorf("voice = %q", gotVoice)
	}
	if gotText == "" {
		t.Error("text parameter was empty")
	}

	data, err := os.ReadFile(filepath.Join(dir, "audio-req-1.wav"))
	if err != nil {
		t.Fatalf("read audio file: %v", err)
	}
	if string(data) != "RIFFfakewav" {
		t.Errorf("audio payload = %q", data)
	}
}

func TestSynthesizeStripsUnsafeCharacters(t *testing.T) {
	var gotText string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotText = r.URL.Query().Get("text")
		w.Write([]byte("wav"))
	}))
	defer srv.Close()

	c := New(srv.URL, t.TempDir(), "/static/audio", 5*time.Second, Logger.New(true))
	if _, err := c.Synthesize(context.Background(), `Say "hi" <now> & run $(rm)`, "en", "req-2"); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	for _, bad := range []string{`"`, "<", ">", "&", "$", "("} {
		if strings.Contains(gotText, bad) {
			t.Errorf("unsafe character %q survived sanitization: %q", bad, gotText)
		}
	}
}

func TestSynthesizeFallsBackToDefaultVoice(t *testing.T) {
	var gotVoice string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotVoice = r.URL.Query().Get("voice")
		w.Write([]byte("wav"))
	}))
	defer srv.Close()

	c := New(srv.URL, t.TempDir(), "/static/audio", 5*time.Second, Logger.New(true))
	if _, err := c.Synthesize(context.Background(), "hello", "xx", "req-3"); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if gotVoice != defaultVoice {
		t.Errorf("voice = %q, want %q", gotVoice, defaultVoice)
	}
}

func TestSynthesizeServerErrorLeavesNoFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "voice unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	dir := t.TempDir()
	c := New(srv.URL, dir, "/static/audio", 5*time.Second, Logger.New(true))

	if _, err := c.Synthesize(context.Background(), "hello", "en", "req-4"); err == nil {
		t.Fatal("expected an error from a failing tts server")
	}
	if _, err := os.Stat(filepath.Join(dir, "audio-req-4.wav")); !os.IsNotExist(err) {
		t.Error("a file was written despite the failure")
	}
}

func TestSynthesizeRejectsEmptyText(t *testing.T) {
	c := New("http://localhost:5000", t.TempDir(), "/static/audio", time.Second, Logger.New(true))
	if _, err := c.Synthesize(context.Background(), "", "en", "req-5"); err == nil {
		t.Fatal("expected an error for empty text")
	}
}
