package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/skypro1111/whisper-stream-service/internal/engine"
	"github.com/skypro1111/whisper-stream-service/internal/metrics"
)

func testRequest() engine.Request {
	return engine.Request{
		Samples:    make([]float32, 1600),
		SampleRate: 16000,
		Language:   "en",
		StreamID:   1,
		ChunkID:    "chunk-1",
	}
}

func TestClientTranscribe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Errorf("Failed to parse multipart form: %v", err)
		}

		if r.FormValue("chunk_id") != "chunk-1" {
			t.Errorf("Expected chunk_id chunk-1, got %s", r.FormValue("chunk_id"))
		}
		if r.FormValue("language") != "en" {
			t.Errorf("Expected language en, got %s", r.FormValue("language"))
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("Expected audio file in form: %v", err)
		} else {
			file.Close()
			if header.Filename != "chunk-1.wav" {
				t.Errorf("Expected filename chunk-1.wav, got %s", header.Filename)
			}
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"text": "hello world",
			"segments": []map[string]interface{}{
				{"start": 0.0, "end": 0.1, "text": " hello world "},
			},
		})
	}))
	defer server.Close()

	client, err := NewClient(Config{Endpoint: server.URL, APIKey: "test-key"})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	defer client.Close()

	segments, err := client.Transcribe(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}

	if len(segments) != 1 {
		t.Fatalf("Expected 1 segment, got %d", len(segments))
	}
	if segments[0].Text != "hello world" {
		t.Errorf("Expected trimmed text 'hello world', got %q", segments[0].Text)
	}
	if segments[0].End != 100*time.Millisecond {
		t.Errorf("Expected end at 100ms, got %v", segments[0].End)
	}
}

func TestClientTextOnlyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"text": "no timing here"})
	}))
	defer server.Close()

	client, err := NewClient(Config{Endpoint: server.URL})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	defer client.Close()

	segments, err := client.Transcribe(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}

	if len(segments) != 1 {
		t.Fatalf("Expected 1 synthesized segment, got %d", len(segments))
	}
	if segments[0].Text != "no timing here" {
		t.Errorf("Expected full text fallback, got %q", segments[0].Text)
	}
	if segments[0].End != 100*time.Millisecond {
		t.Errorf("Expected end at the audio duration, got %v", segments[0].End)
	}
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "overloaded", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"text": "recovered"})
	}))
	defer server.Close()

	appMetrics := metrics.NewMetrics()
	client, err := NewClient(Config{Endpoint: server.URL, MaxRetries: 2, Metrics: appMetrics})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	defer client.Close()

	segments, err := client.Transcribe(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Transcribe failed after retry: %v", err)
	}

	if calls.Load() != 2 {
		t.Errorf("Expected 2 calls (1 failure + 1 retry), got %d", calls.Load())
	}
	if len(segments) != 1 || segments[0].Text != "recovered" {
		t.Errorf("Expected recovered transcript, got %v", segments)
	}

	stats := client.GetStats()
	if stats.TotalRetries != 1 {
		t.Errorf("Expected 1 retry, got %d", stats.TotalRetries)
	}
	if stats.SuccessRequests != 1 {
		t.Errorf("Expected 1 success, got %d", stats.SuccessRequests)
	}
	if got := testutil.ToFloat64(appMetrics.TranscriptionRetries); got != 1 {
		t.Errorf("Expected retry counter at 1, got %v", got)
	}
}

func TestClientCloseIdempotent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"text": "ok"})
	}))
	defer server.Close()

	client, err := NewClient(Config{Endpoint: server.URL, MaxConcurrent: 2})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	if err := client.Close(); err != nil {
		t.Fatalf("First Close failed: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- client.Close()
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Second Close failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Second Close did not return")
	}

	if _, err := client.Transcribe(context.Background(), testRequest()); err == nil {
		t.Error("Expected error from Transcribe after Close")
	}
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad audio", http.StatusBadRequest)
	}))
	defer server.Close()

	client, err := NewClient(Config{Endpoint: server.URL, MaxRetries: 3})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	defer client.Close()

	if _, err := client.Transcribe(context.Background(), testRequest()); err == nil {
		t.Fatal("Expected error for 400 response")
	}

	if calls.Load() != 1 {
		t.Errorf("Expected no retry on 400, got %d calls", calls.Load())
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Error("Expected error for empty endpoint")
	}
}
