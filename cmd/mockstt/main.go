// Command mockstt is a stand-in transcription API for local development.
// It accepts the multipart requests the remote engine sends and answers
// with a canned transcript, so the full pipeline can be exercised without
// a real speech-to-text backend.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"
)

type segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type transcriptionResponse struct {
	Text     string    `json:"text"`
	Language string    `json:"language,omitempty"`
	Segments []segment `json:"segments,omitempty"`
}

var (
	delay = flag.Duration("delay", 200*time.Millisecond, "Simulated processing time per request")
	text  = flag.String("text", "this is a mock transcription", "Transcript text to return")
)

func transcribeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	chunkID := r.FormValue("chunk_id")
	streamID := r.FormValue("stream_id")
	language := r.FormValue("language")
	duration, _ := strconv.ParseFloat(r.FormValue("duration"), 64)

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Error getting audio file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	audioData, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Error reading audio file", http.StatusInternalServerError)
		return
	}

	log.Printf("transcription request: chunk=%s stream=%s language=%s duration=%.2fs file=%s size=%d",
		chunkID, streamID, language, duration, header.Filename, len(audioData))

	time.Sleep(*delay)

	response := transcriptionResponse{
		Text:     *text,
		Language: language,
		Segments: []segment{
			{Start: 0, End: duration, Text: *text},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

func main() {
	port := flag.Int("port", 9000, "Port to listen on")
	flag.Parse()

	http.HandleFunc("/transcribe", transcribeHandler)

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("mock transcription server listening on %s", addr)
	log.Printf("point the engine endpoint at http://localhost%s/transcribe", addr)

	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatal("Server failed to start:", err)
	}
}
