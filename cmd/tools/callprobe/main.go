package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// callprobe exercises a running backend the way the browser client does:
// it posts a recorded clip to /api/utterance, prints the reply metadata
// headers, and saves the spoken reply for playback.
func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	addr := flag.String("addr", defaultAddr(), "backend base URL")
	mode := flag.String("mode", "voice", "probe mode: voice or chat")
	audioPath := flag.String("audio", "", "audio clip to upload (voice mode)")
	text := flag.String("text", "", "message to send (chat mode)")
	session := flag.String("session", "", "session id to continue, empty starts a new one")
	outputPath := flag.String("out", "", "reply audio destination (default reply-<unix>.mp3)")
	endSession := flag.Bool("end", false, "end the session after the probe")
	timeout := flag.Duration("timeout", 45*time.Second, "request timeout")
	flag.Parse()

	client := &http.Client{Timeout: *timeout}
	base := strings.TrimRight(*addr, "/")

	var sessionID string
	switch *mode {
	case "voice":
		sessionID = runVoice(client, base, *audioPath, *session, *outputPath)
	case "chat":
		runChat(client, base, *text)
		sessionID = *session
	default:
		flag.Usage()
		log.Fatal("mode must be voice or chat")
	}

	if *endSession {
		if sessionID == "" {
			log.Fatal("-end needs a session id from the probe or -session")
		}
		endCall(client, base, sessionID)
	}
}

func defaultAddr() string {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}
	return "http://localhost:" + strings.TrimPrefix(port, ":")
}

func runVoice(client *http.Client, base, audioPath, sessionID, outputPath string) string {
	if audioPath == "" {
		log.Fatal("voice mode needs -audio with a clip to upload")
	}

	clip, err := os.ReadFile(audioPath)
	if err != nil {
		log.Fatalf("failed to read audio file: %v", err)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("audio", filepath.Base(audioPath))
	if err != nil {
		log.Fatalf("failed to build upload: %v", err)
	}
	if _, err := part.Write(clip); err != nil {
		log.Fatalf("failed to build upload: %v", err)
	}
	if sessionID != "" {
		if err := writer.WriteField("session_id", sessionID); err != nil {
			log.Fatalf("failed to build upload: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		log.Fatalf("failed to build upload: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, base+"/api/utterance", body)
	if err != nil {
		log.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	log.Printf("posting %s (%d bytes) to %s", filepath.Base(audioPath), len(clip), base+"/api/utterance")

	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	log.Printf("status: %s", resp.Status)
	for _, name := range []string{
		"X-Session-Id",
		"X-Transcript",
		"X-Model-Reply",
		"X-LLM-Source",
		"X-Agent-Stage",
		"X-Agent-Completed",
		"X-Error",
		"X-Error-Reason",
	} {
		if value := resp.Header.Get(name); value != "" {
			log.Printf("%s: %s", name, value)
		}
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("failed to read reply audio: %v", err)
	}
	if len(audio) == 0 {
		log.Println("no reply audio in response")
		return resp.Header.Get("X-Session-Id")
	}

	if outputPath == "" {
		outputPath = fmt.Sprintf("reply-%d.mp3", time.Now().Unix())
	}
	if err := os.WriteFile(outputPath, audio, 0o644); err != nil {
		log.Fatalf("failed to save reply audio: %v", err)
	}
	log.Printf("saved %d bytes of reply audio to %s", len(audio), outputPath)

	return resp.Header.Get("X-Session-Id")
}

func runChat(client *http.Client, base, text string) {
	if strings.TrimSpace(text) == "" {
		log.Fatal("chat mode needs -text with a message")
	}

	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		log.Fatalf("failed to encode request: %v", err)
	}

	resp, err := client.Post(base+"/api/chat", "application/json", bytes.NewReader(payload))
	if err != nil {
		log.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("failed to read response: %v", err)
	}
	log.Printf("status: %s", resp.Status)
	log.Printf("response: %s", strings.TrimSpace(string(body)))
}

func endCall(client *http.Client, base, sessionID string) {
	resp, err := client.Post(base+"/api/session/"+sessionID+"/end", "application/json", nil)
	if err != nil {
		log.Fatalf("failed to end session: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		log.Fatalf("unexpected status ending session: %s", resp.Status)
	}
	log.Printf("session %s ended", sessionID)
}
