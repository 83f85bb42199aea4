// sessionsim drives a recording session against a running service,
// streaming a local audio file in timed chunks the way a browser
// recorder would. Useful for exercising the chunk pipeline end to end.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

const defaultChunkSize = 16 * 1024

func main() {
	audioFile := flag.String("audio", "testdata/sample.webm", "Path to WebM/Opus audio file")
	serverAddr := flag.String("server", "http://localhost:8080", "Service base URL")
	owner := flag.String("owner", "sim", "Owner ID sent as X-Owner-ID")
	title := flag.String("title", "Simulated session "+time.Now().Format("15:04:05"), "Transcript title")
	chunkSize := flag.Int("chunk", defaultChunkSize, "Chunk size in bytes")
	interval := flag.Duration("interval", time.Second, "Delay between chunks")
	flag.Parse()

	audio, err := os.ReadFile(*audioFile)
	if err != nil {
		log.Fatalf("Failed to read audio file: %v", err)
	}

	c := &client{base: *serverAddr, owner: *owner}

	var started struct {
		ID string `json:"id"`
	}
	if err := c.call(http.MethodPost, "/v1/sessions",
		map[string]string{"title": *title}, &started); err != nil {
		log.Fatalf("Failed to start session: %v", err)
	}
	log.Printf("Session started: transcript=%s", started.ID)

	for off := 0; off < len(audio); off += *chunkSize {
		end := off + *chunkSize
		if end > len(audio) {
			end = len(audio)
		}
		if err := c.push(started.ID, audio[off:end]); err != nil {
			log.Fatalf("Failed to push chunk at offset %d: %v", off, err)
		}
		log.Printf("Pushed chunk: offset=%d bytes=%d", off, end-off)
		time.Sleep(*interval)
	}

	var tr json.RawMessage
	if err := c.call(http.MethodPost, "/v1/sessions/"+started.ID+"/stop", nil, &tr); err != nil {
		log.Fatalf("Failed to stop session: %v", err)
	}
	log.Printf("Session stopped, transcript:\n%s", tr)
}

type client struct {
	base  string
	owner string
}

func (c *client) call(method, path string, body, out any) error {
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		buf = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, c.base+path, buf)
	if err != nil {
		return err
	}
	req.Header.Set("X-Owner-ID", c.owner)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *client) push(transcriptID string, chunk []byte) error {
	req, err := http.NewRequest(http.MethodPost,
		c.base+"/v1/sessions/"+transcriptID+"/chunks", bytes.NewReader(chunk))
	if err != nil {
		return err
	}
	req.Header.Set("X-Owner-ID", c.owner)
	req.Header.Set("Content-Type", "application/octet-stream")
	return c.do(req, nil)
}

func (c *client) do(req *http.Request, out any) error {
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: %s: %s", req.Method, req.URL.Path, resp.Status, raw)
	}
	if out != nil {
		return json.Unmarshal(raw, out)
	}
	return nil
}
