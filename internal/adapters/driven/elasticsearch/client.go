package elasticsearch

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

const readyPollInterval = 5 * time.Second

// Ping reports whether Elasticsearch responds at the configured endpoint
func (s *SearchIndex) Ping(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, s.baseURL+"/", nil)
	if err != nil {
		return false
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return resp.StatusCode < 400
}

// WaitForReady polls Elasticsearch until it responds to a ping or the
// timeout is reached. Used at startup when the cluster may still be
// coming up.
func (s *SearchIndex) WaitForReady(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for {
		if s.Ping(ctx) {
			log.Printf("Elasticsearch is ready at %s", s.baseURL)
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("elasticsearch not available at %s after %s", s.baseURL, timeout)
		}

		log.Println("Waiting for Elasticsearch...")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(readyPollInterval):
		}
	}
}
