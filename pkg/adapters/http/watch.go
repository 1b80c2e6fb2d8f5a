package http

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
)

// Watch subscribes to /events and delivers every tree snapshot the server
// publishes for the client's conversation. The channel closes when ctx is
// done or the stream ends.
func (c *Client) Watch(ctx context.Context) (<-chan *domain.Tree, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/events"), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	// The stream outlives any request timeout configured on c.http.
	hc := *c.http
	hc.Timeout = 0
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &StatusError{Status: resp.StatusCode, Code: CodeInternal, Message: "subscribe failed"}
	}

	out := make(chan *domain.Tree)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64<<10), 16<<20)
		event := ""
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case line == "":
				event = ""
			case strings.HasPrefix(line, "event:"):
				event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			case strings.HasPrefix(line, "data:") && event == "tree":
				tree := domain.NewTree()
				if err := json.Unmarshal([]byte(strings.TrimSpace(strings.TrimPrefix(line, "data:"))), tree); err != nil {
					continue
				}
				select {
				case out <- tree:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
