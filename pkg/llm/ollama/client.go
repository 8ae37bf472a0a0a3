package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/seslichat/sesli/pkg/Logger"
)

var ErrInvalidRequest = errors.New("model and chat history are required")

// Fragment is one unit of streamed model output. A Fragment with a
// non-nil Err terminates the sequence.
type Fragment struct {
	Content string
	Err     error
}

// Client streams chat completions from an Ollama server. The response is
// consumed line by line so that one malformed chunk never aborts an
// otherwise good stream.
type Client struct {
	host       string
	httpClient *http.Client
	timeout    time.Duration
	logger     *Logger.Logger
}

func New(host string, timeout time.Duration, logger *Logger.Logger) *Client {
	return &Client{
		host:       host,
		httpClient: &http.Client{},
		timeout:    timeout,
		logger:     logger,
	}
}

// StreamChat opens a streaming chat request and returns a lazy, single
// consumption sequence of fragments. Precondition failures are returned
// before any network interaction; backend failures after that point are
// degraded into explanatory fragments so the caller-facing stream still
// completes normally.
func (c *Client) StreamChat(ctx context.Context, model string, history []api.Message) (<-chan Fragment, error) {
	if model == "" || len(history) == 0 {
		return nil, ErrInvalidRequest
	}

	stream := true
	payload, err := json.Marshal(api.ChatRequest{
		Model:    model,
		Messages: history,
		Stream:   &stream,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)

	out := make(chan Fragment, 1)
	go func() {
		defer close(out)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/chat", bytes.NewReader(payload))
		if err != nil {
			c.emit(ctx, out, Fragment{Err: err})
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Errorf("chat request failed: %v", err)
			c.emit(ctx, out, Fragment{Content: "Failed to get response from Ollama"})
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			c.logger.Errorf("chat request returned status %d: %s", resp.StatusCode, string(body))
			c.emit(ctx, out, Fragment{Content: "Failed to get response from Ollama"})
			return
		}

		sc := bufio.NewScanner(resp.Body)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for sc.Scan() {
			line := bytes.TrimSpace(sc.Bytes())
			if len(line) == 0 {
				continue
			}
			var chunk api.ChatResponse
			if err := json.Unmarshal(line, &chunk); err != nil {
				c.logger.Errorf("skipping malformed chat chunk: %v - line: %s", err, string(line))
				continue
			}
			if chunk.Message.Content != "" {
				if !c.emit(ctx, out, Fragment{Content: chunk.Message.Content}) {
					return
				}
			}
			if chunk.Done {
				return
			}
		}
		if err := sc.Err(); err != nil {
			// best-effort: the buffered slot lets the terminal error
			// through even when the deadline has already fired
			select {
			case out <- Fragment{Err: fmt.Errorf("reading chat stream: %w", err)}:
			default:
			}
		}
	}()

	return out, nil
}

func (c *Client) emit(ctx context.Context, out chan<- Fragment, f Fragment) bool {
	select {
	case out <- f:
		return true
	case <-ctx.Done():
		return false
	}
}
