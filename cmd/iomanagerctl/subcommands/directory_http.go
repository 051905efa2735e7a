package subcommands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/eser/iomanager/pkg/ajan/httpclient"
	"github.com/eser/iomanager/pkg/iomanager/directory"
)

var ErrDirectoryRequestFailed = errors.New("directory request failed")

// postDirectory is the one-shot counterpart to directory.Client.post: the CLI
// doesn't keep a background republish thread alive, so it speaks the same
// wire shapes directly over one request.
func postDirectory(ctx context.Context, client *httpclient.Client, baseURL, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDirectoryRequestFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDirectoryRequestFailed, err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDirectoryRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w (path=%s, status=%d)", ErrDirectoryRequestFailed, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDirectoryRequestFailed, err)
	}

	if len(data) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %w", ErrDirectoryRequestFailed, err)
	}

	return nil
}

type publishBody struct {
	Partition   string                    `json:"partition"`
	Connections []directory.Registration `json:"connections"`
}
