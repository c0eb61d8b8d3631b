package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// HTTPDoer is the part of *http.Client the webhook senders use.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// postJSON sends payload to url and treats any non-2xx answer as a failure.
func postJSON(ctx context.Context, client HTTPDoer, url string, payload any) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return errors.New("webhook url empty")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 64<<10))
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("webhook http %d", res.StatusCode)
	}
	return nil
}

func orDefault(client HTTPDoer) HTTPDoer {
	if client == nil {
		return http.DefaultClient
	}
	return client
}
