package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"sdragent/config"
	"sdragent/middleware"
)

// apiClient talks to a running sdragent server (simulate / followup commands).
type apiClient struct {
	baseURL string
	apiKey  string
	secret  string
	http    *http.Client
}

type clientFlags struct {
	url    string
	apiKey string
}

func (f *clientFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.url, "url", "", "server base URL (default: http://localhost:<api_port>)")
	cmd.Flags().StringVar(&f.apiKey, "api-key", "", "admin API key (default: from config)")
}

func (f *clientFlags) client() (*apiClient, error) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return nil, err
	}
	base := strings.TrimRight(f.url, "/")
	if base == "" {
		base = "http://localhost:" + cfg.ApiPort
	}
	key := f.apiKey
	if key == "" {
		key = cfg.Security.AdminAPIKey
	}
	return &apiClient{
		baseURL: base,
		apiKey:  key,
		secret:  cfg.Security.WebhookSecret,
		http:    &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func (c *apiClient) do(ctx context.Context, method, path string, body any) (int, map[string]any, error) {
	var raw []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		raw = b
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set(middleware.HEADER_API_KEY, c.apiKey)
	}
	if c.secret != "" && raw != nil {
		req.Header.Set(middleware.HEADER_WEBHOOK_SIGNATURE, middleware.Sign(c.secret, raw))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	var out map[string]any
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &out); err != nil {
			return resp.StatusCode, nil, fmt.Errorf("resposta inválida (%d): %s", resp.StatusCode, string(payload))
		}
	}
	return resp.StatusCode, out, nil
}

func printResult(cmd *cobra.Command, title string, status int, out map[string]any) {
	b, _ := json.MarshalIndent(out, "", "  ")
	fmt.Fprintf(cmd.OutOrStdout(), "%s\nStatus: %d\nResposta: %s\n", title, status, string(b))
}
