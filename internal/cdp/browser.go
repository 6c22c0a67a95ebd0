package cdp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Browser is a handle on the browser-level CDP socket, used only to create
// and dispose isolated browser contexts. Page interaction always goes
// through the page Client each context yields.
type Browser struct {
	client  *Client
	baseURL string
}

type versionResponse struct {
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

// DialBrowser attaches to the browser-level websocket behind a DevTools
// HTTP endpoint.
func DialBrowser(ctx context.Context, baseURL string) (*Browser, error) {
	trimmed := normalizeBaseURL(baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, trimmed+"/json/version", nil)
	if err != nil {
		return nil, fmt.Errorf("build version request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query cdp version endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cdp version endpoint returned status %d", resp.StatusCode)
	}

	var version versionResponse
	if err := json.NewDecoder(resp.Body).Decode(&version); err != nil {
		return nil, fmt.Errorf("decode cdp version response: %w", err)
	}
	if strings.TrimSpace(version.WebSocketDebuggerURL) == "" {
		return nil, errors.New("no browser websocket advertised")
	}

	client, err := dialSocket(ctx, version.WebSocketDebuggerURL)
	if err != nil {
		return nil, err
	}
	return &Browser{client: client, baseURL: trimmed}, nil
}

func (b *Browser) Close() error {
	return b.client.Close()
}

// CreateContext creates an isolated browser context (separate cookie jar
// and storage) and returns its id.
func (b *Browser) CreateContext(ctx context.Context) (string, error) {
	var response struct {
		BrowserContextID string `json:"browserContextId"`
	}
	if err := b.client.Call(ctx, "Target.createBrowserContext", nil, &response); err != nil {
		return "", err
	}
	if response.BrowserContextID == "" {
		return "", errors.New("browser context creation returned no id")
	}
	return response.BrowserContextID, nil
}

// CreatePage opens a blank page inside contextID and dials a page Client
// bound to it.
func (b *Browser) CreatePage(ctx context.Context, contextID string) (*Client, error) {
	params := map[string]any{"url": "about:blank"}
	if strings.TrimSpace(contextID) != "" {
		params["browserContextId"] = contextID
	}

	var response struct {
		TargetID string `json:"targetId"`
	}
	if err := b.client.Call(ctx, "Target.createTarget", params, &response); err != nil {
		return nil, err
	}
	if response.TargetID == "" {
		return nil, errors.New("target creation returned no id")
	}

	socketURL, err := b.pageSocketURL(response.TargetID)
	if err != nil {
		return nil, err
	}
	return dialSocket(ctx, socketURL)
}

// DisposeContext tears down a context and every page inside it.
func (b *Browser) DisposeContext(ctx context.Context, contextID string) error {
	if strings.TrimSpace(contextID) == "" {
		return errors.New("browser context id is required")
	}
	return b.client.Call(ctx, "Target.disposeBrowserContext", map[string]any{
		"browserContextId": contextID,
	}, nil)
}

func (b *Browser) pageSocketURL(targetID string) (string, error) {
	parsed, err := url.Parse(b.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse cdp base url: %w", err)
	}
	scheme := "ws"
	if parsed.Scheme == "https" {
		scheme = "wss"
	}
	return fmt.Sprintf("%s://%s/devtools/page/%s", scheme, parsed.Host, targetID), nil
}
