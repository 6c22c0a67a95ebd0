package cdp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"nhooyr.io/websocket"
)

// Client is a page-control handle speaking the Chrome DevTools Protocol
// over one websocket. It exposes the operations the extraction pipeline
// needs: navigation, DOM query/wait, input dispatch, and viewport/identity
// overrides. One Client drives exactly one page target.
type Client struct {
	conn      *websocket.Conn
	idCounter int64
	mu        sync.Mutex
}

type targetResponse struct {
	Type                 string `json:"type"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

type envelope struct {
	ID     int64           `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *responseError  `json:"error,omitempty"`
}

type responseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

const (
	defaultSelectorTimeout = 12 * time.Second
	pollInterval           = 150 * time.Millisecond
)

// Dial attaches to the first available page target behind a DevTools HTTP
// endpoint. This is the fast path used when stealth is disabled.
func Dial(ctx context.Context, baseURL string) (*Client, error) {
	trimmed := normalizeBaseURL(baseURL)

	targetURL := trimmed + "/json/list"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build target request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query cdp target endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cdp target endpoint returned status %d", resp.StatusCode)
	}

	var targets []targetResponse
	if err := json.NewDecoder(resp.Body).Decode(&targets); err != nil {
		return nil, fmt.Errorf("decode cdp target response: %w", err)
	}

	var pageSocketURL string
	for _, target := range targets {
		if target.Type == "page" && strings.TrimSpace(target.WebSocketDebuggerURL) != "" {
			pageSocketURL = target.WebSocketDebuggerURL
			break
		}
	}
	if pageSocketURL == "" {
		return nil, fmt.Errorf("no page target websocket found")
	}

	return dialSocket(ctx, pageSocketURL)
}

func dialSocket(ctx context.Context, socketURL string) (*Client, error) {
	conn, _, err := websocket.Dial(ctx, socketURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial cdp websocket: %w", err)
	}
	conn.SetReadLimit(16 << 20)

	return &Client{conn: conn}, nil
}

func normalizeBaseURL(baseURL string) string {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		trimmed = "http://127.0.0.1:9222"
	}
	return strings.TrimSuffix(trimmed, "/")
}

func (c *Client) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "closing")
}

func (c *Client) Navigate(ctx context.Context, targetURL string) error {
	if err := c.Call(ctx, "Page.enable", nil, nil); err != nil {
		return err
	}
	return c.Call(ctx, "Page.navigate", map[string]any{"url": targetURL}, nil)
}

// Reload forces a page reload. ignoreCache additionally bypasses the HTTP
// cache so a stuck client-side render starts over from the network.
func (c *Client) Reload(ctx context.Context, ignoreCache bool) error {
	if err := c.Call(ctx, "Page.enable", nil, nil); err != nil {
		return err
	}
	return c.Call(ctx, "Page.reload", map[string]any{"ignoreCache": ignoreCache}, nil)
}

func (c *Client) CaptureScreenshot(ctx context.Context) (string, error) {
	if err := c.Call(ctx, "Page.enable", nil, nil); err != nil {
		return "", err
	}
	var response struct {
		Data string `json:"data"`
	}
	if err := c.Call(ctx, "Page.captureScreenshot", map[string]any{"format": "png"}, &response); err != nil {
		return "", err
	}
	return response.Data, nil
}

func (c *Client) EvaluateString(ctx context.Context, expression string) (string, error) {
	value, err := c.EvaluateAny(ctx, expression)
	if err != nil {
		return "", err
	}
	if value == nil {
		return "", nil
	}
	return fmt.Sprint(value), nil
}

func (c *Client) EvaluateAny(ctx context.Context, expression string) (any, error) {
	if err := c.Call(ctx, "Runtime.enable", nil, nil); err != nil {
		return nil, err
	}
	var response struct {
		Result struct {
			Value any `json:"value"`
		} `json:"result"`
	}
	if err := c.Call(ctx, "Runtime.evaluate", map[string]any{
		"expression":    expression,
		"returnByValue": true,
	}, &response); err != nil {
		return nil, err
	}
	return response.Result.Value, nil
}

// OuterHTML snapshots the full serialized document, the raw input to
// canonicalization.
func (c *Client) OuterHTML(ctx context.Context) (string, error) {
	value, err := c.EvaluateAny(ctx, `document.documentElement.outerHTML`)
	if err != nil {
		return "", err
	}
	html, ok := value.(string)
	if !ok {
		return "", errors.New("outer html evaluation returned non-string")
	}
	return html, nil
}

// PageText returns the rendered body text, used by keyword probes.
func (c *Client) PageText(ctx context.Context) (string, error) {
	value, err := c.EvaluateAny(ctx, `String(document.body ? document.body.innerText : "")`)
	if err != nil {
		return "", err
	}
	text, _ := value.(string)
	return text, nil
}

func (c *Client) Title(ctx context.Context) (string, error) {
	return c.EvaluateString(ctx, `String(document.title || "")`)
}

func (c *Client) CurrentURL(ctx context.Context) (string, error) {
	return c.EvaluateString(ctx, `String(window.location.href || "")`)
}

// HasVisible reports whether any element matched by selector is visible.
func (c *Client) HasVisible(ctx context.Context, selector string) (bool, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return false, errors.New("selector is required")
	}
	count, err := c.CountVisible(ctx, selector)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CountVisible counts visible elements matched by selector, used by the
// row-count readiness probe.
func (c *Client) CountVisible(ctx context.Context, selector string) (int, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return 0, errors.New("selector is required")
	}

	expression := fmt.Sprintf(`(() => {
	const visible = (el) => {
		const style = window.getComputedStyle(el);
		if (!style || style.display === "none" || style.visibility === "hidden") return false;
		const rect = el.getBoundingClientRect();
		return rect.width > 1 && rect.height > 1;
	};
	return Array.from(document.querySelectorAll(%q)).filter(visible).length;
	})()`, selector)

	value, err := c.EvaluateAny(ctx, expression)
	if err != nil {
		return 0, err
	}
	number, ok := value.(float64)
	if !ok {
		return 0, fmt.Errorf("count evaluation returned %T", value)
	}
	return int(number), nil
}

// WaitForSelector polls until a visible match for selector appears or the
// timeout elapses.
func (c *Client) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return errors.New("selector is required")
	}
	if timeout <= 0 {
		timeout = defaultSelectorTimeout
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for {
		found, err := c.HasVisible(waitCtx, selector)
		if err != nil {
			return err
		}
		if found {
			return nil
		}

		select {
		case <-waitCtx.Done():
			return fmt.Errorf("timeout waiting for selector %q", selector)
		case <-time.After(pollInterval):
		}
	}
}

// WaitForLoad polls document.readyState until the page reports complete.
// Used after a forced reload before probing resumes.
func (c *Client) WaitForLoad(ctx context.Context, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = defaultSelectorTimeout
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for {
		state, err := c.EvaluateString(waitCtx, `String(document.readyState || "")`)
		if err != nil {
			return err
		}
		if state == "complete" || state == "interactive" {
			return nil
		}

		select {
		case <-waitCtx.Done():
			return errors.New("timeout waiting for page load")
		case <-time.After(pollInterval):
		}
	}
}

// AddInitScript installs source to run in every new document before page
// scripts, the hook stealth masking relies on.
func (c *Client) AddInitScript(ctx context.Context, source string) error {
	if strings.TrimSpace(source) == "" {
		return errors.New("init script source is required")
	}
	if err := c.Call(ctx, "Page.enable", nil, nil); err != nil {
		return err
	}
	return c.Call(ctx, "Page.addScriptToEvaluateOnNewDocument", map[string]any{"source": source}, nil)
}

func (c *Client) SetUserAgentOverride(ctx context.Context, userAgent, acceptLanguage string) error {
	if strings.TrimSpace(userAgent) == "" {
		return errors.New("user agent is required")
	}
	params := map[string]any{"userAgent": userAgent}
	if strings.TrimSpace(acceptLanguage) != "" {
		params["acceptLanguage"] = acceptLanguage
	}
	if err := c.Call(ctx, "Network.enable", nil, nil); err != nil {
		return err
	}
	return c.Call(ctx, "Network.setUserAgentOverride", params, nil)
}

func (c *Client) SetViewport(ctx context.Context, width, height int) error {
	if width <= 0 || height <= 0 {
		return errors.New("viewport dimensions must be positive")
	}
	return c.Call(ctx, "Emulation.setDeviceMetricsOverride", map[string]any{
		"width":             width,
		"height":            height,
		"deviceScaleFactor": 1,
		"mobile":            false,
	}, nil)
}

// SetLocaleHeader pins the Accept-Language header for every request the
// page makes.
func (c *Client) SetLocaleHeader(ctx context.Context, locale string) error {
	if strings.TrimSpace(locale) == "" {
		return errors.New("locale is required")
	}
	if err := c.Call(ctx, "Network.enable", nil, nil); err != nil {
		return err
	}
	return c.Call(ctx, "Network.setExtraHTTPHeaders", map[string]any{
		"headers": map[string]string{"Accept-Language": locale},
	}, nil)
}

func (c *Client) SetTimezone(ctx context.Context, timezoneID string) error {
	if strings.TrimSpace(timezoneID) == "" {
		return errors.New("timezone id is required")
	}
	return c.Call(ctx, "Emulation.setTimezoneOverride", map[string]any{"timezoneId": timezoneID}, nil)
}

// Cookie is the subset of CDP cookie fields session restoration uses.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain,omitempty"`
	Path     string  `json:"path,omitempty"`
	Expires  float64 `json:"expires,omitempty"`
	HTTPOnly bool    `json:"httpOnly,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
}

func (c *Client) SetCookies(ctx context.Context, cookies []Cookie) error {
	if len(cookies) == 0 {
		return nil
	}
	if err := c.Call(ctx, "Network.enable", nil, nil); err != nil {
		return err
	}
	return c.Call(ctx, "Network.setCookies", map[string]any{"cookies": cookies}, nil)
}

func (c *Client) GetCookies(ctx context.Context) ([]Cookie, error) {
	if err := c.Call(ctx, "Network.enable", nil, nil); err != nil {
		return nil, err
	}
	var response struct {
		Cookies []Cookie `json:"cookies"`
	}
	if err := c.Call(ctx, "Network.getCookies", nil, &response); err != nil {
		return nil, err
	}
	return response.Cookies, nil
}

// Call issues one CDP method call and decodes its result into out. Calls
// are serialized per client; CDP responses are matched by request id.
func (c *Client) Call(ctx context.Context, method string, params any, out any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.idCounter++
	requestID := c.idCounter

	payload := map[string]any{
		"id":     requestID,
		"method": method,
	}
	if params != nil {
		payload["params"] = params
	}

	deadline := time.Now().Add(20 * time.Second)
	if explicit, ok := ctx.Deadline(); ok {
		deadline = explicit
	}
	writeCtx, cancelWrite := context.WithDeadline(ctx, deadline)
	defer cancelWrite()
	if err := c.conn.Write(writeCtx, websocket.MessageText, mustMarshal(payload)); err != nil {
		return fmt.Errorf("write cdp request: %w", err)
	}

	for {
		readCtx, cancelRead := context.WithDeadline(ctx, deadline)
		_, message, err := c.conn.Read(readCtx)
		cancelRead()
		if err != nil {
			return fmt.Errorf("read cdp response: %w", err)
		}

		var env envelope
		if err := json.Unmarshal(message, &env); err != nil {
			continue
		}

		if env.ID != requestID {
			continue
		}

		if env.Error != nil {
			return fmt.Errorf("cdp %s failed (%d): %s", method, env.Error.Code, env.Error.Message)
		}

		if out != nil && len(env.Result) > 0 {
			if err := json.Unmarshal(env.Result, out); err != nil {
				return fmt.Errorf("decode %s response: %w", method, err)
			}
		}
		return nil
	}
}

func mustMarshal(value any) []byte {
	raw, err := json.Marshal(value)
	if err != nil {
		panic(err)
	}
	return raw
}
