package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/signupassist/provider-pipeline/internal/program"
)

const defaultTimeout = 45 * time.Second

// Config points the client at the extraction-model collaborator. Transport
// retries and model selection are the collaborator's responsibility; this
// client issues exactly one request per Extract call.
type Config struct {
	EndpointURL string
	AuthToken   string
	Model       string
	Timeout     time.Duration
}

type Client struct {
	endpointURL string
	authToken   string
	model       string
	timeout     time.Duration
	httpClient  *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	endpoint := strings.TrimSpace(cfg.EndpointURL)
	if endpoint == "" {
		return nil, errors.New("extractor endpoint url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		endpointURL: endpoint,
		authToken:   strings.TrimSpace(cfg.AuthToken),
		model:       strings.TrimSpace(cfg.Model),
		timeout:     timeout,
		httpClient:  &http.Client{},
	}, nil
}

// Hints carries request context the model can use to disambiguate rows.
type Hints struct {
	OrgRef   string
	Category string
	AgeHint  int
}

type extractRequest struct {
	HTML     string `json:"html"`
	OrgRef   string `json:"org_ref,omitempty"`
	Category string `json:"category,omitempty"`
	AgeHint  int    `json:"age_hint,omitempty"`
	Model    string `json:"model,omitempty"`
}

// wireProgram tolerates the shapes extraction models actually emit: numeric
// fields may arrive quoted or bare, and ids may be numbers.
type wireProgram struct {
	ID          FlexString     `json:"id"`
	ProgramRef  FlexString     `json:"program_ref"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Schedule    string         `json:"schedule"`
	AgeRange    string         `json:"age_range"`
	SkillLevel  string         `json:"skill_level"`
	Price       FlexString     `json:"price"`
	ActualID    FlexString     `json:"actual_id"`
	OrgRef      string         `json:"org_ref"`
	Status      string         `json:"status"`
	CTAHref     string         `json:"cta_href"`
}

type extractResponse struct {
	Programs []wireProgram `json:"programs"`
}

// FlexString unmarshals both JSON strings and bare numbers (e.g. "123" or
// 123). Extraction models frequently emit identifiers either way.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*f = FlexString(n.String())
		return nil
	}
	if string(b) == "null" {
		*f = ""
		return nil
	}
	return fmt.Errorf("FlexString: unsupported value %s", string(b))
}

// Extract sends a canonicalized snippet to the extraction model and decodes
// the structured program list. Both a bare JSON array and a {"programs":
// [...]} envelope are accepted.
func (c *Client) Extract(ctx context.Context, canonicalHTML string, hints Hints) ([]program.Program, error) {
	if strings.TrimSpace(canonicalHTML) == "" {
		return nil, errors.New("canonical html is required")
	}

	payload := extractRequest{
		HTML:     canonicalHTML,
		OrgRef:   hints.OrgRef,
		Category: hints.Category,
		AgeHint:  hints.AgeHint,
		Model:    c.model,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode extract request: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.endpointURL, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("build extract request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call extraction endpoint: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read extract response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("extraction endpoint returned status %d: %s", resp.StatusCode, truncate(string(body), 300))
	}

	wire, err := decodePrograms(body)
	if err != nil {
		return nil, err
	}
	return mapPrograms(wire, hints.OrgRef), nil
}

func decodePrograms(body []byte) ([]wireProgram, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, errors.New("empty extract response")
	}

	if trimmed[0] == '[' {
		var list []wireProgram
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("decode extract response array: %w", err)
		}
		return list, nil
	}

	var envelope extractResponse
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("decode extract response envelope: %w", err)
	}
	return envelope.Programs, nil
}

func mapPrograms(wire []wireProgram, orgRef string) []program.Program {
	out := make([]program.Program, 0, len(wire))
	for _, item := range wire {
		mapped := program.Program{
			ID:          string(item.ID),
			ProgramRef:  string(item.ProgramRef),
			Title:       item.Title,
			Description: item.Description,
			Schedule:    item.Schedule,
			AgeRange:    item.AgeRange,
			SkillLevel:  item.SkillLevel,
			Price:       string(item.Price),
			ActualID:    string(item.ActualID),
			OrgRef:      item.OrgRef,
			Status:      program.Status(item.Status),
			CTAHref:     item.CTAHref,
		}
		if mapped.OrgRef == "" {
			mapped.OrgRef = orgRef
		}
		out = append(out, mapped)
	}
	return out
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
