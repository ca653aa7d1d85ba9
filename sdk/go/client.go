package dealroomsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal deal-room HTTP API client.
type Client struct {
	BaseURL    string
	DealID     string
	Actor      string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL, dealID string) *Client {
	return &Client{
		BaseURL: baseURL,
		DealID:  dealID,
		Timeout: 10 * time.Second,
	}
}

// Deal is the API deal model.
type Deal struct {
	ID             string `json:"id"`
	Tenant         string `json:"tenant"`
	Property       string `json:"property"`
	Stage          string `json:"stage"`
	ProposalStatus string `json:"proposal_status"`
	RoomStatus     string `json:"room_status"`
}

// Agreement is one legal-pack agreement (partial).
type Agreement struct {
	ID             string   `json:"id"`
	Kind           string   `json:"kind"`
	Title          string   `json:"title"`
	Status         string   `json:"status"`
	TargetSignDate *string  `json:"target_sign_date,omitempty"`
	Signers        []string `json:"required_signers"`
}

// Room is the deal-room view.
type Room struct {
	DealID     string      `json:"deal_id"`
	Status     string      `json:"status"`
	Agreements []Agreement `json:"agreements"`
	CanHandoff bool        `json:"can_handoff"`
}

// HeadsOfTerms is the versioned commercial summary.
type HeadsOfTerms struct {
	Version   int               `json:"version"`
	Fields    map[string]string `json:"fields"`
	UpdatedAt string            `json:"updated_at"`
}

// ActivityItem is one audit trail entry.
type ActivityItem struct {
	ID    string `json:"id"`
	Actor string `json:"actor"`
	TS    string `json:"ts"`
	Type  string `json:"type"`
	Note  string `json:"note"`
}

// GuardResult reports where navigation would land.
type GuardResult struct {
	OK       bool   `json:"ok"`
	Redirect string `json:"redirect,omitempty"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CreateDeal creates a deal and its room.
func (c *Client) CreateDeal(ctx context.Context, id, tenant, property string) (Deal, error) {
	body := map[string]any{"id": id, "tenant": tenant, "property": property}
	var resp Deal
	err := c.do(ctx, http.MethodPost, "v0/deals", body, &resp)
	return resp, err
}

// GetDeal fetches the deal.
func (c *Client) GetDeal(ctx context.Context) (Deal, error) {
	var resp Deal
	err := c.do(ctx, http.MethodGet, c.dealPath(""), nil, &resp)
	return resp, err
}

// AcceptProposal marks the proposal accepted and opens the room.
func (c *Client) AcceptProposal(ctx context.Context) (Deal, error) {
	var resp Deal
	err := c.do(ctx, http.MethodPost, c.dealPath("proposal/accept"), nil, &resp)
	return resp, err
}

// GetRoom fetches the full deal room.
func (c *Client) GetRoom(ctx context.Context) (Room, error) {
	var resp Room
	err := c.do(ctx, http.MethodGet, c.dealPath("room"), nil, &resp)
	return resp, err
}

// GeneratePack generates the legal pack from the confirmed plan.
func (c *Client) GeneratePack(ctx context.Context) (Room, error) {
	var resp Room
	err := c.do(ctx, http.MethodPost, c.dealPath("room/pack"), nil, &resp)
	return resp, err
}

// AdvanceAgreement moves an agreement one status step forward.
func (c *Client) AdvanceAgreement(ctx context.Context, agreementID string) (Room, error) {
	var resp Room
	endpoint := c.dealPath(fmt.Sprintf("room/agreements/%s/advance", url.PathEscape(agreementID)))
	err := c.do(ctx, http.MethodPost, endpoint, nil, &resp)
	return resp, err
}

// UploadAgreementVersion records a new agreement version.
func (c *Client) UploadAgreementVersion(ctx context.Context, agreementID string) (Room, error) {
	var resp Room
	endpoint := c.dealPath(fmt.Sprintf("room/agreements/%s/versions", url.PathEscape(agreementID)))
	err := c.do(ctx, http.MethodPost, endpoint, nil, &resp)
	return resp, err
}

// Handoff hands the deal off to operations.
func (c *Client) Handoff(ctx context.Context) (Deal, error) {
	var resp Deal
	err := c.do(ctx, http.MethodPost, c.dealPath("room/handoff"), nil, &resp)
	return resp, err
}

// UpdateHots merges fields into the heads of terms.
func (c *Client) UpdateHots(ctx context.Context, fields map[string]string) (HeadsOfTerms, error) {
	var resp HeadsOfTerms
	err := c.do(ctx, http.MethodPatch, c.dealPath("room/hots"), map[string]any{"fields": fields}, &resp)
	return resp, err
}

// Activity returns recent activity, newest first.
func (c *Client) Activity(ctx context.Context, limit int) ([]ActivityItem, error) {
	endpoint := c.dealPath("activity")
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	var resp []ActivityItem
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// Guard asks where navigation to a path would land.
func (c *Client) Guard(ctx context.Context, path string) (GuardResult, error) {
	endpoint := fmt.Sprintf("%s?path=%s", c.dealPath("guard"), url.QueryEscape(path))
	var resp GuardResult
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Actor != "" {
		req.Header.Set("X-Actor", c.Actor)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) dealPath(p string) string {
	deal := url.PathEscape(c.DealID)
	if p == "" {
		return fmt.Sprintf("v0/deals/%s", deal)
	}
	return fmt.Sprintf("v0/deals/%s/%s", deal, strings.TrimLeft(p, "/"))
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
