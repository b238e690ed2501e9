// Package client is a Go client for the ghost slot reservation API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/okian/ghostslot/internal/auth"
	"github.com/okian/ghostslot/internal/domain/types"
)

// DefaultTimeout bounds a single request when no http.Client is supplied.
const DefaultTimeout = 10 * time.Second

// Client calls the reservation API on behalf of one requester.
type Client struct {
	baseURL   string
	requester string
	token     string
	header    string
	http      *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithRequester identifies the caller through the requester header.
func WithRequester(id string) Option {
	return func(c *Client) { c.requester = id }
}

// WithToken identifies the caller with a bearer token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithRequesterHeader overrides the header carrying the requester id.
func WithRequesterHeader(name string) Option {
	return func(c *Client) {
		if name != "" {
			c.header = name
		}
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// New returns a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		header:  auth.DefaultHeader,
		http:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// As returns a copy of c acting for another requester.
func (c *Client) As(requester string) *Client {
	cp := *c
	cp.requester = requester
	cp.token = ""
	return &cp
}

// Query returns the state of a cohort. userSlot is filled when the client
// carries an identity.
func (c *Client) Query(ctx context.Context, cohort int) (types.ReservationState, error) {
	var out types.ReservationState
	err := c.do(ctx, http.MethodGet, reservationPath(cohort, ""), nil, &out)
	return out, err
}

// Reserve claims the lowest free slot of cohort.
func (c *Client) Reserve(ctx context.Context, cohort int) (types.Slot, error) {
	var out types.Slot
	err := c.do(ctx, http.MethodPost, reservationPath(cohort, "reserve"), nil, &out)
	return out, err
}

// Release gives back a reserved slot.
func (c *Client) Release(ctx context.Context, cohort int, slotID string) (types.Slot, error) {
	var out types.Slot
	err := c.do(ctx, http.MethodPost, reservationPath(cohort, "release"), types.ReleaseRequest{SlotID: slotID}, &out)
	return out, err
}

// Submit confirms a reserved slot for skillsetID.
func (c *Client) Submit(ctx context.Context, cohort int, slotID, skillsetID string) (types.Slot, error) {
	var out types.Slot
	body := types.SubmitRequest{SlotID: slotID, SkillsetID: skillsetID}
	err := c.do(ctx, http.MethodPost, reservationPath(cohort, "submit"), body, &out)
	return out, err
}

// Cohorts lists every cohort.
func (c *Client) Cohorts(ctx context.Context) ([]types.CohortSummary, error) {
	var out []types.CohortSummary
	err := c.do(ctx, http.MethodGet, "/cohorts", nil, &out)
	return out, err
}

// CreateCohort creates a cohort. total <= 0 uses the server default.
func (c *Client) CreateCohort(ctx context.Context, cohort, total int) (types.ReservationState, error) {
	var out types.ReservationState
	body := types.CreateCohortRequest{Cohort: cohort, TotalGhostSlots: total}
	err := c.do(ctx, http.MethodPost, "/cohorts", body, &out)
	return out, err
}

// Stats returns the server statistics document.
func (c *Client) Stats(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.do(ctx, http.MethodGet, "/stats", nil, &out)
	return out, err
}

func reservationPath(cohort int, action string) string {
	p := "/reservation/" + strconv.Itoa(cohort)
	if action != "" {
		p += "/" + action
	}
	return p
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	} else if c.requester != "" {
		req.Header.Set(c.header, c.requester)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var e types.ErrorResponse
	if err := json.Unmarshal(raw, &e); err != nil || e.Code == "" {
		return fmt.Errorf("%w: %d %s", ErrUnexpectedStatus, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return &APIError{Status: resp.StatusCode, Code: e.Code, Message: e.Message}
}
