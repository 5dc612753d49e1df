// Package zendesk opens CDD cases as Zendesk tickets. Ticket wording and
// the Zendesk wire format live here; the dispatch core only supplies the
// structured case request and expects a case reference back.
package zendesk

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cddflow/internal/assessment"
	dErrors "cddflow/pkg/domain-errors"
)

const defaultTimeout = 30 * time.Second

// Request is the structured case-creation request from the dispatcher.
type Request struct {
	CustomerID     string
	Decision       assessment.Decision
	RiskLevel      assessment.RiskLevel
	ReasonCodes    []string
	AMLAlertActive bool
	// EvidenceGap lists evidence still missing when the case was mandated
	// despite an incomplete file. Shown to reviewers in the ticket body.
	EvidenceGap assessment.EvidenceSet
	Summary     string
	// IdempotencyKey is forwarded to Zendesk so a retried create cannot
	// produce a second ticket even if our ledger state was lost.
	IdempotencyKey string
}

// CaseRef identifies a created case in the external system.
type CaseRef struct {
	ID  string
	URL string
}

// Client creates tickets through the Zendesk REST API using email/token
// basic auth.
type Client struct {
	subdomain  string
	email      string
	apiToken   string
	httpClient *http.Client
	baseURL    string
}

// Option configures the Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL; tests point it at a local server.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// New constructs a Zendesk client.
func New(subdomain, email, apiToken string, opts ...Option) *Client {
	c := &Client{
		subdomain:  subdomain,
		email:      email,
		apiToken:   apiToken,
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    fmt.Sprintf("https://%s.zendesk.com", subdomain),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type ticketRequest struct {
	Ticket ticket `json:"ticket"`
}

type ticket struct {
	Subject  string   `json:"subject"`
	Comment  comment  `json:"comment"`
	Tags     []string `json:"tags"`
	Priority string   `json:"priority"`
}

type comment struct {
	Body string `json:"body"`
}

type ticketResponse struct {
	Ticket struct {
		ID int64 `json:"id"`
	} `json:"ticket"`
}

// Create opens a ticket for the case request. Safe to call at most once per
// acquired ledger key; the Idempotency-Key header is belt and braces on the
// Zendesk side.
func (c *Client) Create(ctx context.Context, req Request) (*CaseRef, error) {
	if c.subdomain == "" || c.email == "" || c.apiToken == "" {
		return nil, dErrors.New(dErrors.CodeChannel, "zendesk credentials not configured")
	}

	body, err := json.Marshal(ticketRequest{Ticket: ticket{
		Subject:  subject(req),
		Comment:  comment{Body: ticketBody(req)},
		Tags:     tags(req),
		Priority: "normal",
	}})
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeChannel, "marshal zendesk ticket", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v2/tickets.json", bytes.NewReader(body))
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeChannel, "build zendesk request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Basic "+c.basicAuth())
	if req.IdempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeChannel, "create zendesk ticket", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, dErrors.New(dErrors.CodeChannel,
			fmt.Sprintf("zendesk returned status %d", resp.StatusCode))
	}

	var created ticketResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeChannel, "decode zendesk response", err)
	}

	ticketID := strconv.FormatInt(created.Ticket.ID, 10)
	return &CaseRef{
		ID:  ticketID,
		URL: fmt.Sprintf("https://%s.zendesk.com/agent/tickets/%s", c.subdomain, ticketID),
	}, nil
}

func (c *Client) basicAuth() string {
	return base64.StdEncoding.EncodeToString(
		[]byte(c.email + "/token:" + c.apiToken))
}

// subject follows the established case-naming convention:
// "CDD <decision>: Customer <id> (<risk>) - <first two reason codes>".
func subject(req Request) string {
	head := fmt.Sprintf("CDD %s: Customer %s (%s)", req.Decision, req.CustomerID, req.RiskLevel)
	codes := req.ReasonCodes
	if len(codes) > 2 {
		codes = codes[:2]
	}
	if len(codes) == 0 {
		return head
	}
	return head + " - " + strings.Join(codes, ", ")
}

func ticketBody(req Request) string {
	var b strings.Builder
	b.WriteString("CDD Case\n\n")
	fmt.Fprintf(&b, "Customer: %s\n", req.CustomerID)
	fmt.Fprintf(&b, "Decision: %s\n", req.Decision)
	fmt.Fprintf(&b, "Risk: %s\n", req.RiskLevel)
	fmt.Fprintf(&b, "Reasons: %s\n", strings.Join(req.ReasonCodes, ", "))
	if req.AMLAlertActive {
		b.WriteString("AML alert: ACTIVE\n")
	}
	if len(req.EvidenceGap) > 0 {
		fmt.Fprintf(&b, "Evidence still outstanding: %s\n", strings.Join(req.EvidenceGap.Strings(), ", "))
	}
	fmt.Fprintf(&b, "\nSummary:\n%s\n", req.Summary)
	return b.String()
}

func tags(req Request) []string {
	return []string{
		"cdd",
		"aml",
		strings.ToLower(req.Decision.String()),
		"risk_" + strings.ToLower(req.RiskLevel.String()),
		"customer_" + req.CustomerID,
	}
}
