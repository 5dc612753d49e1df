// Package slack sends evidence requests to the compliance review channel
// through an incoming webhook. Message wording lives here, not in the
// dispatch core: the core supplies only the customer identity and the
// missing-evidence set.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cddflow/internal/assessment"
	dErrors "cddflow/pkg/domain-errors"
)

const defaultTimeout = 10 * time.Second

// plainLanguage maps evidence kinds to the wording reviewers see.
var plainLanguage = map[assessment.EvidenceKind]string{
	assessment.EvidenceSourceOfFunds:   "proof of source of funds",
	assessment.EvidenceSourceOfWealth:  "proof of source of wealth",
	assessment.EvidencePEPStatus:       "politically exposed person (PEP) status declaration",
	assessment.EvidenceOccupation:      "occupation details",
	assessment.EvidenceAddressProof:    "proof of address",
	assessment.EvidenceBeneficialOwner: "beneficial ownership information",
}

// Client posts evidence requests to a Slack incoming webhook.
type Client struct {
	webhookURL string
	httpClient *http.Client
}

// New constructs a Slack client for the given webhook URL.
func New(webhookURL string) *Client {
	return &Client{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// payload is the webhook body shape.
type payload struct {
	Text string `json:"text"`
}

// Send posts an evidence request for the customer listing the missing items
// in their stable set order.
func (c *Client) Send(ctx context.Context, customerID string, missing assessment.EvidenceSet) error {
	if c.webhookURL == "" {
		return dErrors.New(dErrors.CodeChannel, "slack webhook URL not configured")
	}

	body, err := json.Marshal(payload{Text: composeMessage(customerID, missing)})
	if err != nil {
		return dErrors.Wrap(dErrors.CodeChannel, "marshal slack payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return dErrors.Wrap(dErrors.CodeChannel, "build slack request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return dErrors.Wrap(dErrors.CodeChannel, "send slack message", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return dErrors.New(dErrors.CodeChannel,
			fmt.Sprintf("slack webhook returned status %d", resp.StatusCode))
	}
	return nil
}

// composeMessage writes the review-channel message: a heading, the customer,
// the missing items in plain language, and a clear ask.
func composeMessage(customerID string, missing assessment.EvidenceSet) string {
	var b strings.Builder
	b.WriteString("*CDD Evidence Request*\n")
	fmt.Fprintf(&b, "CDD review initiated for customer %s.\n", customerID)
	b.WriteString("The following information is missing and required to proceed:\n")
	for _, kind := range missing {
		wording, ok := plainLanguage[kind]
		if !ok {
			wording = strings.ToLower(strings.ReplaceAll(kind.String(), "_", " "))
		}
		fmt.Fprintf(&b, "- %s\n", wording)
	}
	b.WriteString("Please request these documents from the customer and update the case once received.")
	return b.String()
}
