package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// Error codes the gateway reports for tokens that will never work again.
// Anything else is treated as transient.
var permanentCodes = map[string]bool{
	"unregistered":  true,
	"invalid_token": true,
	"expired":       true,
}

// GatewayClient talks to the push-delivery gateway over HTTP. The gateway
// accepts a batch of messages and answers per-token results carrying an error
// classification; the dispatcher feeds it one message per call and fans the
// calls out concurrently.
type GatewayClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewGatewayClient(baseURL, apiKey string, httpClient *http.Client, logger *slog.Logger) *GatewayClient {
	return &GatewayClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: httpClient,
		logger:     logger.With("component", "push_gateway"),
	}
}

type gatewayRequest struct {
	Messages []Message `json:"messages"`
}

type gatewayResult struct {
	Token     string `json:"token"`
	Success   bool   `json:"success"`
	ErrorCode string `json:"error_code,omitempty"`
	Error     string `json:"error,omitempty"`
}

type gatewayResponse struct {
	Results []gatewayResult `json:"results"`
}

func (c *GatewayClient) Push(ctx context.Context, msg Message) error {
	body, err := json.Marshal(gatewayRequest{Messages: []Message{msg}})
	if err != nil {
		return fmt.Errorf("marshal push request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/send", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("push gateway call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("push gateway responded %d", resp.StatusCode)
	}

	var out gatewayResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("decode push response: %w", err)
	}
	if len(out.Results) == 0 {
		return fmt.Errorf("push gateway returned no result for token %s", TokenPrefix(msg.Token))
	}

	res := out.Results[0]
	if res.Success {
		return nil
	}
	if permanentCodes[res.ErrorCode] {
		return fmt.Errorf("%w: gateway code %s", ErrInvalidToken, res.ErrorCode)
	}
	return fmt.Errorf("delivery failed for %s: %s (%s)", TokenPrefix(msg.Token), res.Error, res.ErrorCode)
}
