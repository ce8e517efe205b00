package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"trustbit/domain/entities"
	"trustbit/domain/interfaces"
)

// Client is an HTTP client for the third-party payment gateway used to top
// up wallets. All failures surface as entities.ErrGateway so the billing
// core never depends on gateway specifics.
type Client struct {
	httpClient *http.Client
	baseURL    string
	secretKey  string
}

// NewClient creates a new payment gateway client
func NewClient(baseURL, secretKey string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    baseURL,
		secretKey:  secretKey,
	}
}

type initializeRequest struct {
	Amount   int64  `json:"amount"`
	Customer string `json:"customer"`
}

type initializeResponse struct {
	Status bool `json:"status"`
	Data   struct {
		Reference        string `json:"reference"`
		AuthorizationURL string `json:"authorization_url"`
	} `json:"data"`
	Message string `json:"message"`
}

type verifyResponse struct {
	Status bool `json:"status"`
	Data   struct {
		Reference string `json:"reference"`
		Customer  string `json:"customer"`
		Amount    int64  `json:"amount"`
		Status    string `json:"status"`
	} `json:"data"`
	Message string `json:"message"`
}

// InitializeTransaction starts a funding transaction and returns the
// gateway's reference and redirect URL
func (c *Client) InitializeTransaction(ctx context.Context, userID uuid.UUID, amount int64) (*interfaces.FundingIntent, error) {
	if amount <= 0 {
		return nil, entities.ErrInvalidAmount
	}

	body, err := json.Marshal(initializeRequest{Amount: amount, Customer: userID.String()})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal initialize request: %w", err)
	}

	var resp initializeResponse
	if err := c.post(ctx, "/transaction/initialize", body, &resp); err != nil {
		return nil, err
	}

	if !resp.Status {
		return nil, fmt.Errorf("%w: %s", entities.ErrGateway, resp.Message)
	}

	return &interfaces.FundingIntent{
		Reference:   resp.Data.Reference,
		RedirectURL: resp.Data.AuthorizationURL,
		Amount:      amount,
	}, nil
}

// VerifyTransaction checks whether a funding transaction settled
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*interfaces.VerifiedPayment, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/transaction/verify/"+reference, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build verify request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrGateway, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: verify returned status %d", entities.ErrGateway, httpResp.StatusCode)
	}

	var resp verifyResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("%w: failed to decode verify response: %v", entities.ErrGateway, err)
	}

	if !resp.Status {
		return nil, fmt.Errorf("%w: %s", entities.ErrGateway, resp.Message)
	}

	// The customer is the user the transaction was initialized for; the
	// billing layer matches it against the confirming user
	customer, err := uuid.Parse(resp.Data.Customer)
	if err != nil {
		return nil, fmt.Errorf("%w: bad customer in verify response: %v", entities.ErrGateway, err)
	}

	return &interfaces.VerifiedPayment{
		Reference: resp.Data.Reference,
		UserID:    customer,
		Amount:    resp.Data.Amount,
		Settled:   resp.Data.Status == "success",
	}, nil
}

func (c *Client) post(ctx context.Context, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", entities.ErrGateway, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s returned status %d", entities.ErrGateway, path, httpResp.StatusCode)
	}

	if err := json.NewDecoder(httpResp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode gateway response: %v", entities.ErrGateway, err)
	}

	return nil
}
