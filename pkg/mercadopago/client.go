package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultAPIURL is the Mercado Pago checkout preferences endpoint
const DefaultAPIURL = "https://api.mercadopago.com/checkout/preferences"

// Client creates checkout preferences directly against Mercado Pago
type Client struct {
	apiURL        string
	accessToken   string
	publicBaseURL string
	titlePrefix   string
	client        *http.Client
}

// Config holds configuration for the Mercado Pago client
type Config struct {
	APIURL        string
	AccessToken   string
	PublicBaseURL string // origin used to build back_urls
	TitlePrefix   string
	Timeout       time.Duration
}

// NewClient creates a new Mercado Pago client
func NewClient(config Config) *Client {
	apiURL := config.APIURL
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	titlePrefix := config.TitlePrefix
	if titlePrefix == "" {
		titlePrefix = "GOGOBUS"
	}
	return &Client{
		apiURL:        apiURL,
		accessToken:   config.AccessToken,
		publicBaseURL: strings.TrimRight(config.PublicBaseURL, "/"),
		titlePrefix:   titlePrefix,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// PreferenceParams describes the booking being paid
type PreferenceParams struct {
	BookingID   string
	Amount      float64
	Currency    string
	Title       string
	AccessToken string // overrides the configured token when set
}

// Item is one line of a checkout preference
type Item struct {
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	CurrencyID string  `json:"currency_id"`
	UnitPrice  float64 `json:"unit_price"`
}

// BackURLs are the pages Mercado Pago returns the buyer to
type BackURLs struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Pending string `json:"pending"`
}

// PreferenceRequest is the body sent to the preferences endpoint
type PreferenceRequest struct {
	Items      []Item            `json:"items"`
	Metadata   map[string]string `json:"metadata"`
	BackURLs   BackURLs          `json:"back_urls"`
	AutoReturn string            `json:"auto_return"`
}

// PreferenceResponse holds the redirect fields Mercado Pago may return
type PreferenceResponse struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
	URL              string `json:"url"`
}

// RedirectURL picks the first known redirect field
func (r PreferenceResponse) RedirectURL() string {
	switch {
	case r.InitPoint != "":
		return r.InitPoint
	case r.SandboxInitPoint != "":
		return r.SandboxInitPoint
	default:
		return r.URL
	}
}

// BuildRequest assembles the preference body for a booking
func (c *Client) BuildRequest(params PreferenceParams) PreferenceRequest {
	title := params.Title
	if title == "" {
		title = fmt.Sprintf("%s - Reserva %s", c.titlePrefix, params.BookingID)
	}
	currency := params.Currency
	if currency == "" {
		currency = "PEN"
	}

	return PreferenceRequest{
		Items: []Item{
			{
				Title:      title,
				Quantity:   1,
				CurrencyID: currency,
				UnitPrice:  params.Amount,
			},
		},
		Metadata: map[string]string{"bookingId": params.BookingID},
		BackURLs: BackURLs{
			Success: fmt.Sprintf("%s/checkout/success?bookingId=%s", c.publicBaseURL, params.BookingID),
			Failure: fmt.Sprintf("%s/checkout/%s", c.publicBaseURL, params.BookingID),
			Pending: fmt.Sprintf("%s/checkout/%s", c.publicBaseURL, params.BookingID),
		},
		AutoReturn: "approved",
	}
}

// CreatePreference posts a checkout preference and returns the redirect URL
func (c *Client) CreatePreference(ctx context.Context, params PreferenceParams) (string, error) {
	token := params.AccessToken
	if token == "" {
		token = c.accessToken
	}
	if token == "" {
		return "", fmt.Errorf("mercado pago access token is not configured")
	}

	jsonData, err := json.Marshal(c.BuildRequest(params))
	if err != nil {
		return "", fmt.Errorf("failed to marshal preference request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create preference request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call mercado pago: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read mercado pago response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &Error{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var prefResp PreferenceResponse
	if err := json.Unmarshal(body, &prefResp); err != nil {
		return "", fmt.Errorf("failed to parse mercado pago response: %w", err)
	}

	return prefResp.RedirectURL(), nil
}

// Error is returned for non-2xx answers from Mercado Pago
type Error struct {
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("Mercado Pago error %d: %s", e.StatusCode, e.Body)
}
