package mercadopago

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string) *Client {
	return NewClient(Config{
		APIURL:        url,
		AccessToken:   "TEST-token",
		PublicBaseURL: "https://gogobus.test/",
	})
}

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient(Config{})

	assert.Equal(t, DefaultAPIURL, client.apiURL)
	assert.Equal(t, "GOGOBUS", client.titlePrefix)
	assert.NotNil(t, client.client)
}

func TestBuildRequest(t *testing.T) {
	client := newTestClient("")

	req := client.BuildRequest(PreferenceParams{BookingID: "BK-1", Amount: 178})

	require.Len(t, req.Items, 1)
	assert.Equal(t, "GOGOBUS - Reserva BK-1", req.Items[0].Title)
	assert.Equal(t, 1, req.Items[0].Quantity)
	assert.Equal(t, "PEN", req.Items[0].CurrencyID)
	assert.Equal(t, 178.0, req.Items[0].UnitPrice)
	assert.Equal(t, "BK-1", req.Metadata["bookingId"])
	assert.Equal(t, "https://gogobus.test/checkout/success?bookingId=BK-1", req.BackURLs.Success)
	assert.Equal(t, "https://gogobus.test/checkout/BK-1", req.BackURLs.Failure)
	assert.Equal(t, "https://gogobus.test/checkout/BK-1", req.BackURLs.Pending)
	assert.Equal(t, "approved", req.AutoReturn)
}

func TestCreatePreference_InitPoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer TEST-token", r.Header.Get("Authorization"))

		var body PreferenceRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "BK-9", body.Metadata["bookingId"])

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"pref-1","init_point":"https://mp.test/init","sandbox_init_point":"https://mp.test/sandbox"}`))
	}))
	defer server.Close()

	url, err := newTestClient(server.URL).CreatePreference(context.Background(), PreferenceParams{BookingID: "BK-9", Amount: 89})
	require.NoError(t, err)
	assert.Equal(t, "https://mp.test/init", url)
}

func TestCreatePreference_FallbackKeys(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected string
	}{
		{"sandbox init point", `{"sandbox_init_point":"https://mp.test/sandbox"}`, "https://mp.test/sandbox"},
		{"plain url", `{"url":"https://mp.test/url"}`, "https://mp.test/url"},
		{"no known key", `{"id":"pref-2"}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			url, err := newTestClient(server.URL).CreatePreference(context.Background(), PreferenceParams{BookingID: "BK-1", Amount: 10})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, url)
		})
	}
}

func TestCreatePreference_Non2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"invalid access token"}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).CreatePreference(context.Background(), PreferenceParams{BookingID: "BK-1", Amount: 10})
	require.Error(t, err)

	var mpErr *Error
	require.True(t, errors.As(err, &mpErr))
	assert.Equal(t, http.StatusUnauthorized, mpErr.StatusCode)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "invalid access token")
}

func TestCreatePreference_TokenOverride(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer override", r.Header.Get("Authorization"))
		w.Write([]byte(`{"init_point":"https://mp.test/init"}`))
	}))
	defer server.Close()

	url, err := newTestClient(server.URL).CreatePreference(context.Background(), PreferenceParams{
		BookingID:   "BK-1",
		Amount:      10,
		AccessToken: "override",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://mp.test/init", url)
}

func TestCreatePreference_MissingToken(t *testing.T) {
	client := NewClient(Config{APIURL: "http://127.0.0.1:1"})

	_, err := client.CreatePreference(context.Background(), PreferenceParams{BookingID: "BK-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access token")
}
