package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gogobus/booking-gateway/internal/config"
	"github.com/gogobus/booking-gateway/internal/models"
	"github.com/gogobus/booking-gateway/pkg/jwt"
	"github.com/gogobus/booking-gateway/pkg/validator"
	"github.com/google/uuid"
	flag "github.com/spf13/pflag"
)

const sessionHeader = "X-Session-Token"

func main() {
	baseURL := flag.String("base-url", "", "running gateway to walk through a demo checkout (skipped when empty)")
	flag.Parse()

	fmt.Println("🧪 GOGOBUS Gateway Smoke Test")
	fmt.Println(strings.Repeat("=", 50))

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}
	fmt.Println("✅ Configuration loaded")
	fmt.Println()

	testPassengerValidator()
	testSessionTokens(cfg)

	if *baseURL != "" {
		testCheckoutWalk(strings.TrimRight(*baseURL, "/"))
	}

	fmt.Println(strings.Repeat("=", 50))
	fmt.Println("✅ Smoke test completed")
}

func testPassengerValidator() {
	fmt.Println("🧍 Testing Passenger Validator")
	fmt.Println("------------------------------")

	passengerValidator := validator.NewPassengerValidator()
	complete := models.Passenger{
		FirstName:      "Ana",
		LastName:       "Quispe",
		DocumentNumber: "45678912",
		Email:          "ana@example.com",
		Phone:          "987654321",
	}

	testCases := []struct {
		name     string
		mutate   func(p *models.Passenger)
		expected bool
	}{
		{"Complete passenger", func(p *models.Passenger) {}, true},
		{"Blank email", func(p *models.Passenger) { p.Email = "  " }, false},
		{"Invalid email", func(p *models.Passenger) { p.Email = "ana" }, false},
		{"Missing document", func(p *models.Passenger) { p.DocumentNumber = "" }, false},
		{"Missing phone", func(p *models.Passenger) { p.Phone = "" }, false},
	}

	passCount := 0
	for _, tc := range testCases {
		p := complete
		tc.mutate(&p)
		_, err := passengerValidator.Validate(p)

		status := "❌"
		if (err == nil) == tc.expected {
			status = "✅"
			passCount++
		}
		if err != nil {
			fmt.Printf("  %s %s → %v\n", status, tc.name, err)
		} else {
			fmt.Printf("  %s %s\n", status, tc.name)
		}
	}

	fmt.Printf("\n  Result: %d/%d tests passed\n\n", passCount, len(testCases))
}

func testSessionTokens(cfg *config.Config) {
	fmt.Println("🔐 Testing Session Tokens")
	fmt.Println("-------------------------")

	jwtService := jwt.NewService(cfg.Session.Secret, cfg.Session.TTL)
	sessionID := uuid.New()

	token, err := jwtService.GenerateSessionToken(sessionID)
	if err != nil {
		fmt.Printf("  ❌ Failed to generate session token: %v\n", err)
		return
	}
	fmt.Printf("  ✅ Session token generated (%d chars)\n", len(token))

	claims, err := jwtService.ValidateSessionToken(token)
	if err != nil {
		fmt.Printf("  ❌ Failed to validate session token: %v\n", err)
		return
	}
	if claims.SessionID != sessionID {
		fmt.Printf("  ❌ Session id mismatch: %s\n", claims.SessionID)
		return
	}
	fmt.Printf("  ✅ Session token validated\n")
	fmt.Printf("     - Session ID: %s\n", claims.SessionID)
	fmt.Printf("     - Expires: %s\n", claims.ExpiresAt.Time.Format("2006-01-02 15:04:05"))

	if _, err := jwtService.ValidateSessionToken(token + "x"); err == nil {
		fmt.Println("  ❌ Tampered token should be rejected")
	} else {
		fmt.Println("  ✅ Tampered token rejected")
	}

	fmt.Println()
}

type walker struct {
	baseURL string
	token   string
	client  *http.Client
}

func (w *walker) call(method, path string, body interface{}, dest interface{}) (int, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, w.baseURL+path, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if w.token != "" {
		req.Header.Set(sessionHeader, w.token)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if token := resp.Header.Get(sessionHeader); token != "" {
		w.token = token
	}
	if dest != nil {
		if err := json.NewDecoder(resp.Body).Decode(dest); err != nil && err != io.EOF {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}

func step(name string, status int, err error, want int) bool {
	if err != nil || status != want {
		fmt.Printf("  ❌ %s: status %d, error %v\n", name, status, err)
		return false
	}
	fmt.Printf("  ✅ %s\n", name)
	return true
}

func testCheckoutWalk(baseURL string) {
	fmt.Println("🚌 Walking a checkout against " + baseURL)
	fmt.Println("------------------------------------------")

	w := &walker{baseURL: baseURL, client: &http.Client{Timeout: 30 * time.Second}}

	status, err := w.call(http.MethodGet, "/health", nil, nil)
	if !step("Health", status, err, http.StatusOK) {
		return
	}

	var trips struct {
		Data   []models.Trip `json:"data"`
		Source string        `json:"source"`
	}
	status, err = w.call(http.MethodGet, "/api/v1/trips?origin=1&destination=2", nil, &trips)
	if !step("Search trips", status, err, http.StatusOK) {
		return
	}
	if len(trips.Data) == 0 {
		fmt.Println("  ⚠️  No trips found, stopping here")
		return
	}
	trip := trips.Data[0]
	fmt.Printf("     %d trips (%s), using %s\n", len(trips.Data), trips.Source, trip.ID)

	var seatMap struct {
		Data models.SeatMap `json:"data"`
	}
	status, err = w.call(http.MethodGet, "/api/v1/trips/"+trip.ID+"/seats", nil, &seatMap)
	if !step("Seat map", status, err, http.StatusOK) {
		return
	}

	seatID := ""
	for _, seat := range seatMap.Data.Seats {
		if seat.Status == models.SeatStatusAvailable {
			seatID = seat.ID
			break
		}
	}
	if seatID == "" {
		fmt.Println("  ⚠️  No available seat, stopping here")
		return
	}

	status, err = w.call(http.MethodPost, "/api/v1/trips/"+trip.ID+"/selection/seats", map[string]string{"seat_id": seatID}, nil)
	if !step("Select seat "+seatID, status, err, http.StatusOK) {
		return
	}

	passenger := models.Passenger{
		FirstName:      "Smoke",
		LastName:       "Test",
		DocumentNumber: "45678912",
		Email:          "smoke@example.com",
		Phone:          "987654321",
	}
	status, err = w.call(http.MethodPut, "/api/v1/trips/"+trip.ID+"/selection/passengers/"+seatID, passenger, nil)
	if !step("Save passenger", status, err, http.StatusOK) {
		return
	}

	var summary models.CheckoutSummary
	status, err = w.call(http.MethodPost, "/api/v1/trips/"+trip.ID+"/selection/continue", nil, &summary)
	if !step("Continue to checkout", status, err, http.StatusOK) {
		return
	}
	fmt.Printf("     Total: %.2f\n", summary.Total)

	var booking map[string]interface{}
	status, err = w.call(http.MethodPost, "/api/v1/bookings", models.BookingRequest{
		TripID:      trip.ID,
		SeatIDs:     []string{seatID},
		Passengers:  []models.Passenger{passenger},
		TotalAmount: summary.Total,
	}, &booking)
	if !step("Create booking", status, err, http.StatusCreated) {
		return
	}
	fmt.Printf("     Source: %v\n", booking["source"])

	status, err = w.call(http.MethodGet, "/api/v1/checkout/success", nil, nil)
	step("Success page", status, err, http.StatusOK)

	fmt.Println()
}
