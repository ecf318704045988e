package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"parkir/internal/models"
)

// TestClient provides methods for testing the API
type TestClient struct {
	BaseURL    string
	Username   string
	Password   string
	HTTPClient *http.Client
}

// NewTestClient creates a new test client using the default operator account
func NewTestClient(baseURL string) *TestClient {
	return &TestClient{
		BaseURL:  baseURL,
		Username: OperatorUsername,
		Password: OperatorPassword,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// makeRequest makes an authenticated HTTP request and returns the response
func (c *TestClient) makeRequest(t *testing.T, method, path string, body interface{}) *http.Response {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, reqBody)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.SetBasicAuth(c.Username, c.Password)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}

	return resp
}

// RecordEntry records a vehicle entry and returns the issued ticket
func (c *TestClient) RecordEntry(t *testing.T, plate, vehicleType string) *models.EntryResponse {
	req := models.EntryRequest{
		PlateNumber: plate,
		VehicleType: vehicleType,
	}

	resp := c.makeRequest(t, "POST", "/api/parking/entry", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status 201, got %d. Body: %s", resp.StatusCode, string(body))
	}

	var entry models.EntryResponse
	if err := json.NewDecoder(resp.Body).Decode(&entry); err != nil {
		t.Fatalf("Failed to decode entry response: %v", err)
	}

	return &entry
}

// RecordEntryExpectStatus records an entry expecting a specific status code
func (c *TestClient) RecordEntryExpectStatus(t *testing.T, plate string, wantStatus int) {
	req := models.EntryRequest{PlateNumber: plate}

	resp := c.makeRequest(t, "POST", "/api/parking/entry", req)
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status %d, got %d. Body: %s", wantStatus, resp.StatusCode, string(body))
	}
}

// RecordExitByTicket closes a session by ticket number
func (c *TestClient) RecordExitByTicket(t *testing.T, ticketNumber, paymentMethod string) *models.ExitResponse {
	req := models.ExitRequest{
		TicketNumber:  ticketNumber,
		PaymentMethod: paymentMethod,
	}
	return c.recordExit(t, req)
}

// RecordExitByPlate closes a session by plate number
func (c *TestClient) RecordExitByPlate(t *testing.T, plate, paymentMethod string) *models.ExitResponse {
	req := models.ExitRequest{
		PlateNumber:   plate,
		PaymentMethod: paymentMethod,
	}
	return c.recordExit(t, req)
}

func (c *TestClient) recordExit(t *testing.T, req models.ExitRequest) *models.ExitResponse {
	resp := c.makeRequest(t, "POST", "/api/parking/exit", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status 200, got %d. Body: %s", resp.StatusCode, string(body))
	}

	var exit models.ExitResponse
	if err := json.NewDecoder(resp.Body).Decode(&exit); err != nil {
		t.Fatalf("Failed to decode exit response: %v", err)
	}

	return &exit
}

// CreateSpace provisions a parking space
func (c *TestClient) CreateSpace(t *testing.T, number, spaceType string, hourlyRate int64) *models.ParkingSpace {
	req := models.CreateSpaceRequest{
		SpaceNumber: number,
		SpaceType:   spaceType,
		HourlyRate:  hourlyRate,
	}

	resp := c.makeRequest(t, "POST", "/api/spaces", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status 201, got %d. Body: %s", resp.StatusCode, string(body))
	}

	var space models.ParkingSpace
	if err := json.NewDecoder(resp.Body).Decode(&space); err != nil {
		t.Fatalf("Failed to decode space response: %v", err)
	}

	return &space
}

// ListSpaces lists all parking spaces
func (c *TestClient) ListSpaces(t *testing.T) []models.ParkingSpace {
	resp := c.makeRequest(t, "GET", "/api/spaces", nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status 200, got %d. Body: %s", resp.StatusCode, string(body))
	}

	var spaces []models.ParkingSpace
	if err := json.NewDecoder(resp.Body).Decode(&spaces); err != nil {
		t.Fatalf("Failed to decode spaces response: %v", err)
	}

	return spaces
}

// DeleteSpace removes a parking space
func (c *TestClient) DeleteSpace(t *testing.T, id int64) {
	resp := c.makeRequest(t, "DELETE", fmt.Sprintf("/api/spaces/%d", id), nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status 204, got %d. Body: %s", resp.StatusCode, string(body))
	}
}

// ListParkedVehicles lists vehicles currently in the lot
func (c *TestClient) ListParkedVehicles(t *testing.T) []models.Vehicle {
	resp := c.makeRequest(t, "GET", "/api/vehicles", nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status 200, got %d. Body: %s", resp.StatusCode, string(body))
	}

	var vehicles []models.Vehicle
	if err := json.NewDecoder(resp.Body).Decode(&vehicles); err != nil {
		t.Fatalf("Failed to decode vehicles response: %v", err)
	}

	return vehicles
}

// GetDashboard fetches the occupancy and revenue summary
func (c *TestClient) GetDashboard(t *testing.T) *models.DashboardResponse {
	resp := c.makeRequest(t, "GET", "/api/dashboard", nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status 200, got %d. Body: %s", resp.StatusCode, string(body))
	}

	var dashboard models.DashboardResponse
	if err := json.NewDecoder(resp.Body).Decode(&dashboard); err != nil {
		t.Fatalf("Failed to decode dashboard response: %v", err)
	}

	return &dashboard
}

// HealthCheck checks if the API is healthy
func (c *TestClient) HealthCheck(t *testing.T) {
	resp := c.makeRequest(t, "GET", "/health", nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Health check failed with status %d", resp.StatusCode)
	}
}
