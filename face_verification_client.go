package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go-aadhaar-scanner/models"
)

// DefaultFaceMatchThreshold is the similarity at or above which two faces are
// considered the same person.
const DefaultFaceMatchThreshold = 0.75

// FaceVerificationClient defines the interface for face verification operations
type FaceVerificationClient interface {
	// MatchFaces compares the card photo with a selfie, both base64 encoded.
	MatchFaces(ctx context.Context, cardPhoto, selfie string) (*models.FaceMatchResponse, error)

	// HealthCheck verifies the face matching service is available
	HealthCheck(ctx context.Context) error
}

// RegulaFaceClient implements the FaceVerificationClient interface
type RegulaFaceClient struct {
	baseURL    string
	threshold  float64
	httpClient *http.Client
}

// NewRegulaFaceClient creates a new instance of RegulaFaceClient
func NewRegulaFaceClient(baseURL string) *RegulaFaceClient {
	return &RegulaFaceClient{
		baseURL:   baseURL,
		threshold: DefaultFaceMatchThreshold,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type regulaImage struct {
	Type  int    `json:"type"`
	Data  string `json:"data"`
	Index int    `json:"index"`
}

type regulaMatchRequest struct {
	Images []regulaImage `json:"images"`
}

type regulaMatchResponse struct {
	Results []struct {
		Similarity float64 `json:"similarity"`
	} `json:"results"`
}

// Regula image types: 1 is a document printed photo, 3 a live capture.
const (
	regulaImageDocumentPrinted = 1
	regulaImageLive            = 3
)

// MatchFaces compares two face images using Regula Face API
func (c *RegulaFaceClient) MatchFaces(ctx context.Context, cardPhoto, selfie string) (*models.FaceMatchResponse, error) {
	url := fmt.Sprintf("%s/api/match", c.baseURL)

	requestBody := regulaMatchRequest{
		Images: []regulaImage{
			{Type: regulaImageDocumentPrinted, Data: cardPhoto, Index: 1},
			{Type: regulaImageLive, Data: selfie, Index: 2},
		},
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal match request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create match request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute match request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("face match failed with status %d: %s", resp.StatusCode, string(body))
	}

	var regulaResponse regulaMatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&regulaResponse); err != nil {
		return nil, fmt.Errorf("failed to decode match response: %w", err)
	}
	if len(regulaResponse.Results) == 0 {
		return nil, fmt.Errorf("face match returned no results")
	}

	similarity := regulaResponse.Results[0].Similarity
	response := &models.FaceMatchResponse{
		Similarity: similarity,
		Matched:    similarity >= c.threshold,
	}

	slog.Info("Face match completed", "similarity", similarity, "matched", response.Matched)
	return response, nil
}

// HealthCheck verifies the Regula Face API service is available
func (c *RegulaFaceClient) HealthCheck(ctx context.Context) error {
	url := fmt.Sprintf("%s/api/healthz", c.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute health check request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("health check failed with status %d: %s", resp.StatusCode, string(body))
	}

	slog.Info("Regula Face API health check passed")
	return nil
}
