package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRegulaFaceClient_HealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/healthz" {
			t.Errorf("Expected path /api/healthz, got %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer server.Close()

	client := NewRegulaFaceClient(server.URL)
	require.NoError(t, client.HealthCheck(context.Background()))
}

func TestRegulaFaceClient_HealthCheck_Unavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("down"))
	}))
	defer server.Close()

	err := NewRegulaFaceClient(server.URL).HealthCheck(context.Background())
	require.ErrorContains(t, err, "status 503")
}

func TestRegulaFaceClient_MatchFaces(t *testing.T) {
	tests := []struct {
		name       string
		similarity float64
		matched    bool
	}{
		{"above threshold", 0.87, true},
		{"at threshold", DefaultFaceMatchThreshold, true},
		{"below threshold", 0.42, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/match" {
					t.Errorf("Expected path /api/match, got %s", r.URL.Path)
				}
				if r.Method != http.MethodPost {
					t.Errorf("Expected POST method, got %s", r.Method)
				}

				var req regulaMatchRequest
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					t.Errorf("failed to decode request: %v", err)
				}
				if len(req.Images) != 2 || req.Images[0].Data != "cardphoto" || req.Images[1].Data != "selfie" {
					t.Errorf("unexpected images in request: %+v", req.Images)
				}

				_ = json.NewEncoder(w).Encode(map[string]any{
					"results": []map[string]any{{"similarity": tt.similarity}},
				})
			}))
			defer server.Close()

			result, err := NewRegulaFaceClient(server.URL).MatchFaces(context.Background(), "cardphoto", "selfie")
			require.NoError(t, err)
			require.Equal(t, tt.similarity, result.Similarity)
			require.Equal(t, tt.matched, result.Matched)
		})
	}
}

func TestRegulaFaceClient_MatchFaces_Errors(t *testing.T) {
	t.Run("error status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("no face detected"))
		}))
		defer server.Close()

		_, err := NewRegulaFaceClient(server.URL).MatchFaces(context.Background(), "a", "b")
		require.ErrorContains(t, err, "no face detected")
	})

	t.Run("no results", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"results": []any{}})
		}))
		defer server.Close()

		_, err := NewRegulaFaceClient(server.URL).MatchFaces(context.Background(), "a", "b")
		require.ErrorContains(t, err, "no results")
	})

	t.Run("invalid body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("not json"))
		}))
		defer server.Close()

		_, err := NewRegulaFaceClient(server.URL).MatchFaces(context.Background(), "a", "b")
		require.ErrorContains(t, err, "failed to decode match response")
	})

	t.Run("cancelled context", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer server.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err := NewRegulaFaceClient(server.URL).MatchFaces(ctx, "a", "b")
		require.Error(t, err)
	})
}

func TestNewRegulaFaceClient(t *testing.T) {
	baseURL := "http://localhost:41101"
	client := NewRegulaFaceClient(baseURL)

	require.NotNil(t, client)
	require.Equal(t, baseURL, client.baseURL)
	require.Equal(t, DefaultFaceMatchThreshold, client.threshold)
	require.NotNil(t, client.httpClient)
}
