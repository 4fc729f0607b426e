package main

import (
	"bytes"
	"compress/zlib"
	"context"
	"encoding/json"
	"errors"
	"io"
	"math/big"
	"net/http"
	"sync"
	"testing"
	"time"

	"go-aadhaar-scanner/document/aadhaar"
	"go-aadhaar-scanner/models"

	"github.com/stretchr/testify/require"
)

var testConfig = ServerConfig{
	Host:           "localhost",
	Port:           8081,
	UseTls:         false,
	TlsCertPath:    "",
	TlsPrivKeyPath: "",
}

const testBaseURL = "http://localhost:8081"

const testPhotoPNG = "cGhvdG8="

const sampleXmlPayload = `<?xml version="1.0" encoding="UTF-8"?>
<PrintLetterBarcodeData uid="123456789012" name="Ravi Kumar Sharma" gender="M" dob="15-08-1990" co="S/O Ramesh Sharma" house="12" street="MG Road" vtc="Bengaluru" dist="Bengaluru Urban" state="Karnataka" pc="560038"/>`

type stateOpt func(*ServerState)

func withFaceClient(c FaceVerificationClient) stateOpt {
	return func(s *ServerState) { s.faceVerificationClient = c }
}

func withJwtCreator(c JwtCreator) stateOpt {
	return func(s *ServerState) { s.jwtCreator = c }
}

func startTestServer(t *testing.T, storage TokenStorage, opts ...stateOpt) *ServerState {
	t.Helper()

	testState := &ServerState{
		irmaServerURL:  "https://irma.example",
		tokenStorage:   storage,
		jwtCreator:     &fakeJwtCreator{jwt: "test-jwt"},
		decoder:        aadhaar.NewDecoder(),
		photoConverter: fakePhotoConverter{},
		converter:      AadhaarDataConverterImpl{},
	}
	for _, o := range opts {
		o(testState)
	}

	srv, err := NewServer(testState, testConfig)
	require.NoError(t, err)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.Errorf("server error: %v", err)
		}
	}()

	waitUntilHealthy(t, testBaseURL+"/api/health")
	t.Cleanup(func() {
		if err := srv.Stop(); err != nil {
			t.Logf("error shutting down server: %v", err)
		}
	})
	return testState
}

func waitUntilHealthy(t *testing.T, url string) {
	t.Helper()
	const maxAttempts = 50
	for i := 0; i < maxAttempts; i++ {
		if resp, err := http.Get(url); err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("server did not start in time")
}

func postJSON[T any](t *testing.T, url string, payload any) (*http.Response, []byte, *T) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewBuffer(b)
	}
	resp, err := http.Post(url, "application/json", body)
	require.NoError(t, err)
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var v T
	_ = json.Unmarshal(respBody, &v)

	return resp, respBody, &v
}

func mustStatus(t *testing.T, resp *http.Response, want int, body []byte) {
	t.Helper()
	require.Equalf(t, want, resp.StatusCode, "body: %s", body)
}

// start-scan bootstrap
func startScan(t *testing.T) (sessionID, nonce string) {
	t.Helper()
	resp, body, sr := postJSON[models.StartScanResponse](t, testBaseURL+"/api/start-scan", nil)
	mustStatus(t, resp, http.StatusOK, body)
	require.NotEmpty(t, sr.SessionId)
	require.NotEmpty(t, sr.Nonce)
	return sr.SessionId, sr.Nonce
}

func newReq(sessionId, nonce, payload string) models.DecodeRequest {
	return models.DecodeRequest{
		SessionId: sessionId,
		Nonce:     nonce,
		Payload:   payload,
	}
}

// securePayload builds a Secure QR digit string whose binary buffer carries
// a holder photo and a signature after the text fields.
func securePayload(t *testing.T) string {
	t.Helper()
	photo := bytes.Repeat([]byte{0xFF, 0x4F, 0xFF, 0x51}, 150)
	signature := bytes.Repeat([]byte{0xA5}, aadhaar.SignatureLength)

	inflated := []byte{0x02, 0x01, 0x00}
	for _, v := range []string{
		"234620190305150137123", "Ravi Kumar Sharma", "15-08-1990", "M",
		"S/O Ramesh Sharma", "Bengaluru Urban", "", "12", "Indiranagar", "560038",
		"Indiranagar", "Karnataka", "MG Road", "", "Bengaluru",
	} {
		inflated = append(inflated, byte(len(v)))
		inflated = append(inflated, v...)
	}
	inflated = append(inflated, photo...)
	inflated = append(inflated, signature...)

	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, err := w.Write(inflated)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return new(big.Int).SetBytes(buf.Bytes()).String()
}

// test doubles

type fakeJwtCreator struct {
	jwt string
	err error

	mu     sync.Mutex
	issued []models.AadhaarData
}

func (f *fakeJwtCreator) CreateAadhaarJwt(data models.AadhaarData) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.issued = append(f.issued, data)
	return f.jwt, nil
}

func (f *fakeJwtCreator) lastIssued() (models.AadhaarData, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.issued) == 0 {
		return models.AadhaarData{}, false
	}
	return f.issued[len(f.issued)-1], true
}

type fakePhotoConverter struct{}

func (fakePhotoConverter) ConvertToPNG(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("no photo")
	}
	return testPhotoPNG, nil
}

type fakeFaceClient struct {
	similarity float64
	err        error
}

func (f fakeFaceClient) MatchFaces(_ context.Context, cardPhoto, _ string) (*models.FaceMatchResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	if cardPhoto == "" {
		return nil, errors.New("empty card photo")
	}
	return &models.FaceMatchResponse{
		Similarity: f.similarity,
		Matched:    f.similarity >= DefaultFaceMatchThreshold,
	}, nil
}

func (f fakeFaceClient) HealthCheck(context.Context) error {
	return f.err
}
