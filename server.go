package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go-aadhaar-scanner/document/aadhaar"
	"go-aadhaar-scanner/models"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const ErrorInternal = "error:internal"
const ERR_MARSHAL = "failed to marshal response message"
const ERR_ISSUANCE_CONVERT = "failed to convert to issuance request"
const ERR_JWT_CREATION = "failed to create jwt"
const ERR_TOKEN_REMOVAL = "failed to remove token from storage"
const ERR_TOKEN_RETRIEVAL = "failed to get nonce from storage"
const ERR_INVALID_NONCE_SESSION = "invalid session or nonce"
const ERR_DECODE_REQUEST = "failed to decode request body"

// maxRequestBodySize bounds request bodies; a selfie image is the largest
// expected field.
const maxRequestBodySize = 10 << 20

type ServerConfig struct {
	Host           string `json:"host"`
	Port           int    `json:"port"`
	UseTls         bool   `json:"use_tls,omitempty"`
	TlsPrivKeyPath string `json:"tls_priv_key_path,omitempty"`
	TlsCertPath    string `json:"tls_cert_path,omitempty"`
}

type ServerState struct {
	irmaServerURL          string
	tokenStorage           TokenStorage
	jwtCreator             JwtCreator
	decoder                QrDecoder
	photoConverter         PhotoConverter
	converter              AadhaarDataConverter
	faceVerificationClient FaceVerificationClient
}

type Server struct {
	server *http.Server
	config ServerConfig
}

func (s *Server) ListenAndServe() error {
	if s.config.UseTls {
		slog.Info("Starting server with TLS", "host", s.config.Host, "port", s.config.Port, "cert", s.config.TlsCertPath, "key", s.config.TlsPrivKeyPath)
		return s.server.ListenAndServeTLS(s.config.TlsCertPath, s.config.TlsPrivKeyPath)
	} else {
		slog.Info("Starting server without TLS", "host", s.config.Host, "port", s.config.Port)
		return s.server.ListenAndServe()
	}
}

func (s *Server) Stop() error {
	slog.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := s.server.Shutdown(ctx)
	if err != nil {
		slog.Error("Error during server shutdown", "error", err)
	} else {
		slog.Info("Server shut down successfully")
	}
	return err
}

func NewServer(state *ServerState, config ServerConfig) (*Server, error) {
	slog.Info("Creating new server", "host", config.Host, "port", config.Port, "tls", config.UseTls)
	router := mux.NewRouter()

	router.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		slog.Debug("Health check request received")
		if err := writeJSON(w, http.StatusOK, map[string]bool{"ok": true}); err != nil {
			slog.Error("failed to write body to http response", "error", err)
		}
	})

	router.HandleFunc("/api/start-scan", func(w http.ResponseWriter, r *http.Request) {
		handleStartScan(state, w, r)
	})
	router.HandleFunc("/api/decode", func(w http.ResponseWriter, r *http.Request) {
		handleDecode(state, w, r)
	})
	router.HandleFunc("/api/validate-uid", func(w http.ResponseWriter, r *http.Request) {
		handleValidateUid(w, r)
	})
	router.HandleFunc("/api/issue-aadhaar", func(w http.ResponseWriter, r *http.Request) {
		handleIssueAadhaar(state, w, r)
	})

	slog.Debug("Registered all API routes")

	addr := fmt.Sprintf("%v:%v", config.Host, config.Port)
	srv := &http.Server{
		Handler:      router,
		Addr:         addr,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	slog.Info("Server created successfully", "address", addr)
	return &Server{
		server: srv,
		config: config,
	}, nil
}

type IssuanceResponse struct {
	Jwt           string `json:"jwt"`
	IrmaServerURL string `json:"irma_server_url"`
}

func handleStartScan(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	if !requirePOST(w, r) {
		return
	}

	slog.Info("Received request to start a scan session")

	sessionId := GenerateSessionId()

	// Generate an 8 byte nonce
	nonce, err := GenerateNonce(8)
	if err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, "failed to generate nonce", err)
		return
	}

	// The nonce is removed once the session has produced a result
	if err := state.tokenStorage.StoreToken(sessionId, nonce); err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, "failed to store nonce", err)
		return
	}
	slog.Debug("Nonce stored successfully", "session_id", sessionId)

	response := models.StartScanResponse{
		SessionId: sessionId,
		Nonce:     nonce,
	}

	if err := writeJSON(w, http.StatusOK, response); err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_MARSHAL, err)
		return
	}

	slog.Info("Scan session started successfully", "session_id", sessionId)
}

func handleDecode(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	if !requirePOST(w, r) {
		return
	}

	slog.Info("Received request to decode an Aadhaar QR payload")

	request, record, ok := decodeScannedPayload(state, w, r)
	if !ok {
		return
	}

	photo := convertPhoto(state, record)

	// Optional face matching, a failure here does not fail the decode
	var faceMatch *models.FaceMatchResponse
	if request.SelfieImage != "" && photo != "" {
		result, err := performFaceMatch(r.Context(), state, photo, request.SelfieImage)
		if err != nil {
			slog.Warn("Face matching failed", "error", err)
		} else {
			faceMatch = result
		}
	}

	if !consumeSession(w, state.tokenStorage, request.SessionId) {
		return
	}

	response := models.DecodeResponse{
		Record:    record,
		Photo:     photo,
		FaceMatch: faceMatch,
	}

	if err := writeJSON(w, http.StatusOK, response); err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_MARSHAL, err)
		return
	}

	slog.Info("Aadhaar QR decoded successfully", "session_id", request.SessionId, "format", record.Format)
}

func handleIssueAadhaar(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	if !requirePOST(w, r) {
		return
	}

	slog.Info("Received request to decode and issue an Aadhaar credential")

	request, record, ok := decodeScannedPayload(state, w, r)
	if !ok {
		return
	}

	photo := convertPhoto(state, record)

	slog.Debug("Converting Aadhaar record for issuance", "session_id", request.SessionId)
	issuanceRequest, err := state.converter.ToAadhaarData(record, photo)
	if err != nil {
		respondWithErr(w, http.StatusUnprocessableEntity, "record cannot be issued", ERR_ISSUANCE_CONVERT, err)
		return
	}

	// Optional face matching before issuance
	if request.SelfieImage != "" && issuanceRequest.Photo != "" {
		slog.Info("Performing face verification before Aadhaar issuance")
		faceMatch, err := performFaceMatch(r.Context(), state, issuanceRequest.Photo, request.SelfieImage)
		if err != nil {
			slog.Warn("Face matching failed during Aadhaar issuance", "error", err)
		} else if !faceMatch.Matched {
			respondWithErr(w, http.StatusBadRequest, "face verification failed", "face does not match card photo", fmt.Errorf("similarity: %f", faceMatch.Similarity))
			return
		} else {
			slog.Debug("Face verification passed", "similarity", faceMatch.Similarity)
		}
	}

	slog.Debug("Creating Aadhaar JWT", "session_id", request.SessionId)
	jwt, err := state.jwtCreator.CreateAadhaarJwt(issuanceRequest)
	if err != nil {
		respondWithErr(w, http.StatusInternalServerError, ERR_JWT_CREATION, ERR_JWT_CREATION, err)
		return
	}

	if !consumeSession(w, state.tokenStorage, request.SessionId) {
		return
	}

	response := IssuanceResponse{
		Jwt:           jwt,
		IrmaServerURL: state.irmaServerURL,
	}

	if err := writeJSON(w, http.StatusOK, response); err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_MARSHAL, err)
		return
	}

	slog.Info("Aadhaar credential issued successfully", "session_id", request.SessionId)
}

func handleValidateUid(w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	if !requirePOST(w, r) {
		return
	}

	var request models.ValidateUidRequest
	if err := decodeJSONBody(w, r, &request); err != nil {
		respondWithErr(w, http.StatusBadRequest, "invalid request", ERR_DECODE_REQUEST, err)
		return
	}

	response := models.ValidateUidResponse{Valid: aadhaar.ValidateAadhaarChecksum(request.Uid)}
	if err := writeJSON(w, http.StatusOK, response); err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_MARSHAL, err)
	}
}

// decodeScannedPayload reads the request, checks the session and decodes the
// payload. It writes the error response itself and reports false when the
// handler should stop. A payload that cannot be decoded leaves the session
// intact so the user can scan again.
func decodeScannedPayload(state *ServerState, w http.ResponseWriter, r *http.Request) (models.DecodeRequest, *models.AadhaarRecord, bool) {
	var request models.DecodeRequest
	if err := decodeJSONBody(w, r, &request); err != nil {
		respondWithErr(w, http.StatusBadRequest, "invalid request", ERR_DECODE_REQUEST, err)
		return request, nil, false
	}

	if err := validateSession(state.tokenStorage, request.SessionId, request.Nonce); err != nil {
		respondWithErr(w, http.StatusBadRequest, "invalid request", ERR_INVALID_NONCE_SESSION, err)
		return request, nil, false
	}

	record, err := state.decoder.Decode(request.Payload)
	if err != nil {
		respondWithDecodeErr(w, err)
		return request, nil, false
	}
	return request, record, true
}

// convertPhoto returns the card photo as base64 PNG, or "" when the record
// carries none or it cannot be converted.
func convertPhoto(state *ServerState, record *models.AadhaarRecord) string {
	if len(record.Photo) == 0 || state.photoConverter == nil {
		return ""
	}
	photo, err := state.photoConverter.ConvertToPNG(record.Photo)
	if err != nil {
		slog.Warn("Failed to convert card photo", "error", err, "size", len(record.Photo))
		return ""
	}
	return photo
}

func respondWithDecodeErr(w http.ResponseWriter, err error) {
	slog.Warn("Failed to decode QR payload", "error", err, "kind", aadhaar.KindOf(err))
	response := models.DecodeErrorResponse{
		Error:   aadhaar.KindOf(err).String(),
		Message: err.Error(),
	}
	var decodeErr *aadhaar.DecodeError
	if errors.As(err, &decodeErr) {
		response.Message = decodeErr.Reason
	}
	if err := writeJSON(w, http.StatusUnprocessableEntity, response); err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_MARSHAL, err)
	}
}

// -----------------------------------------------------------------------------------

// validateSession validates session and nonce
func validateSession(storage TokenStorage, sessionId, nonce string) error {
	slog.Debug("Validating session and nonce", "session_id", sessionId)
	storedNonce, err := storage.RetrieveToken(sessionId)
	if err != nil {
		slog.Warn("Failed to retrieve token from storage", "session_id", sessionId, "error", err)
		return fmt.Errorf("%s: %w", ERR_TOKEN_RETRIEVAL, err)
	}

	if storedNonce == "" || storedNonce != nonce {
		slog.Warn("Invalid nonce or session", "session_id", sessionId, "nonce_empty", storedNonce == "", "nonce_match", storedNonce == nonce)
		return fmt.Errorf("%s", ERR_INVALID_NONCE_SESSION)
	}

	slog.Debug("Session validation successful", "session_id", sessionId)
	return nil
}

// consumeSession removes the session token before a result is handed out.
// Of two concurrent requests for the same session only the one that removes
// the token continues.
func consumeSession(w http.ResponseWriter, storage TokenStorage, sessionId string) bool {
	slog.Debug("Removing session token", "session_id", sessionId)
	err := storage.RemoveToken(sessionId)
	switch {
	case err == nil:
		slog.Debug("Session token removed successfully", "session_id", sessionId)
		return true
	case errors.Is(err, ErrTokenNotFound):
		respondWithErr(w, http.StatusBadRequest, "invalid request", ERR_INVALID_NONCE_SESSION, err)
	default:
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_TOKEN_REMOVAL, err)
	}
	return false
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

func GenerateSessionId() string {
	return uuid.NewString()
}

// GenerateNonce Generates a random nonce
func GenerateNonce(i int) (string, error) {
	nonce := make([]byte, i)
	if _, err := rand.Read(nonce); err != nil {
		slog.Error("failed to generate nonce", "error", err)
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	hexString := hex.EncodeToString(nonce)
	slog.Debug("Nonce generated successfully", "length", i)
	return hexString, nil
}

func respondWithErr(w http.ResponseWriter, code int, responseBody string, logMsg string, e error) {
	slog.Error(logMsg, "error", e, "status_code", code, "response_body", responseBody)
	w.WriteHeader(code)
	if _, err := w.Write([]byte(responseBody)); err != nil {
		slog.Error("failed to write body to http response", "error", err)
	}
}

// helpers ------------

func closeRequestBody(r *http.Request) {
	if err := r.Body.Close(); err != nil {
		slog.Error("failed to close request body", "error", err)
	}
}

func requirePOST(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		slog.Debug("Non-POST request rejected", "method", r.Method, "path", r.URL.Path)
		respondWithErr(w, http.StatusMethodNotAllowed, "method not allowed", "invalid method", nil)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	slog.Debug("Writing JSON response", "status_code", status)
	payload, err := json.Marshal(v)
	if err != nil {
		slog.Error("Failed to marshal JSON payload", "error", err)
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(payload)
	if err != nil {
		slog.Error("failed to write body to http response", "error", err)
	} else {
		slog.Debug("JSON response written successfully", "status_code", status, "payload_size", len(payload))
	}
	return nil
}

// Face verification helpers

// performFaceMatch compares the card photo with the provided selfie
func performFaceMatch(ctx context.Context, state *ServerState, cardPhotoBase64, selfieBase64 string) (*models.FaceMatchResponse, error) {
	if state.faceVerificationClient == nil {
		return nil, fmt.Errorf("face verification client not configured")
	}

	if cardPhotoBase64 == "" {
		return nil, fmt.Errorf("card photo not available")
	}

	response, err := state.faceVerificationClient.MatchFaces(ctx, cardPhotoBase64, selfieBase64)
	if err != nil {
		return nil, fmt.Errorf("face matching failed: %w", err)
	}

	slog.Info("Face matching completed", "matched", response.Matched, "similarity", response.Similarity)
	return response, nil
}
