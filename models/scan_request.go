package models

type StartScanResponse struct {
	SessionId string `json:"session_id"`
	Nonce     string `json:"nonce"`
}

type DecodeRequest struct {
	SessionId   string `json:"session_id"`
	Nonce       string `json:"nonce"`
	Payload     string `json:"payload"`
	SelfieImage string `json:"selfie_image,omitempty"` // Base64 encoded image
}

type ValidateUidRequest struct {
	Uid string `json:"uid"`
}

type ValidateUidResponse struct {
	Valid bool `json:"valid"`
}
