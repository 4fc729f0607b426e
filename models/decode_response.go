package models

type DecodeResponse struct {
	Record    *AadhaarRecord     `json:"record"`
	Photo     string             `json:"photo,omitempty"` // base64 PNG
	FaceMatch *FaceMatchResponse `json:"face_match,omitempty"`
}

type DecodeErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
