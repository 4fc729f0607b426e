package models

type FaceMatchResponse struct {
	Similarity float64 `json:"similarity"` // 0-1 similarity score
	Matched    bool    `json:"matched"`    // Whether faces match based on threshold
}
