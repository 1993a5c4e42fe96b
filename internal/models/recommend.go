package models

// RecommendRequest is the body of a recommendation request.
type RecommendRequest struct {
	Ingredients []Ingredient `json:"ingredients"`
	K           int          `json:"k,omitempty"`
}

// RecommendResponse is returned on a successful recommendation.
type RecommendResponse struct {
	Status          string    `json:"status"`
	Recommendations []*Recipe `json:"recommendations"`
}

// MessageResponse is the envelope for retrain results and all errors.
type MessageResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

const (
	// StatusSuccess marks a successful response envelope.
	StatusSuccess = "success"
	// StatusError marks a failed response envelope.
	StatusError = "error"
)
