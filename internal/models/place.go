package models

// Place is one row of the tourism dataset.
type Place struct {
	Place        string `json:"place"`
	Description  string `json:"description"`
	Location     string `json:"location"`
	OpeningHours string `json:"opening_hours"`
	Price        string `json:"price"`
	Row          int    `json:"row"`
}

// Blob is the rendered text of a place, ready to be embedded.
type Blob struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Turn is one answered question kept in conversation memory.
type Turn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type ChatRequest struct {
	Question  string `json:"question" binding:"required"`
	SessionID string `json:"session_id"`
}

type ChatResponse struct {
	Answer    string `json:"answer"`
	SessionID string `json:"session_id,omitempty"`
}
