package api

import "github.com/samcharles93/ggufcheck/internal/gguf"

// ValidationResponse is the body of POST /v1/validate and one entry of
// GET /v1/models.
type ValidationResponse struct {
	ID        string `json:"id"`
	Object    string `json:"object"`
	CreatedAt int64  `json:"created_at"`
	gguf.Report
}

type ListResponse struct {
	Object string               `json:"object"`
	Data   []ValidationResponse `json:"data"`
}

type ResponseError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}
