package handlers

import (
	"github.com/seslichat/sesli/internal/types"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// SuccessResponse represents a generic success response
type SuccessResponse struct {
	Success string `json:"success"`
	Message string `json:"message"`
}

// HistoryResponse wraps a channel's full turn list
type HistoryResponse struct {
	History []types.Turn `json:"history"`
}

// InitDataResponse is the bootstrap payload for the web client
type InitDataResponse struct {
	Channels []types.ChannelInfo `json:"channels"`
	Models   []string            `json:"models"`
}
