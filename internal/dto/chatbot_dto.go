package dto

import "time"

type SendChatRequest struct {
	ChatIndex int    `json:"chat_index" validate:"gte=0"`
	Chat      string `json:"chat" validate:"required,notblank,max=4000"`
}

type SendChatResponse struct {
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	Route     string `json:"route,omitempty"`
	Persisted bool   `json:"persisted"`
}

type ChatHistoryItem struct {
	Role      string    `json:"role"`
	Chat      string    `json:"chat"`
	CreatedAt time.Time `json:"created_at"`
}
