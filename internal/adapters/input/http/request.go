package http

type (
	// ChatRequest struct - HTTP request DTO for POST /api/chat
	ChatRequest struct {
		SessionID string `json:"sessionId" validate:"required,notblank" form:"sessionId"`
		Message   string `json:"message" validate:"required,notblank" form:"message"`
	}
)
