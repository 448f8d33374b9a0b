package domain

// DTOs (Data Transfer Objects) - Domain layer request/response structures

type (
	// ChatRequest struct - One inbound user message for a session
	ChatRequest struct {
		SessionID string
		Message   string
	}

	// ChatReply struct - Reply returned to the caller of the chat use case
	ChatReply struct {
		Reply      string
		TokensUsed int
	}

	// LineWebhookRequest struct - Domain LINE webhook request DTO
	LineWebhookRequest struct {
		Events []LineWebhookEvent
	}

	// LineReplyMessageRequest struct - Domain LINE reply message request DTO
	LineReplyMessageRequest struct {
		ReplyToken string
		Messages   []LineOutgoingMessage
	}

	// LinePushMessageRequest struct - Domain LINE push message request DTO
	LinePushMessageRequest struct {
		To       string
		Messages []LineOutgoingMessage
	}

	// LineOutgoingMessage struct - Domain LINE outgoing message DTO
	LineOutgoingMessage struct {
		Type LineMessageType
		Text string
	}

	// LineMessageResponse struct - Domain LINE API response DTO
	LineMessageResponse struct {
		Status  string
		Message string
	}
)
