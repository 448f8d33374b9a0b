package http

import (
	"errors"
	"net/http"
	"time"

	"support-desk/internal/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

var (
	// Success response
	Success = Status{Code: http.StatusOK, Message: []string{"Success"}}
	// InternalServerError response
	InternalServerError = Status{Code: http.StatusInternalServerError, Message: []string{"Internal Server Error"}}
)

// ResponseBody struct - Generic HTTP response wrapper
type ResponseBody struct {
	Status Status      `json:"status,omitempty"`
	Data   interface{} `json:"data,omitempty"`
}

// Status struct
type Status struct {
	Code    int      `json:"code,omitempty"`
	Message []string `json:"message,omitempty"`
}

// ErrorResponse struct - Error body of the chat API
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type (
	// ChatResponse struct - HTTP response DTO for POST /api/chat
	ChatResponse struct {
		Reply      string `json:"reply"`
		TokensUsed int    `json:"tokensUsed"`
	}

	// MessageResponse struct - One stored turn
	MessageResponse struct {
		Role      string    `json:"role"`
		Content   string    `json:"content"`
		CreatedAt time.Time `json:"created_at"`
	}

	// ConversationResponse struct - HTTP response DTO for GET /api/conversations/:sessionId
	ConversationResponse struct {
		Messages []MessageResponse `json:"messages"`
	}

	// SessionResponse struct - One registered session
	SessionResponse struct {
		ID        string    `json:"id"`
		CreatedAt time.Time `json:"created_at"`
		UpdatedAt time.Time `json:"updated_at"`
	}

	// SessionListResponse struct - HTTP response DTO for GET /api/sessions
	SessionListResponse struct {
		Sessions []SessionResponse `json:"sessions"`
	}

	// StartSessionResponse struct - HTTP response DTO for POST /api/sessions
	StartSessionResponse struct {
		SessionID string `json:"sessionId"`
	}
)

func toMessageResponses(turns []domain.Turn) []MessageResponse {
	messages := make([]MessageResponse, 0, len(turns))
	for _, turn := range turns {
		messages = append(messages, MessageResponse{
			Role:      string(turn.Role),
			Content:   turn.Content,
			CreatedAt: turn.CreatedAt,
		})
	}
	return messages
}

func toSessionResponses(sessions []domain.Session) []SessionResponse {
	result := make([]SessionResponse, 0, len(sessions))
	for _, session := range sessions {
		result = append(result, SessionResponse{
			ID:        session.ID,
			CreatedAt: session.CreatedAt,
			UpdatedAt: session.UpdatedAt,
		})
	}
	return result
}

// ErrorHandler returns the fiber error handler for unhandled errors.
// Error details are only exposed when showDetails is set.
func ErrorHandler(showDetails bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			code = fiberErr.Code
		}
		if code >= fiber.StatusInternalServerError {
			logrus.Errorf("Unhandled error on %s %s: %v", c.Method(), c.Path(), err)
			return c.Status(code).JSON(ErrorResponse{
				Error:   "Internal server error",
				Message: detail(err, showDetails),
			})
		}
		return c.Status(code).JSON(ErrorResponse{Error: err.Error()})
	}
}

func detail(err error, showDetails bool) string {
	if showDetails {
		return err.Error()
	}
	return "Something went wrong"
}
