package http

import (
	"context"
	"errors"

	"support-desk/internal/domain"
	"support-desk/internal/ports/input"
	"support-desk/pkg/validator"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// Pinger is implemented by backends the health check probes
type Pinger interface {
	Ping(ctx context.Context) error
}

// HTTPHandler struct - Primary/Driving adapter for HTTP
type HTTPHandler struct {
	srv         input.ChatService
	health      Pinger
	validator   validator.Validator
	showDetails bool
}

// New func - Creates new HTTP handler.
// showDetails exposes underlying error messages in 500 responses.
func New(srv input.ChatService, health Pinger, showDetails bool) *HTTPHandler {
	return &HTTPHandler{
		srv:         srv,
		health:      health,
		validator:   validator.New(),
		showDetails: showDetails,
	}
}

// HealthCheck godoc
// @Summary Health check
// @Description Reports whether the conversation store is reachable
// @Tags Health
// @Produce json
// @Success 200 {object} ResponseBody
// @Failure 500 {object} ResponseBody
// @Router /health [get]
func (hdl *HTTPHandler) HealthCheck(c *fiber.Ctx) error {
	if err := hdl.health.Ping(c.UserContext()); err != nil {
		logrus.Errorln(err)
		return c.Status(fiber.StatusInternalServerError).JSON(ResponseBody{Status: InternalServerError})
	}
	return c.Status(fiber.StatusOK).JSON(ResponseBody{Status: Success, Data: fiber.Map{"status": "ok"}})
}

// Chat godoc
// @Summary Send a chat message
// @Description Stores the message, resolves a reply from the documentation and stores the reply
// @Tags Chat
// @Accept application/json
// @Produce json
// @Param ChatRequest body ChatRequest true "Chat message"
// @Success 200 {object} ChatResponse
// @Failure 400 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/chat [post]
func (hdl *HTTPHandler) Chat(c *fiber.Ctx) error {
	var request ChatRequest
	if err := c.BodyParser(&request); err != nil {
		logrus.Debugf("Invalid chat body: %v", err)
		return missingChatFields(c)
	}
	if err := hdl.validator.ValidateStruct(request); err != nil {
		logrus.Debugf("Invalid chat request: %v", err)
		return missingChatFields(c)
	}

	reply, err := hdl.srv.Chat(c.UserContext(), domain.ChatRequest{
		SessionID: request.SessionID,
		Message:   request.Message,
	})
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return missingChatFields(c)
		}
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "Failed to process chat message",
			Message: detail(err, hdl.showDetails),
		})
	}

	return c.Status(fiber.StatusOK).JSON(ChatResponse{
		Reply:      reply.Reply,
		TokensUsed: reply.TokensUsed,
	})
}

func missingChatFields(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error:   "Missing required fields",
		Message: "sessionId and message are required",
	})
}

// GetConversation godoc
// @Summary Get conversation history
// @Description Returns every stored turn of a session in chronological order
// @Tags Chat
// @Produce json
// @Param sessionId path string true "Session ID"
// @Success 200 {object} ConversationResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/conversations/{sessionId} [get]
func (hdl *HTTPHandler) GetConversation(c *fiber.Ctx) error {
	turns, err := hdl.srv.Conversation(c.UserContext(), c.Params("sessionId"))
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error:   "Missing sessionId",
				Message: "sessionId is required",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "Failed to fetch conversation",
			Message: detail(err, hdl.showDetails),
		})
	}

	return c.Status(fiber.StatusOK).JSON(ConversationResponse{Messages: toMessageResponses(turns)})
}

// ListSessions godoc
// @Summary List sessions
// @Description Lists sessions by most recent activity
// @Tags Sessions
// @Produce json
// @Success 200 {object} SessionListResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/sessions [get]
func (hdl *HTTPHandler) ListSessions(c *fiber.Ctx) error {
	sessions, err := hdl.srv.Sessions(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "Failed to fetch sessions",
			Message: detail(err, hdl.showDetails),
		})
	}

	return c.Status(fiber.StatusOK).JSON(SessionListResponse{Sessions: toSessionResponses(sessions)})
}

// StartSession godoc
// @Summary Start a session
// @Description Generates and registers a new session identifier
// @Tags Sessions
// @Produce json
// @Success 200 {object} StartSessionResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/sessions [post]
func (hdl *HTTPHandler) StartSession(c *fiber.Ctx) error {
	session, err := hdl.srv.StartSession(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "Failed to create session",
			Message: detail(err, hdl.showDetails),
		})
	}

	return c.Status(fiber.StatusOK).JSON(StartSessionResponse{SessionID: session.ID})
}
