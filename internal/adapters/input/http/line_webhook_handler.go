package http

import (
	"encoding/json"
	"strings"

	"support-desk/internal/domain"
	"support-desk/internal/ports/input"

	"github.com/gofiber/fiber/v2"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
	"github.com/sirupsen/logrus"
)

const lineSignatureHeader = "X-Line-Signature"

// LineWebhookHandler struct - Primary/Driving adapter turning LINE callbacks into support questions
type LineWebhookHandler struct {
	service       input.LineWebhookService
	channelSecret string
}

// NewLineWebhookHandler func - Creates new LINE webhook handler
func NewLineWebhookHandler(service input.LineWebhookService, channelSecret string) *LineWebhookHandler {
	return &LineWebhookHandler{
		service:       service,
		channelSecret: channelSecret,
	}
}

// HandleWebhook godoc
// @Summary LINE Webhook
// @Description Answers LINE text messages from the documentation and welcomes new followers
// @Tags LINE
// @Accept application/json
// @Produce json
// @Param X-Line-Signature header string true "Request signature"
// @Success 200 {object} ResponseBody
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /webhook/line [post]
func (h *LineWebhookHandler) HandleWebhook(c *fiber.Ctx) error {
	body := c.Body()
	if !webhook.ValidateSignature(h.channelSecret, c.Get(lineSignatureHeader), body) {
		logrus.Warnf("Rejected LINE callback with invalid signature from %s", c.IP())
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "Invalid signature"})
	}

	var callback webhook.CallbackRequest
	if err := json.Unmarshal(body, &callback); err != nil {
		logrus.Errorf("Failed to decode LINE callback: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "Invalid callback body"})
	}

	events := make([]domain.LineWebhookEvent, 0, len(callback.Events))
	for _, event := range callback.Events {
		if mapped, ok := toSupportEvent(event); ok {
			events = append(events, mapped)
		}
	}

	if err := h.service.HandleWebhook(c.UserContext(), domain.LineWebhookRequest{Events: events}); err != nil {
		logrus.Errorf("Failed to handle LINE callback: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "Failed to process webhook"})
	}

	return c.Status(fiber.StatusOK).JSON(ResponseBody{Status: Success})
}

// toSupportEvent keeps text messages and follows; everything else is dropped here
func toSupportEvent(event webhook.EventInterface) (domain.LineWebhookEvent, bool) {
	switch e := event.(type) {
	case webhook.MessageEvent:
		text, ok := e.Message.(webhook.TextMessageContent)
		if !ok || strings.TrimSpace(text.Text) == "" {
			logrus.Debugf("Ignoring LINE message %T", e.Message)
			return domain.LineWebhookEvent{}, false
		}
		sessionID, ok := lineSessionID(e.Source)
		if !ok {
			logrus.Warnf("Ignoring LINE message from unknown source %T", e.Source)
			return domain.LineWebhookEvent{}, false
		}
		return domain.LineWebhookEvent{
			Kind:       domain.LineEventQuestion,
			ReplyToken: e.ReplyToken,
			UserID:     lineUserID(e.Source),
			Question: domain.ChatRequest{
				SessionID: sessionID,
				Message:   strings.TrimSpace(text.Text),
			},
		}, true
	case webhook.FollowEvent:
		userID := lineUserID(e.Source)
		if userID == "" {
			return domain.LineWebhookEvent{}, false
		}
		return domain.LineWebhookEvent{
			Kind:       domain.LineEventFollow,
			ReplyToken: e.ReplyToken,
			UserID:     userID,
		}, true
	default:
		logrus.Debugf("Ignoring LINE event %T", event)
		return domain.LineWebhookEvent{}, false
	}
}

// lineSessionID - one session per user chat, shared per group or room
func lineSessionID(source webhook.SourceInterface) (string, bool) {
	switch s := source.(type) {
	case webhook.GroupSource:
		return domain.LineGroupSession(s.GroupId), true
	case webhook.RoomSource:
		return domain.LineRoomSession(s.RoomId), true
	case webhook.UserSource:
		return domain.LineUserSession(s.UserId), s.UserId != ""
	default:
		return "", false
	}
}

func lineUserID(source webhook.SourceInterface) string {
	switch s := source.(type) {
	case webhook.UserSource:
		return s.UserId
	case webhook.GroupSource:
		return s.UserId
	case webhook.RoomSource:
		return s.UserId
	default:
		return ""
	}
}
