package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"support-desk/internal/domain"
	"support-desk/internal/ports/input"
	"support-desk/internal/ports/output"

	"github.com/sirupsen/logrus"
)

const (
	lineHelpText    = "Ask me anything about your account, passwords, refunds, plans, payments or our API.\n\nCommands:\n/help - Show this message\n/about - About this assistant"
	lineAboutText   = "Support assistant answering from our help center documentation."
	lineWelcomeText = "Welcome! I'm the support assistant. Ask a question or type /help to get started."
)

// LineWebhookService struct - Application service answering support questions sent over LINE
type LineWebhookService struct {
	lineClient output.LineClient
	chat       input.ChatService
}

// NewLineWebhookService func - Creates new LINE webhook service
func NewLineWebhookService(lineClient output.LineClient, chat input.ChatService) *LineWebhookService {
	return &LineWebhookService{
		lineClient: lineClient,
		chat:       chat,
	}
}

// HandleWebhook func - Use case: answer LINE questions and welcome new followers
func (s *LineWebhookService) HandleWebhook(ctx context.Context, request domain.LineWebhookRequest) error {
	for _, event := range request.Events {
		var err error
		switch event.Kind {
		case domain.LineEventQuestion:
			err = s.answer(ctx, event)
		case domain.LineEventFollow:
			err = s.welcome(ctx, event)
		default:
			logrus.Infof("Unhandled LINE event kind: %s", event.Kind)
		}
		if err != nil {
			logrus.Errorf("Failed to handle LINE %s event for %s: %v", event.Kind, event.Question.SessionID, err)
			return err
		}
	}

	return nil
}

// answer - Routes a question through the chat use case, commands are answered locally
func (s *LineWebhookService) answer(ctx context.Context, event domain.LineWebhookEvent) error {
	text := strings.TrimSpace(event.Question.Message)
	if text == "" {
		return nil
	}

	var replyText string
	if strings.HasPrefix(text, "/") {
		replyText = s.handleCommand(text)
	} else {
		reply, err := s.chat.Chat(ctx, domain.ChatRequest{SessionID: event.Question.SessionID, Message: text})
		switch {
		case err == nil:
			replyText = reply.Reply
		case errors.Is(err, domain.ErrStorage):
			replyText = TechnicalDifficultiesReply
		default:
			return fmt.Errorf("failed to answer message: %w", err)
		}
	}

	if event.ReplyToken == "" {
		return nil
	}

	_, err := s.lineClient.ReplyMessage(ctx, domain.LineReplyMessageRequest{
		ReplyToken: event.ReplyToken,
		Messages:   []domain.LineOutgoingMessage{{Type: domain.LineMessageTypeText, Text: replyText}},
	})
	if err != nil {
		return fmt.Errorf("failed to send reply: %w", err)
	}
	return nil
}

// handleCommand - Local commands never reach the conversation store
func (s *LineWebhookService) handleCommand(text string) string {
	parts := strings.Fields(text)
	command := strings.ToLower(parts[0])

	switch command {
	case "/help":
		return lineHelpText
	case "/about":
		return lineAboutText
	default:
		return fmt.Sprintf("Unknown command: %s\nType /help for available commands", command)
	}
}

// welcome - Pushes the greeting to a new follower
func (s *LineWebhookService) welcome(ctx context.Context, event domain.LineWebhookEvent) error {
	logrus.Infof("User followed: userID=%s", event.UserID)

	_, err := s.lineClient.PushMessage(ctx, domain.LinePushMessageRequest{
		To:       event.UserID,
		Messages: []domain.LineOutgoingMessage{{Type: domain.LineMessageTypeText, Text: lineWelcomeText}},
	})
	if err != nil {
		return fmt.Errorf("failed to send welcome message: %w", err)
	}
	return nil
}
