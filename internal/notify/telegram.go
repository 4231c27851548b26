// Package notify pushes operational alerts to a Telegram ops channel:
// match candidates clearing the threshold and volunteers waiting for
// approval. The notifier is optional; when no bot token is configured the
// server simply runs without it.
package notify

import (
	"encoding/json"
	"fmt"

	"reunite/backend/internal/models"
	"reunite/backend/internal/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// Service relays events to a single configured ops chat.
type Service struct {
	BotAPI  *tgbotapi.BotAPI
	ChatID  int64
	Storage *storage.Service
	Log     *logrus.Logger
}

func NewService(token string, chatID int64, s *storage.Service, log *logrus.Logger) (*Service, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	log.WithField("bot", bot.Self.UserName).Info("telegram notifier authorized")

	return &Service{
		BotAPI:  bot,
		ChatID:  chatID,
		Storage: s,
		Log:     log,
	}, nil
}

// Run subscribes to the match event topic and relays every event to the ops
// chat. It never returns; start it on its own goroutine.
func (s *Service) Run() {
	pubsub := s.Storage.SubscribeMatchEvents()
	defer pubsub.Close()

	s.Log.Info("telegram notifier started")

	for msg := range pubsub.Channel() {
		var ev models.MatchEvent
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			s.Log.WithError(err).Error("failed to decode match event")
			continue
		}
		s.MatchFound(ev)
	}
}

// MatchFound alerts the ops chat about a candidate worth reviewing.
func (s *Service) MatchFound(ev models.MatchEvent) {
	text := fmt.Sprintf(
		"Possible match for *%s* (score %.2f)\nsearch request: `%s`\nsighting: `%s`",
		ev.MissingName, ev.Score, ev.SearchRequestID, ev.SightingID,
	)
	s.send(text)
}

// VolunteerPending alerts the ops chat that a registration is waiting for
// approval.
func (s *Service) VolunteerPending(v *models.Volunteer) {
	text := fmt.Sprintf("New volunteer *%s* (%s) is awaiting approval.", v.Name, v.City)
	s.send(text)
}

func (s *Service) send(text string) {
	msg := tgbotapi.NewMessage(s.ChatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := s.BotAPI.Send(msg); err != nil {
		s.Log.WithError(err).Error("failed to send telegram alert")
	}
}
