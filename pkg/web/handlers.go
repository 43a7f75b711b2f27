package web

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/mkarlsen/hearth/pkg/hub"
)

// Settings is the tunable subset of the assistant's configuration.
// All fields apply live, without restart.
type Settings struct {
	WakeEnabled      *bool    `json:"wake_enabled,omitempty"`
	Sensitivity      *float64 `json:"sensitivity,omitempty"`
	VoiceThreshold   *float64 `json:"voice_threshold,omitempty"`
	SilenceTimeoutMs *int     `json:"silence_timeout_ms,omitempty"`
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.assistant.Status())
}

func (s *Server) handleGetSettings(c *fiber.Ctx) error {
	wakeEnabled := s.assistant.WakeEnabled()
	sensitivity := s.assistant.Sensitivity()
	voiceThreshold := s.assistant.VoiceThreshold()
	silenceMs := int(s.assistant.SilenceTimeout() / time.Millisecond)

	return c.JSON(Settings{
		WakeEnabled:      &wakeEnabled,
		Sensitivity:      &sensitivity,
		VoiceThreshold:   &voiceThreshold,
		SilenceTimeoutMs: &silenceMs,
	})
}

func (s *Server) handlePostSettings(c *fiber.Ctx) error {
	var req Settings
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid settings payload",
		})
	}

	if req.SilenceTimeoutMs != nil && *req.SilenceTimeoutMs <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "silence_timeout_ms must be positive",
		})
	}

	if req.WakeEnabled != nil {
		s.assistant.SetWakeEnabled(*req.WakeEnabled)
	}
	if req.Sensitivity != nil {
		s.assistant.SetSensitivity(*req.Sensitivity)
	}
	if req.VoiceThreshold != nil {
		s.assistant.SetVoiceThreshold(*req.VoiceThreshold)
	}
	if req.SilenceTimeoutMs != nil {
		s.assistant.SetSilenceTimeout(time.Duration(*req.SilenceTimeoutMs) * time.Millisecond)
	}

	s.logger.Info("settings updated")
	return s.handleGetSettings(c)
}

func (s *Server) handleConversation(c *fiber.Ctx) error {
	return c.JSON(s.assistant.Conversation())
}

type chatRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleChat(c *fiber.Ctx) error {
	var req chatRequest
	if err := c.BodyParser(&req); err != nil || req.Text == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "text required",
		})
	}

	reply, err := s.assistant.Chat(c.Context(), req.Text)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{"reply": reply})
}

// handleTrigger simulates the hardware button.
func (s *Server) handleTrigger(c *fiber.Ctx) error {
	s.assistant.PressButton()
	return c.JSON(fiber.Map{"state": s.assistant.State().String()})
}

func (s *Server) handleStatusWS(c *websocket.Conn) {
	// Send the current snapshot first so the panel renders without
	// waiting for a transition.
	c.WriteJSON(s.assistant.Status())

	client := hub.NewClient(s.statusHub, c)
	if client == nil {
		// Hub is shutting down; drop the connection.
		c.Close()
		return
	}
	client.Run()
}
