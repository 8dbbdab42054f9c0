package api

import (
	"github.com/gofiber/fiber/v2"
)

// errorResponse is the JSON body of a failed request.
type errorResponse struct {
	Error string `json:"error"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleStats returns the curation health snapshot of the knowledge store.
func (s *Server) handleStats(c *fiber.Ctx) error {
	report, err := s.service.CurationStatus(c.Context())
	if err != nil {
		s.logger.Error("stats request failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "failed to compute store status"})
	}

	return c.JSON(report)
}
