package server

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"fruitwheel/internal/wheel"
)

func (s *FiberServer) healthHandler(c *fiber.Ctx) error {
	health := fiber.Map{
		"database": s.db.Health(),
		"cache":    s.cache.Health(),
		"game": fiber.Map{
			"status":            "running",
			"rooms":             s.rooms.Count(),
			"connected_clients": s.hub.GetClientCount(),
		},
	}
	return c.JSON(health)
}

// Wheel handlers

func (s *FiberServer) getStateHandler(c *fiber.Ctx) error {
	state := s.room.Scheduler.State()
	return c.JSON(state)
}

type placeBetBody struct {
	UserID  string             `json:"user_id"`
	Amounts map[string]float64 `json:"amounts"`
}

func (s *FiberServer) placeBetHandler(c *fiber.Ctx) error {
	var body placeBetBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if body.UserID == "" {
		return c.Status(400).JSON(fiber.Map{
			"error": "User ID is required",
		})
	}

	amounts := make(map[wheel.Category]float64, len(body.Amounts))
	for name, amount := range body.Amounts {
		category, err := wheel.ParseCategory(name)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		amounts[category] = amount
	}

	bet, err := s.room.Desk.PlaceBet(c.Context(), body.UserID, amounts)
	if err != nil {
		return c.Status(betErrorStatus(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(bet)
}

func betErrorStatus(err error) int {
	switch {
	case errors.Is(err, wheel.ErrBettingClosed),
		errors.Is(err, wheel.ErrInsufficientBalance),
		errors.Is(err, wheel.ErrCategoryLimitExceeded):
		return 409
	default:
		return 400
	}
}

func (s *FiberServer) getBetHandler(c *fiber.Ctx) error {
	userID := c.Params("userId")
	if userID == "" {
		return c.Status(400).JSON(fiber.Map{
			"error": "User ID is required",
		})
	}
	bet, err := s.room.Desk.CurrentBet(c.Context(), userID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to load bet",
		})
	}
	if bet == nil {
		return c.Status(404).JSON(fiber.Map{
			"error": "No bet for current round",
		})
	}
	return c.JSON(bet)
}

func (s *FiberServer) getHistoryHandler(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)
	entries, err := s.redis.RecentHistory(c.Context(), limit)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to load history",
		})
	}
	return c.JSON(fiber.Map{
		"history": entries,
	})
}

// getRoundHandler replays any round's outcome. Outcomes are pure functions
// of the round id, so exposing them is an audit feature, not a leak: every
// client could compute the same answer offline.
func (s *FiberServer) getRoundHandler(c *fiber.Ctx) error {
	roundID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "Round ID must be an integer",
		})
	}
	outcome, err := s.room.Generator.OutcomeFor(roundID)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(outcome)
}

// User balance handlers

func (s *FiberServer) getUserBalanceHandler(c *fiber.Ctx) error {
	userID := c.Params("userId")
	if userID == "" {
		return c.Status(400).JSON(fiber.Map{
			"error": "User ID is required",
		})
	}
	balance, err := s.redis.Balance(c.Context(), userID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to read balance",
		})
	}
	return c.JSON(fiber.Map{
		"user_id": userID,
		"balance": balance,
	})
}

// setUserBalanceHandler overwrites a balance (for testing/admin).
func (s *FiberServer) setUserBalanceHandler(c *fiber.Ctx) error {
	userID := c.Params("userId")
	if userID == "" {
		return c.Status(400).JSON(fiber.Map{
			"error": "User ID is required",
		})
	}
	var body struct {
		Balance float64 `json:"balance"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := s.redis.SetBalance(c.Context(), userID, body.Balance); err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to set balance",
		})
	}
	return c.JSON(fiber.Map{
		"user_id": userID,
		"balance": body.Balance,
		"message": "Balance updated successfully",
	})
}
