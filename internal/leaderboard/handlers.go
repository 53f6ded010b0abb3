package leaderboard

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

const defaultLimit = 20

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/", authMiddleware, func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", strconv.Itoa(defaultLimit)))
		if err != nil || limit <= 0 || limit > 100 {
			return fiber.NewError(fiber.StatusBadRequest, "limit must be 1-100")
		}

		entries, err := svc.Standings(c.Context(), limit)
		if err != nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
		}
		if entries == nil {
			entries = []Entry{}
		}
		return c.JSON(entries)
	})

	r.Get("/:userID", authMiddleware, func(c *fiber.Ctx) error {
		entry, err := svc.UserEntry(c.Context(), c.Params("userID"))
		if err != nil {
			if errors.Is(err, ErrNotRanked) {
				return fiber.NewError(fiber.StatusNotFound, err.Error())
			}
			return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
		}
		return c.JSON(entry)
	})
}
