package trip

import (
	"errors"

	"github.com/Wethmal/RoadQualityAI/internal/motion"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, mgr *Manager, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/start", authMiddleware, func(c *fiber.Ctx) error {
		userID, _ := c.Locals("user_id").(string)
		if userID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "user required")
		}

		s, err := mgr.Start(userID)
		if err != nil {
			if errors.Is(err, ErrSessionActive) {
				return fiber.NewError(fiber.StatusConflict, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(s.Status())
	})

	r.Get("/", authMiddleware, func(c *fiber.Ctx) error {
		userID, _ := c.Locals("user_id").(string)
		trips, err := svc.UserTrips(c.Context(), userID)
		if err != nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
		}
		if trips == nil {
			trips = []Trip{}
		}
		return c.JSON(trips)
	})

	r.Get("/:id", authMiddleware, func(c *fiber.Ctx) error {
		s, err := ownedSession(c, mgr)
		if err != nil {
			return err
		}
		return c.JSON(s.Status())
	})

	r.Post("/:id/acceleration", authMiddleware, func(c *fiber.Ctx) error {
		s, err := ownedSession(c, mgr)
		if err != nil {
			return err
		}

		var sample motion.Sample
		if err := c.BodyParser(&sample); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := s.HandleAcceleration(c.Context(), sample); err != nil {
			return fiber.NewError(fiber.StatusConflict, err.Error())
		}
		return c.JSON(s.Status())
	})

	r.Post("/:id/location", authMiddleware, func(c *fiber.Ctx) error {
		s, err := ownedSession(c, mgr)
		if err != nil {
			return err
		}

		var sample LocationSample
		if err := c.BodyParser(&sample); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := s.HandleLocation(c.Context(), sample); err != nil {
			return fiber.NewError(fiber.StatusConflict, err.Error())
		}
		return c.JSON(s.Status())
	})

	r.Post("/:id/end", authMiddleware, func(c *fiber.Ctx) error {
		if _, err := ownedSession(c, mgr); err != nil {
			return err
		}

		record, stats, err := mgr.End(c.Context(), c.Params("id"))
		if err != nil {
			if errors.Is(err, ErrSessionNotActive) {
				return fiber.NewError(fiber.StatusConflict, err.Error())
			}
			// Persistence failed but the trip ended; report the local stats.
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": err.Error(),
				"stats": stats,
			})
		}
		return c.JSON(fiber.Map{"trip": record, "stats": stats})
	})
}

func ownedSession(c *fiber.Ctx, mgr *Manager) (*Session, error) {
	s, ok := mgr.Get(c.Params("id"))
	if !ok {
		return nil, fiber.NewError(fiber.StatusNotFound, "session not found")
	}
	userID, _ := c.Locals("user_id").(string)
	if s.UserID != userID {
		return nil, fiber.NewError(fiber.StatusForbidden, "not your session")
	}
	return s, nil
}
