package hazard

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/", func(c *fiber.Ctx) error {
		hazards, err := svc.Active(c.Context())
		if err != nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
		}
		if hazards == nil {
			hazards = []Hazard{}
		}
		return c.JSON(hazards)
	})

	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var body struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
			BumpForce float64 `json:"bump_force"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		userID, _ := c.Locals("user_id").(string)
		if userID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "user required")
		}

		h, err := svc.Report(c.Context(), userID, body.Latitude, body.Longitude, body.BumpForce, SourceUserReport)
		if err != nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(h)
	})

	r.Post("/:id/clean-pass", authMiddleware, func(c *fiber.Ctx) error {
		userID, _ := c.Locals("user_id").(string)
		if userID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "user required")
		}

		if err := svc.RegisterCleanPass(c.Context(), userID, c.Params("id")); err != nil {
			if errors.Is(err, ErrStorageUnavailable) {
				return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}
