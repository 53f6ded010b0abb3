package emergency

import (
	"errors"

	"github.com/Wethmal/RoadQualityAI/internal/hazard"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/contacts", authMiddleware, func(c *fiber.Ctx) error {
		var req Contact
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if req.Name == "" || req.Phone == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name and phone required")
		}
		req.UserID, _ = c.Locals("user_id").(string)

		contact, err := svc.AddContact(c.Context(), req)
		if err != nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(contact)
	})

	r.Get("/contacts", authMiddleware, func(c *fiber.Ctx) error {
		userID, _ := c.Locals("user_id").(string)
		contacts, err := svc.Contacts(c.Context(), userID)
		if err != nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
		}
		if contacts == nil {
			contacts = []Contact{}
		}
		return c.JSON(contacts)
	})

	r.Delete("/contacts/:id", authMiddleware, func(c *fiber.Ctx) error {
		userID, _ := c.Locals("user_id").(string)
		if err := svc.DeleteContact(c.Context(), userID, c.Params("id")); err != nil {
			if errors.Is(err, hazard.ErrStorageUnavailable) {
				return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
			}
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Post("/sos", authMiddleware, func(c *fiber.Ctx) error {
		var req struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		userID, _ := c.Locals("user_id").(string)

		if err := svc.TriggerSOS(c.Context(), userID, "", req.Latitude, req.Longitude, 0); err != nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
		}
		return c.SendStatus(fiber.StatusCreated)
	})

	r.Get("/sos", authMiddleware, func(c *fiber.Ctx) error {
		userID, _ := c.Locals("user_id").(string)
		events, err := svc.Events(c.Context(), userID)
		if err != nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
		}
		if events == nil {
			events = []SOSEvent{}
		}
		return c.JSON(events)
	})
}
