package notification

import (
	"github.com/floingsmoke/tigo/internal/auth"
	"github.com/floingsmoke/tigo/internal/shared/apperr"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/", authMiddleware, func(c *fiber.Ctx) error {
		notifications, err := svc.List(c.Context(), auth.UserID(c))
		if err != nil {
			return apperr.ToFiber(err)
		}
		if notifications == nil {
			notifications = []Notification{}
		}
		return c.JSON(fiber.Map{"notifications": notifications})
	})

	r.Get("/unread-count", authMiddleware, func(c *fiber.Ctx) error {
		count, err := svc.UnreadCount(c.Context(), auth.UserID(c))
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(fiber.Map{"count": count})
	})

	r.Put("/read-all", authMiddleware, func(c *fiber.Ctx) error {
		if err := svc.MarkAllRead(c.Context(), auth.UserID(c)); err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(fiber.Map{"message": "all notifications marked as read"})
	})

	r.Put("/:id/read", authMiddleware, func(c *fiber.Ctx) error {
		if err := svc.MarkRead(c.Context(), c.Params("id"), auth.UserID(c)); err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(fiber.Map{"message": "notification marked as read"})
	})

	r.Delete("/:id", authMiddleware, func(c *fiber.Ctx) error {
		if err := svc.Delete(c.Context(), c.Params("id"), auth.UserID(c)); err != nil {
			return apperr.ToFiber(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}
