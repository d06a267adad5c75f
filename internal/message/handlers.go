package message

import (
	"github.com/floingsmoke/tigo/internal/auth"
	"github.com/floingsmoke/tigo/internal/shared/apperr"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/conversations", authMiddleware, func(c *fiber.Ctx) error {
		summaries, err := svc.ListConversations(c.Context(), auth.UserID(c))
		if err != nil {
			return apperr.ToFiber(err)
		}
		if summaries == nil {
			summaries = []ConversationSummary{}
		}
		return c.JSON(fiber.Map{"conversations": summaries})
	})

	r.Get("/conversations/:id/messages", authMiddleware, func(c *fiber.Ctx) error {
		conv, err := svc.OpenConversation(c.Context(), c.Params("id"), auth.UserID(c))
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(conv)
	})

	r.Post("/conversations/:id/messages", authMiddleware, func(c *fiber.Ctx) error {
		var body struct {
			Content string `json:"content"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		msg, err := svc.SendMessage(c.Context(), c.Params("id"), auth.UserID(c), body.Content)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": msg})
	})

	r.Get("/unread-count", authMiddleware, func(c *fiber.Ctx) error {
		count, err := svc.UnreadCount(c.Context(), auth.UserID(c))
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(fiber.Map{"count": count})
	})
}
