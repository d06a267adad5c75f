package auth

import (
	"strings"

	"github.com/floingsmoke/tigo/internal/shared/apperr"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/register", func(c *fiber.Ctx) error {
		var req RegisterRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		user, tokens, err := svc.Register(c.Context(), req)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"user": user, "tokens": tokens})
	})

	r.Post("/login", func(c *fiber.Ctx) error {
		var req LoginRequest
		if err := c.BodyParser(&req); err != nil || req.Email == "" || req.Password == "" {
			return fiber.NewError(fiber.StatusBadRequest, "email and password required")
		}
		user, tokens, err := svc.Login(c.Context(), req)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}
		return c.JSON(fiber.Map{"user": user, "tokens": tokens})
	})

	r.Post("/refresh", func(c *fiber.Ctx) error {
		var req RefreshRequest
		if err := c.BodyParser(&req); err != nil || req.RefreshToken == "" {
			return fiber.NewError(fiber.StatusBadRequest, "refresh_token required")
		}

		userID, err := svc.ValidateRefreshToken(c.Context(), req.RefreshToken)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}

		resp, err := svc.GenerateTokens(c.Context(), userID)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(resp)
	})

	r.Get("/me", authMiddleware, func(c *fiber.Ctx) error {
		user, err := svc.Me(c.Context(), UserID(c))
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(fiber.Map{"user": user})
	})

	r.Put("/profile", authMiddleware, func(c *fiber.Ctx) error {
		var patch ProfileUpdate
		if err := c.BodyParser(&patch); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		if strings.TrimSpace(patch.Name) == "" && strings.TrimSpace(patch.Phone) == "" &&
			strings.TrimSpace(patch.Email) == "" && strings.TrimSpace(patch.Password) == "" &&
			strings.TrimSpace(patch.ProfilePhoto) == "" {
			return fiber.NewError(fiber.StatusBadRequest, "nothing to update")
		}
		user, err := svc.UpdateProfile(c.Context(), UserID(c), patch)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(fiber.Map{"user": user})
	})
}
