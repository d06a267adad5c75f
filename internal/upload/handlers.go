package upload

import (
	"github.com/floingsmoke/tigo/internal/auth"
	"github.com/floingsmoke/tigo/internal/shared/apperr"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/:kind", authMiddleware, func(c *fiber.Ctx) error {
		header, err := c.FormFile("photo")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "photo file required")
		}
		photo, err := svc.SavePhoto(c.Context(), auth.UserID(c), c.Params("kind"), header.Filename, header.Size)
		if err != nil {
			return apperr.ToFiber(err)
		}
		if err := c.SaveFile(header, photo.Path); err != nil {
			return apperr.ToFiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"photo": photo})
	})
}
