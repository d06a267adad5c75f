package apperr

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
)

// Error kinds returned by the service layer. Handlers translate them to HTTP
// statuses with ToFiber; services wrap them with fmt.Errorf("%w: ...") when a
// caller-facing detail is useful.
var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("not authorized")
	ErrConflict  = errors.New("conflict")
	ErrInvalid   = errors.New("invalid argument")
)

func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, ErrConflict):
		return fiber.StatusConflict
	case errors.Is(err, ErrInvalid):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// ToFiber maps a service error to a fiber error. Known kinds keep their
// message; anything else is logged server-side and returned as an opaque
// internal error.
func ToFiber(err error) *fiber.Error {
	status := HTTPStatus(err)
	if status == fiber.StatusInternalServerError {
		log.Printf("internal error: %v", err)
		return fiber.NewError(status, "server error")
	}
	return fiber.NewError(status, err.Error())
}
