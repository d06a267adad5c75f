package trip

import (
	"github.com/floingsmoke/tigo/internal/auth"
	"github.com/floingsmoke/tigo/internal/shared/apperr"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authRequired, authOptional fiber.Handler) {
	r.Get("/", func(c *fiber.Ctx) error {
		f := Filter{
			Departure: c.Query("departure"),
			Arrival:   c.Query("arrival"),
			Date:      c.Query("date"),
			Type:      c.Query("type"),
			Capacity:  c.Query("capacity"),
		}
		trips, err := svc.ListTrips(c.Context(), f)
		if err != nil {
			return apperr.ToFiber(err)
		}
		if trips == nil {
			trips = []Trip{}
		}
		return c.JSON(fiber.Map{"trips": trips})
	})

	r.Get("/calendar", func(c *fiber.Ctx) error {
		trips, err := svc.CalendarTrips(c.Context(), c.Query("start"), c.Query("end"))
		if err != nil {
			return apperr.ToFiber(err)
		}
		if trips == nil {
			trips = []Trip{}
		}
		return c.JSON(fiber.Map{"trips": trips})
	})

	r.Get("/mine", authRequired, func(c *fiber.Ctx) error {
		trips, err := svc.MyTrips(c.Context(), auth.UserID(c))
		if err != nil {
			return apperr.ToFiber(err)
		}
		if trips == nil {
			trips = []Trip{}
		}
		return c.JSON(fiber.Map{"trips": trips})
	})

	r.Post("/", authRequired, func(c *fiber.Ctx) error {
		var input Trip
		if err := c.BodyParser(&input); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		input.UserID = auth.UserID(c)
		trip, err := svc.CreateTrip(c.Context(), input)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"trip": trip})
	})

	r.Put("/requests/:requestId/respond", authRequired, func(c *fiber.Ctx) error {
		var body struct {
			Status string `json:"status"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		if err := svc.RespondToRequest(c.Context(), c.Params("requestId"), auth.UserID(c), body.Status); err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(fiber.Map{"status": body.Status})
	})

	r.Get("/:id", authOptional, func(c *fiber.Ctx) error {
		detail, err := svc.GetTrip(c.Context(), c.Params("id"), auth.UserID(c))
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(detail)
	})

	r.Put("/:id", authRequired, func(c *fiber.Ctx) error {
		var patch Trip
		if err := c.BodyParser(&patch); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		trip, err := svc.UpdateTrip(c.Context(), c.Params("id"), auth.UserID(c), patch)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(fiber.Map{"trip": trip})
	})

	r.Delete("/:id", authRequired, func(c *fiber.Ctx) error {
		if err := svc.DeleteTrip(c.Context(), c.Params("id"), auth.UserID(c)); err != nil {
			return apperr.ToFiber(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Post("/:id/requests", authRequired, func(c *fiber.Ctx) error {
		var body struct {
			Message string `json:"message"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		req, err := svc.SubmitRequest(c.Context(), c.Params("id"), auth.UserID(c), body.Message)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"request": req})
	})

	r.Get("/:id/requests", authRequired, func(c *fiber.Ctx) error {
		requests, err := svc.RequestsForTrip(c.Context(), c.Params("id"), auth.UserID(c))
		if err != nil {
			return apperr.ToFiber(err)
		}
		if requests == nil {
			requests = []Request{}
		}
		return c.JSON(fiber.Map{"requests": requests})
	})
}
