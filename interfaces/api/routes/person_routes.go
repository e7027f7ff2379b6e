package routes

import (
	"github.com/gofiber/fiber/v2"

	"eventfaces/interfaces/api/handlers"
	"eventfaces/interfaces/api/middleware"
	"eventfaces/pkg/config"
)

func SetupPersonRoutes(router fiber.Router, h *handlers.Handlers, cfg *config.Config) {
	persons := router.Group("/persons", middleware.Protected(cfg.JWT.Secret))

	persons.Get("/:person_id", h.Person.GetPerson)
	persons.Patch("/:person_id", h.Person.NamePerson)
	persons.Post("/:person_id/merge", h.Person.MergePerson)
	persons.Get("/:person_id/faces", h.Person.GetPersonFaces)
}
