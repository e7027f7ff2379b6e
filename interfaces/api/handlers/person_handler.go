package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"eventfaces/domain/dto"
	"eventfaces/domain/services"
	"eventfaces/pkg/utils"
)

type PersonHandler struct {
	personService services.PersonService
}

func NewPersonHandler(personService services.PersonService) *PersonHandler {
	return &PersonHandler{personService: personService}
}

// ListPersons returns the person clusters of an event in creation order
// @Summary List persons
// @Tags Persons
// @Security BearerAuth
// @Router /api/v1/events/{event_id}/persons [get]
func (h *PersonHandler) ListPersons(c *fiber.Ctx) error {
	eventID, err := parseID(c, "event_id")
	if err != nil {
		return err
	}

	persons, err := h.personService.ListPersons(c.UserContext(), eventID)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, "Persons retrieved", fiber.Map{
		"persons": dto.PersonsToResponse(persons),
		"count":   len(persons),
	})
}

func (h *PersonHandler) GetPerson(c *fiber.Ctx) error {
	personID, err := parseID(c, "person_id")
	if err != nil {
		return err
	}

	person, err := h.personService.GetPerson(c.UserContext(), personID)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, "Person retrieved", dto.PersonToResponse(person))
}

func (h *PersonHandler) GetPersonFaces(c *fiber.Ctx) error {
	personID, err := parseID(c, "person_id")
	if err != nil {
		return err
	}

	faces, err := h.personService.GetPersonFaces(c.UserContext(), personID)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, "Faces retrieved", fiber.Map{
		"faces": dto.FacesToResponse(faces),
		"count": len(faces),
	})
}

// NamePerson sets or clears the display name of a person
// @Summary Name a person
// @Tags Persons
// @Security BearerAuth
// @Router /api/v1/persons/{person_id} [patch]
func (h *PersonHandler) NamePerson(c *fiber.Ctx) error {
	personID, err := parseID(c, "person_id")
	if err != nil {
		return err
	}

	var req dto.NamePersonRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	person, err := h.personService.NamePerson(c.UserContext(), personID, req.Name)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, "Person updated", dto.PersonToResponse(person))
}

// MergePerson folds the person into target_id. The target survives.
// @Summary Merge two persons
// @Tags Persons
// @Security BearerAuth
// @Router /api/v1/persons/{person_id}/merge [post]
func (h *PersonHandler) MergePerson(c *fiber.Ctx) error {
	sourceID, err := parseID(c, "person_id")
	if err != nil {
		return err
	}

	var req dto.MergePersonRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	person, err := h.personService.MergePersons(c.UserContext(), sourceID, uuid.MustParse(req.TargetID))
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, "Persons merged", dto.PersonToResponse(person))
}
