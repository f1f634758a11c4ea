package handler

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/tailorcv/tailorcv-backend/internal/models"
	"github.com/tailorcv/tailorcv-backend/internal/repository"
	"github.com/tailorcv/tailorcv-backend/internal/service"
	"github.com/tailorcv/tailorcv-backend/pkg/utils"
	"gorm.io/gorm"
)

type GenerationHandler struct {
	generationService *service.GenerationService
	validator         *utils.Validator
}

func NewGenerationHandler(generationService *service.GenerationService, validator *utils.Validator) *GenerationHandler {
	return &GenerationHandler{
		generationService: generationService,
		validator:         validator,
	}
}

func (h *GenerationHandler) Generate(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse("User not authenticated"))
	}

	var req models.GenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse("Invalid request body"))
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse(err.Error()))
	}

	gen, err := h.generationService.Generate(c.Context(), userID, req)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInsufficientCredits):
			return c.Status(fiber.StatusPaymentRequired).JSON(models.ErrorResponse("Insufficient credits"))
		case errors.Is(err, gorm.ErrRecordNotFound):
			return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse("Resume not found"))
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse(err.Error()))
		}
	}

	return c.Status(fiber.StatusCreated).JSON(models.SuccessResponse(gen, "Generation completed"))
}

func (h *GenerationHandler) GetGeneration(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse("User not authenticated"))
	}

	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse("Invalid generation ID"))
	}

	gen, err := h.generationService.GetGeneration(userID, uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse("Generation not found"))
		}
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse(err.Error()))
	}

	return c.JSON(models.SuccessResponse(gen, ""))
}

func (h *GenerationHandler) GetUserGenerations(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse("User not authenticated"))
	}

	gens, err := h.generationService.GetUserGenerations(userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse(err.Error()))
	}

	return c.JSON(models.SuccessResponse(gens, ""))
}
