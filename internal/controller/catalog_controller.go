package controller

import (
	"nutria-assistant-be/internal/dto"
	"nutria-assistant-be/internal/pkg/serverutils"
	"nutria-assistant-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ICatalogController interface {
	RegisterRoutes(r fiber.Router)
	BackfillEmbeddings(ctx *fiber.Ctx) error
}

type catalogController struct {
	catalogService service.ICatalogService
}

func NewCatalogController(catalogService service.ICatalogService) ICatalogController {
	return &catalogController{catalogService: catalogService}
}

func (c *catalogController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/catalog/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("embedding", c.BackfillEmbeddings)
}

// BackfillEmbeddings queues one embedding job per product still missing a vector.
func (c *catalogController) BackfillEmbeddings(ctx *fiber.Ctx) error {
	queued, err := c.catalogService.BackfillEmbeddings(ctx.UserContext())
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success queue product embeddings", &dto.BackfillEmbeddingsResponse{Queued: queued}))
}
