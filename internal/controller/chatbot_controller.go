package controller

import (
	"nutria-assistant-be/internal/dto"
	"nutria-assistant-be/internal/pkg/serverutils"
	"nutria-assistant-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IChatbotController interface {
	RegisterRoutes(r fiber.Router)
	SendChat(ctx *fiber.Ctx) error
	GetChatHistory(ctx *fiber.Ctx) error
	DeleteSession(ctx *fiber.Ctx) error
}

type chatbotController struct {
	chatbotService service.IChatbotService
}

func NewChatbotController(chatbotService service.IChatbotService) IChatbotController {
	return &chatbotController{chatbotService: chatbotService}
}

func (c *chatbotController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chatbot/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("send", c.SendChat)
	h.Get("history/:chat", c.GetChatHistory)
	h.Delete("session/:chat", c.DeleteSession)
}

func (c *chatbotController) SendChat(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	var req dto.SendChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.chatbotService.SendChat(ctx.UserContext(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success send chat", res))
}

func (c *chatbotController) GetChatHistory(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}
	chatIndex, err := chatParam(ctx)
	if err != nil {
		return err
	}

	res, err := c.chatbotService.GetChatHistory(ctx.UserContext(), userId, chatIndex)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get chat history", res))
}

func (c *chatbotController) DeleteSession(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}
	chatIndex, err := chatParam(ctx)
	if err != nil {
		return err
	}

	if err := c.chatbotService.DeleteSession(ctx.UserContext(), userId, chatIndex); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success delete chat session", nil))
}

func chatParam(ctx *fiber.Ctx) (int, error) {
	chatIndex, err := ctx.ParamsInt("chat")
	if err != nil || chatIndex < 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid chat index")
	}
	return chatIndex, nil
}
