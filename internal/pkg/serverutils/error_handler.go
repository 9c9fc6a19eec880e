package serverutils

import (
	"errors"

	"nutria-assistant-be/internal/constant"
	"nutria-assistant-be/pkg/agent/pipeline"
	"nutria-assistant-be/pkg/agent/schema"
	"nutria-assistant-be/pkg/llm"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware turns handler errors into the JSON envelope.
// Internal error text never reaches the client.
func ErrorHandlerMiddleware() fiber.ErrorHandler {
	return func(ctx *fiber.Ctx, err error) error {
		status, body := mapError(err)
		return ctx.Status(status).JSON(body)
	}
}

func mapError(err error) (int, *Response) {
	var validationErr *ValidationError
	var classificationErr *schema.ClassificationError
	var fiberErr *fiber.Error

	switch {
	case errors.As(err, &validationErr):
		return fiber.StatusBadRequest, &Response{
			Message: constant.MsgValidationFailed,
			Code:    constant.ErrCodeValidation,
			Data:    validationErr.Fields,
		}
	case errors.Is(err, pipeline.ErrEmptyInput):
		return fiber.StatusBadRequest, ErrorResponse(constant.ErrCodeValidation, constant.MsgValidationFailed)
	case errors.As(err, &classificationErr):
		return fiber.StatusUnprocessableEntity, ErrorResponse(constant.ErrCodeClassification, constant.MsgClassificationFailed)
	case llm.IsQuota(err):
		return fiber.StatusServiceUnavailable, ErrorResponse(constant.ErrCodeQuota, constant.MsgQuotaExceeded)
	case errors.As(err, &fiberErr):
		switch fiberErr.Code {
		case fiber.StatusUnauthorized:
			return fiberErr.Code, ErrorResponse(constant.ErrCodeUnauthorized, constant.MsgUnauthorized)
		case fiber.StatusNotFound:
			return fiberErr.Code, ErrorResponse(constant.ErrCodeNotFound, constant.MsgNotFound)
		case fiber.StatusBadRequest, fiber.StatusRequestEntityTooLarge, fiber.StatusUnprocessableEntity:
			return fiberErr.Code, ErrorResponse(constant.ErrCodeValidation, constant.MsgValidationFailed)
		}
	}
	return fiber.StatusInternalServerError, ErrorResponse(constant.ErrCodeInternal, constant.MsgInternalError)
}
