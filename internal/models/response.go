package models

import "github.com/gofiber/fiber/v2"

// APIResponse is the success envelope returned by every handler.
type APIResponse struct {
	StatusCode int    `json:"statusCode"`
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Data       any    `json:"data"`
}

// ErrorResponse is the failure envelope.
type ErrorResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Code    string   `json:"code,omitempty"`
	Errors  []string `json:"errors"`
}

// Respond writes a success envelope with the given status.
func Respond(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(APIResponse{
		StatusCode: status,
		Success:    status < fiber.StatusBadRequest,
		Message:    message,
		Data:       data,
	})
}
