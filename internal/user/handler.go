package user

import (
	"context"

	"github.com/Kyz7/blogaccount/internal/auth"
	"github.com/Kyz7/blogaccount/internal/response"
	"github.com/Kyz7/blogaccount/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type PasswordChanger interface {
	ChangePassword(ctx context.Context, userID uint, current, next string) error
}

// Handler serves the /settings routes of the signed-in user.
type Handler struct {
	service   *Service
	passwords PasswordChanger
}

func NewHandler(service *Service, passwords PasswordChanger) *Handler {
	return &Handler{service: service, passwords: passwords}
}

type updateProfileRequest struct {
	Name         string  `json:"name" validate:"required,max=100"`
	Introduction *string `json:"introduction" validate:"omitempty,max=5000"`
	Image        string  `json:"image"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

func (h *Handler) GetProfile(c *fiber.Ctx) error {
	userID, ok := auth.UserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	u, err := h.service.GetProfile(c.UserContext(), userID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, u, "")
}

func (h *Handler) UpdateProfile(c *fiber.Ctx) error {
	userID, ok := auth.UserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	var body updateProfileRequest
	if ok, err := validation.ParseBody(c, &body); !ok {
		return err
	}

	u, err := h.service.UpdateProfile(c.UserContext(), userID, ProfileInput{
		Name:         body.Name,
		Introduction: body.Introduction,
		Image:        body.Image,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, u, "Profile updated successfully")
}

func (h *Handler) ChangePassword(c *fiber.Ctx) error {
	userID, ok := auth.UserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	var body changePasswordRequest
	if ok, err := validation.ParseBody(c, &body); !ok {
		return err
	}

	if err := h.passwords.ChangePassword(c.UserContext(), userID, body.CurrentPassword, body.NewPassword); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, nil, "Password updated successfully")
}
