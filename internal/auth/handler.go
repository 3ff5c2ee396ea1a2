package auth

import (
	"context"
	"errors"
	"net/url"

	"github.com/Kyz7/blogaccount/internal/logger"
	"github.com/Kyz7/blogaccount/internal/models"
	"github.com/Kyz7/blogaccount/internal/response"
	"github.com/Kyz7/blogaccount/internal/session"
	"github.com/Kyz7/blogaccount/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	service  *Service
	reset    *ResetManager
	sessions *session.Manager
	google   *GoogleProvider
	states   StateStore
}

func NewHandler(service *Service, reset *ResetManager, sessions *session.Manager, google *GoogleProvider, states StateStore) *Handler {
	return &Handler{
		service:  service,
		reset:    reset,
		sessions: sessions,
		google:   google,
		states:   states,
	}
}

type signupRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	UserID       uint   `json:"user_id" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}

func (h *Handler) Signup(c *fiber.Ctx) error {
	var body signupRequest
	if ok, err := validation.ParseBody(c, &body); !ok {
		return err
	}

	u, err := h.service.Signup(c.UserContext(), body.Name, body.Email, body.Password)
	if err != nil {
		return response.FromError(c, err)
	}

	pair, err := h.sessions.Issue(c.UserContext(), u.ID)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Created(c, sessionPayload(pair, u), "Registration successful")
}

func (h *Handler) Login(c *fiber.Ctx) error {
	var body loginRequest
	if ok, err := validation.ParseBody(c, &body); !ok {
		return err
	}

	u, err := h.service.Authorize(c.UserContext(), body.Email, body.Password)
	if err != nil {
		return response.FromError(c, err)
	}

	pair, err := h.sessions.Issue(c.UserContext(), u.ID)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, sessionPayload(pair, u), "Login successful")
}

func (h *Handler) Refresh(c *fiber.Ctx) error {
	var body refreshRequest
	if ok, err := validation.ParseBody(c, &body); !ok {
		return err
	}

	pair, err := h.sessions.Refresh(c.UserContext(), body.UserID, body.RefreshToken)
	if errors.Is(err, session.ErrInvalidRefreshToken) {
		return response.Unauthorized(c, err.Error())
	}
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, pair, "Token refreshed successfully")
}

func (h *Handler) Logout(c *fiber.Ctx) error {
	userID, ok := UserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	if err := h.sessions.RevokeAll(c.UserContext(), userID); err != nil {
		return response.FromError(c, err)
	}

	logger.Log.Infow("user logged out", "user_id", userID)
	return response.Success(c, fiber.Map{"user_id": userID}, "Logout successful")
}

func (h *Handler) ForgotPassword(c *fiber.Ctx) error {
	var body forgotPasswordRequest
	if ok, err := validation.ParseBody(c, &body); !ok {
		return err
	}

	if err := h.reset.RequestReset(c.UserContext(), body.Email); err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, nil, "A password reset link has been sent to your email")
}

func (h *Handler) CheckResetToken(c *fiber.Ctx) error {
	token, err := url.PathUnescape(c.Params("token"))
	if err != nil {
		return response.BadRequest(c, "Invalid token", nil)
	}

	valid, err := h.reset.CheckValidity(c.UserContext(), token)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, fiber.Map{"valid": valid}, "")
}

func (h *Handler) ResetPassword(c *fiber.Ctx) error {
	var body resetPasswordRequest
	if ok, err := validation.ParseBody(c, &body); !ok {
		return err
	}

	if err := h.reset.Consume(c.UserContext(), body.Token, body.NewPassword); err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, nil, "Password reset successful")
}

func (h *Handler) GoogleLogin(c *fiber.Ctx) error {
	state, err := generateState()
	if err != nil {
		return response.FromError(c, err)
	}
	if err := h.states.Save(c.UserContext(), state, stateTTL); err != nil {
		return response.FromError(c, err)
	}
	return c.Redirect(h.google.AuthURL(state))
}

func (h *Handler) GoogleCallback(c *fiber.Ctx) error {
	ok, err := h.states.Consume(c.UserContext(), c.Query("state"))
	if err != nil {
		return response.FromError(c, err)
	}
	if !ok {
		return response.BadRequest(c, "Invalid state parameter", nil)
	}

	code := c.Query("code")
	if code == "" {
		return response.BadRequest(c, "Missing authorization code", nil)
	}

	u, pair, err := h.federatedLogin(c.UserContext(), code)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, sessionPayload(pair, u), "Login successful")
}

func (h *Handler) federatedLogin(ctx context.Context, code string) (*models.User, *session.Pair, error) {
	id, err := h.google.Identity(ctx, code)
	if err != nil {
		return nil, nil, err
	}

	u, err := h.service.LoginWithIdentity(ctx, *id)
	if err != nil {
		return nil, nil, err
	}

	pair, err := h.sessions.Issue(ctx, u.ID)
	if err != nil {
		return nil, nil, err
	}
	return u, pair, nil
}

func sessionPayload(pair *session.Pair, u *models.User) fiber.Map {
	return fiber.Map{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"expires_in":    pair.ExpiresIn,
		"user":          u,
	}
}
