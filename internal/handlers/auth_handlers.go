package handlers

import (
	"errors"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/Amirbeek/TinyDesk/internal/middleware"
	"github.com/Amirbeek/TinyDesk/internal/repository"
	"github.com/Amirbeek/TinyDesk/internal/services"
)

type Handler struct {
	svc         services.AuthService
	userRepo    repository.UserRepository
	frontendURL string
	log         *zap.SugaredLogger
}

func NewHandler(svc services.AuthService, userRepo repository.UserRepository, frontendURL string, log *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, userRepo: userRepo, frontendURL: frontendURL, log: log}
}

type registerReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return badRequest(c, "email and password are required")
	}

	user, err := h.svc.Signup(c.UserContext(), req.Email, req.Password, req.Name)
	if err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": err.Error()})
		}
		return h.internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "registration successful, check your email to activate your account",
		"user":    user,
	})
}

func (h *Handler) Activate(c *fiber.Ctx) error {
	tokenValue := c.Params("token")
	if err := h.svc.Activate(c.UserContext(), tokenValue); err != nil {
		if errors.Is(err, services.ErrInvalidActivationLink) {
			return badRequest(c, err.Error())
		}
		return h.internalError(c, err)
	}
	return c.JSON(fiber.Map{"message": "account activated"})
}

type emailReq struct {
	Email string `json:"email"`
}

func (h *Handler) ResendActivation(c *fiber.Ctx) error {
	var req emailReq
	if err := c.BodyParser(&req); err != nil || req.Email == "" {
		return badRequest(c, "email is required")
	}

	err := h.svc.ResendActivation(c.UserContext(), req.Email)
	switch {
	case err == nil:
		return c.JSON(fiber.Map{"message": "activation email sent"})
	case errors.Is(err, services.ErrAlreadyActivated):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, services.ErrUserNotFound):
		return badRequest(c, err.Error())
	default:
		return h.internalError(c, err)
	}
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	tok, user, err := h.svc.Login(c.UserContext(), req.Email, req.Password)
	switch {
	case err == nil:
		return c.JSON(fiber.Map{"token": tok, "user": user})
	case errors.Is(err, services.ErrInvalidCredentials):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, services.ErrNotActivated):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": err.Error()})
	default:
		return h.internalError(c, err)
	}
}

func (h *Handler) RequestReset(c *fiber.Ctx) error {
	var req emailReq
	if err := c.BodyParser(&req); err != nil || req.Email == "" {
		return badRequest(c, "email is required")
	}

	// The response shape never reveals whether the account exists.
	if err := h.svc.RequestReset(c.UserContext(), req.Email); err != nil {
		return h.internalError(c, err)
	}
	return c.JSON(fiber.Map{"message": "if that email is registered, a reset link is on its way"})
}

type confirmResetReq struct {
	Password string `json:"password"`
}

func (h *Handler) ConfirmReset(c *fiber.Ctx) error {
	var req confirmResetReq
	if err := c.BodyParser(&req); err != nil || req.Password == "" {
		return badRequest(c, "password is required")
	}

	if err := h.svc.ConfirmReset(c.UserContext(), c.Params("token"), req.Password); err != nil {
		if errors.Is(err, services.ErrInvalidResetLink) {
			return badRequest(c, err.Error())
		}
		return h.internalError(c, err)
	}
	return c.JSON(fiber.Map{"message": "password updated, you can now log in"})
}

func (h *Handler) GoogleURL(c *fiber.Ctx) error {
	authURL, err := h.svc.OAuthURL(c.UserContext())
	if err != nil {
		return h.internalError(c, err)
	}
	return c.JSON(fiber.Map{"url": authURL})
}

// GoogleCallback lands the provider redirect. On success the browser is
// sent back to the dashboard with the session token in the query string,
// which the frontend persists; on failure it goes to the login page with an
// error flag instead of a JSON body.
func (h *Handler) GoogleCallback(c *fiber.Ctx) error {
	state := c.Query("state")
	code := c.Query("code")

	tok, err := h.svc.CompleteOAuth(c.UserContext(), state, code)
	if err != nil {
		h.log.Warnw("google callback failed", "error", err)
		return c.Redirect(h.frontendURL+"/login?error=oauth", fiber.StatusFound)
	}

	return c.Redirect(h.frontendURL+"/dashboard?token="+url.QueryEscape(tok), fiber.StatusFound)
}

// Me returns the authenticated user's profile. It is the one protected
// route this service owns; the dashboard's own resources live in other
// services behind the same gate.
func (h *Handler) Me(c *fiber.Ctx) error {
	raw, _ := c.Locals(middleware.LocalsUserID).(string)
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid or expired token"})
	}

	user, err := h.userRepo.FindByID(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "user not found"})
		}
		return h.internalError(c, err)
	}
	return c.JSON(fiber.Map{"user": user})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": msg})
}

func (h *Handler) internalError(c *fiber.Ctx, err error) error {
	h.log.Errorw("request failed", "path", c.Path(), "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": services.ErrInternal.Error()})
}
