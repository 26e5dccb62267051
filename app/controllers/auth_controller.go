package controllers

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/clipscout/clipscout/app/models"
	"github.com/clipscout/clipscout/app/repository"
	"github.com/clipscout/clipscout/internal/pkg/database"
	"github.com/clipscout/clipscout/internal/pkg/hcaptcha"
	"github.com/clipscout/clipscout/internal/pkg/session"
	"github.com/clipscout/clipscout/internal/pkg/usercontext"
)

type registerRequest struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Password      string `json:"password"`
	HCaptchaToken string `json:"h_captcha_token"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleAuthRegister creates a user account and its default free entitlement.
func HandleAuthRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid request body")
	}

	if hcaptcha.Enabled() {
		valid, err := hcaptcha.Verify(req.HCaptchaToken)
		if err != nil || !valid {
			return jsonError(c, fiber.StatusBadRequest, "captcha_failed", "captcha validation failed, please try again")
		}
	}

	user, err := models.CreateUser(strings.TrimSpace(req.Name), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		return jsonError(c, fiber.StatusUnprocessableEntity, "validation_failed", err.Error())
	}

	repos := repository.GetGlobalFactory().GetRepositories()
	if err := repos.User.Create(user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "Duplicate entry") {
			return jsonError(c, fiber.StatusConflict, "email_taken", "an account with this email already exists")
		}
		log.Printf("user create failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not create account")
	}

	// Eagerly create the free/inactive entitlement; lazy creation still
	// covers accounts that predate this call.
	if _, err := repos.Entitlement.GetOrCreateByUserID(user.ID); err != nil {
		log.Printf("default entitlement create failed for user %d: %v", user.ID, err)
	}

	if err := establishSession(c, user); err != nil {
		log.Printf("session create after register failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "account created, login failed")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":    user.ID,
		"name":  user.Name,
		"email": user.Email,
	})
}

// HandleAuthLogin authenticates email/password credentials and starts a session.
func HandleAuthLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "invalid request body")
	}

	repos := repository.GetGlobalFactory().GetRepositories()
	user, err := repos.User.GetByEmail(req.Email)
	if err != nil {
		// Do not reveal whether the account exists.
		return jsonError(c, fiber.StatusUnauthorized, "invalid_credentials", "email or password is incorrect")
	}
	if !user.CheckPassword(req.Password) {
		return jsonError(c, fiber.StatusUnauthorized, "invalid_credentials", "email or password is incorrect")
	}
	if !user.IsActive() {
		return jsonError(c, fiber.StatusForbidden, "account_disabled", "this account is disabled")
	}

	if err := establishSession(c, user); err != nil {
		log.Printf("session create after login failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "login failed")
	}

	now := time.Now()
	database.GetDB().Model(user).Update("last_login_at", now)

	return c.JSON(fiber.Map{
		"id":    user.ID,
		"name":  user.Name,
		"email": user.Email,
	})
}

// HandleAuthLogout destroys the caller's session.
func HandleAuthLogout(c *fiber.Ctx) error {
	sess, err := session.GetSessionStore().Get(c)
	if err == nil {
		_ = sess.Destroy()
	}
	c.Locals(usercontext.KeyFromProtected, false)
	return c.JSON(fiber.Map{"ok": true})
}

func establishSession(c *fiber.Ctx, user *models.User) error {
	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		return err
	}

	sess.Set(usercontext.AuthKey, true)
	sess.Set(usercontext.KeyUserID, user.ID)
	sess.Set(usercontext.KeyUsername, user.Name)
	sess.Set(usercontext.KeyUserEmail, user.Email)
	// Force a plan re-read on the next request.
	sess.Delete(usercontext.KeyUserPlan)

	return sess.Save()
}
