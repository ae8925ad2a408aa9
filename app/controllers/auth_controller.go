package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/MartinKoehl/OfficeBase/app/models"
	"github.com/MartinKoehl/OfficeBase/app/repository"
	"github.com/MartinKoehl/OfficeBase/internal/pkg/database"
	"github.com/MartinKoehl/OfficeBase/internal/pkg/session"
	"github.com/MartinKoehl/OfficeBase/internal/pkg/usercontext"
)

type registerRequest struct {
	CompanyName string `json:"company_name"`
	ContactName string `json:"contact_name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleRegister creates an account with its draft subscription and issues
// the API key for the companion client. The plaintext key appears in this
// response and nowhere else.
func HandleRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	user, err := models.CreateUser(req.CompanyName, req.ContactName, req.Email, req.Password)
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	}

	apiKey, err := user.GenerateAPIKey()
	if err != nil {
		log.Errorf("[Auth] API key generation failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "registration failed"})
	}

	db := database.GetDB()
	var sub *models.Subscription
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		created, err := models.CreateDraftSubscription(tx, user.ID)
		if err != nil {
			return err
		}
		sub = created
		return nil
	})
	if err != nil {
		if isDuplicateEntry(err) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "email already registered"})
		}
		log.Errorf("[Auth] Registration failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "registration failed"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"user_id":             user.ID,
		"subscription_id":     sub.ID,
		"subscription_status": sub.Status,
		"api_key":             apiKey,
	})
}

// HandleLogin authenticates with email and password and opens a session.
func HandleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	// Same response for unknown email and wrong password.
	user, err := repository.GetGlobalFactory().GetUserRepository().GetByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil || !user.CheckPassword(req.Password) || !user.IsActive() {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid credentials"})
	}

	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		log.Errorf("[Auth] Session load failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "login failed"})
	}
	sess.Set(usercontext.AuthKey, true)
	sess.Set(usercontext.KeyUserID, user.ID)
	sess.Set(usercontext.KeyUsername, user.ContactName)
	sess.Set(usercontext.KeyIsAdmin, user.IsAdmin())
	if err := sess.Save(); err != nil {
		log.Errorf("[Auth] Session save failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "login failed"})
	}

	return c.JSON(fiber.Map{
		"user_id":  user.ID,
		"is_admin": user.IsAdmin(),
	})
}

// HandleLogout destroys the current session.
func HandleLogout(c *fiber.Ctx) error {
	sess, err := session.GetSessionStore().Get(c)
	if err == nil {
		if err := sess.Destroy(); err != nil {
			log.Warnf("[Auth] Session destroy failed: %v", err)
		}
	}
	return c.JSON(fiber.Map{"logged_out": true})
}

func isDuplicateEntry(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "Duplicate entry")
}
