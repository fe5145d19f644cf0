// middleware/auth.go
package middleware

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"strings"

	"vip-passport/models"
	"vip-passport/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const (
	localUserID  = "user_id"
	localUser    = "user"
	localIsAdmin = "is_admin"
)

// UserContextMiddleware authenticates the bearer access token and loads the user into Locals.
func UserContextMiddleware(auth *services.AuthService, users *services.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := userFromBearer(c, auth, users)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "could not validate credentials",
			})
		}
		setUser(c, user)
		return c.Next()
	}
}

// AdminCredentials are the static admin secrets from config. Empty fields are disabled.
type AdminCredentials struct {
	Username string
	Password string
	Token    string
}

// RequireAdmin accepts Basic admin credentials, the X-Admin-Token header, or a bearer token
// belonging to a user flagged is_admin.
func RequireAdmin(creds AdminCredentials, auth *services.AuthService, users *services.UserService, log logrus.FieldLogger) fiber.Handler {
	log = log.WithField("component", "admin_auth")

	return func(c *fiber.Ctx) error {
		if token := c.Get("X-Admin-Token"); token != "" && equal(token, creds.Token) {
			c.Locals(localIsAdmin, true)
			return c.Next()
		}

		header := c.Get(fiber.HeaderAuthorization)
		if len(header) > 6 && strings.EqualFold(header[:6], "basic ") {
			if username, password, ok := parseBasic(header[6:]); ok &&
				equal(username, creds.Username) && equal(password, creds.Password) {
				c.Locals(localIsAdmin, true)
				return c.Next()
			}
		}

		if strings.HasPrefix(header, "Bearer ") {
			user, err := userFromBearer(c, auth, users)
			if err == nil && user.IsAdmin {
				setUser(c, user)
				c.Locals(localIsAdmin, true)
				return c.Next()
			}
			if err == nil {
				log.WithFields(logrus.Fields{"user_id": user.ID, "path": c.Path()}).Warn("non-admin on admin route")
				return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "admin access required"})
			}
		}

		c.Set(fiber.HeaderWWWAuthenticate, `Basic realm="admin"`)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid admin credentials"})
	}
}

// CurrentUser returns the user set by UserContextMiddleware or RequireAdmin, if any.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(localUser).(*models.User)
	return user
}

// IsAdmin reports whether RequireAdmin let the request through.
func IsAdmin(c *fiber.Ctx) bool {
	ok, _ := c.Locals(localIsAdmin).(bool)
	return ok
}

func userFromBearer(c *fiber.Ctx, auth *services.AuthService, users *services.UserService) (*models.User, error) {
	header := c.Get(fiber.HeaderAuthorization)
	token := strings.TrimPrefix(header, "Bearer ")
	if token == "" || token == header {
		return nil, services.ErrUnauthorized
	}
	userID, err := auth.ParseToken(token)
	if err != nil {
		return nil, err
	}
	user, err := users.GetUser(c.UserContext(), userID)
	if errors.Is(err, services.ErrNotFound) {
		return nil, services.ErrUnauthorized
	}
	return user, err
}

func setUser(c *fiber.Ctx, user *models.User) {
	c.Locals(localUserID, user.ID)
	c.Locals(localUser, user)
	if user.IsAdmin {
		c.Locals(localIsAdmin, true)
	}
}

func parseBasic(encoded string) (string, string, bool) {
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return "", "", false
	}
	return strings.Cut(string(decoded), ":")
}

// equal compares in constant time; an unset expected value never matches.
func equal(got, expected string) bool {
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(expected)) == 1
}
