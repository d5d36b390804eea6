package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"bazar/internal/middleware"
	"bazar/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

const (
	flashCookieName = "flash"
	flashTTL        = 5 * time.Minute
)

// Flash categories.
const (
	flashSuccess = "success"
	flashDanger  = "danger"
	flashInfo    = "info"
)

// Flash is a one-shot message shown on the next page after a redirect.
type Flash struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Neplatné ID.").WithField(param))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// currentUserID returns the authenticated user, or 0 for anonymous requests.
func currentUserID(c *fiber.Ctx) uint {
	id, _ := c.Locals("userID").(uint)
	return id
}

// wantsJSON reports whether the caller is an API client rather than a browser form.
func wantsJSON(c *fiber.Ctx) bool {
	if strings.HasPrefix(c.Path(), "/api/") {
		return true
	}
	if strings.EqualFold(c.Get("X-Requested-With"), "XMLHttpRequest") {
		return true
	}
	if strings.HasPrefix(strings.ToLower(c.Get(fiber.HeaderContentType)), fiber.MIMEApplicationJSON) {
		return true
	}
	return c.Accepts(fiber.MIMETextHTML, fiber.MIMEApplicationJSON) == fiber.MIMEApplicationJSON &&
		c.Get(fiber.HeaderAccept) != ""
}

// respondError writes err with the status its code maps to. Internal errors are logged.
func respondError(c *fiber.Ctx, err error) error {
	status := models.StatusFor(err)
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			slog.String("path", c.Path()), slog.String("error", err.Error()))
	}
	return models.RespondWithError(c, status, err)
}

// userMessage is the text shown to people for err. Internal details never leak.
func userMessage(err error, fallback string) string {
	var appErr *models.AppError
	if errors.As(err, &appErr) && appErr.Code != models.CodeInternal {
		return appErr.Message
	}
	return fallback
}

// success writes the standard {success, message} envelope merged with extra.
func success(c *fiber.Ctx, status int, message string, extra fiber.Map) error {
	body := fiber.Map{"success": true, "message": message}
	for k, v := range extra {
		body[k] = v
	}
	return c.Status(status).JSON(body)
}

// setFlash stores a message for the next page the browser loads.
func (s *Server) setFlash(c *fiber.Ctx, category, message string) {
	raw, err := json.Marshal(Flash{Category: category, Message: message})
	if err != nil {
		return
	}
	c.Cookie(&fiber.Cookie{
		Name:     flashCookieName,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/",
		Expires:  time.Now().Add(flashTTL),
		HTTPOnly: true,
		Secure:   s.config.SessionCookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// popFlash returns and clears the pending flash, if any.
func (s *Server) popFlash(c *fiber.Ctx) *Flash {
	value := c.Cookies(flashCookieName)
	if value == "" {
		return nil
	}
	c.ClearCookie(flashCookieName)

	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil
	}
	var f Flash
	if err := json.Unmarshal(raw, &f); err != nil || f.Message == "" {
		return nil
	}
	return &f
}

// page writes a page payload with the pending flash attached.
func (s *Server) page(c *fiber.Ctx, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	data["flash"] = s.popFlash(c)
	data["authenticated"] = currentUserID(c) != 0
	return c.JSON(data)
}

// flashRedirect flashes message and redirects the browser to target.
func (s *Server) flashRedirect(c *fiber.Ctx, category, message, target string) error {
	s.setFlash(c, category, message)
	return c.Redirect(target, fiber.StatusFound)
}

// backURL is the local page the request came from, or fallback.
func backURL(c *fiber.Ctx, fallback string) string {
	if ref := c.Get(fiber.HeaderReferer); ref != "" {
		if u, err := url.Parse(ref); err == nil && (u.Host == "" || u.Host == c.Hostname()) && u.Path != "" {
			if u.RawQuery != "" {
				return u.Path + "?" + u.RawQuery
			}
			return u.Path
		}
	}
	return fallback
}

// localPath accepts only same-site absolute paths, for the login "next" parameter.
func localPath(next string) (string, bool) {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return "", false
	}
	u, err := url.Parse(next)
	if err != nil || u.Host != "" || u.Scheme != "" {
		return "", false
	}
	return next, true
}

// optionalUint parses a positive integer, returning nil for empty or malformed input.
func optionalUint(raw string) *uint {
	n, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 32)
	if err != nil || n == 0 {
		return nil
	}
	v := uint(n)
	return &v
}

// optionalFloat parses a float, returning nil for empty or malformed input.
func optionalFloat(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// flexUint accepts a JSON number or a numeric string.
type flexUint uint

func (f *flexUint) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return err
	}
	*f = flexUint(n)
	return nil
}

// ptr returns nil for zero, otherwise a pointer to the value.
func (f flexUint) ptr() *uint {
	if f == 0 {
		return nil
	}
	v := uint(f)
	return &v
}
