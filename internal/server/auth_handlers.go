package server

import (
	"log/slog"

	"bazar/internal/middleware"
	"bazar/internal/models"
	"bazar/internal/service"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"
)

type registerRequest struct {
	Username        string `json:"username" form:"username"`
	Email           string `json:"email" form:"email"`
	Password        string `json:"password" form:"password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
}

type loginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" form:"current_password"`
	NewPassword     string `json:"new_password" form:"new_password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
}

// RegisterPage handles GET /register
func (s *Server) RegisterPage(c *fiber.Ctx) error {
	if currentUserID(c) != 0 && !wantsJSON(c) {
		return c.Redirect("/", fiber.StatusFound)
	}
	return s.page(c, fiber.Map{"page": "register"})
}

// Register handles POST /register
// @Summary Register
// @Description Create a user account. Form posts redirect to /login with a flash.
// @Tags auth
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param request body registerRequest true "Registration form"
// @Success 201 {object} object{success=bool,message=string,user=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /register [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return s.registerFailed(c, models.NewValidationError("Neplatné údaje formulára."))
	}

	user, err := s.userService.Register(c.UserContext(), service.RegisterInput{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		return s.registerFailed(c, err)
	}

	const msg = "Váš účet bol úspešne vytvorený! Môžete sa prihlásiť."
	if wantsJSON(c) {
		return success(c, fiber.StatusCreated, msg, fiber.Map{"user": user})
	}
	return s.flashRedirect(c, flashSuccess, msg, "/login")
}

func (s *Server) registerFailed(c *fiber.Ctx, err error) error {
	if wantsJSON(c) {
		return respondError(c, err)
	}
	return s.flashRedirect(c, flashDanger, userMessage(err, "Registrácia zlyhala."), "/register")
}

// LoginPage handles GET /login
func (s *Server) LoginPage(c *fiber.Ctx) error {
	if currentUserID(c) != 0 && !wantsJSON(c) {
		return c.Redirect("/", fiber.StatusFound)
	}
	return s.page(c, fiber.Map{"page": "login", "next": c.Query("next")})
}

// Login handles POST /login
// @Summary Login
// @Description Authenticate and receive a session token (also set as the session cookie).
// @Tags auth
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param request body loginRequest true "Credentials"
// @Param next query string false "Local path to redirect browsers to"
// @Success 200 {object} object{success=bool,message=string,token=string,user=models.User}
// @Failure 401 {object} models.ErrorResponse
// @Router /login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return s.loginFailed(c, models.NewValidationError("Neplatné údaje formulára."))
	}

	user, err := s.userService.Authenticate(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return s.loginFailed(c, err)
	}

	token, err := s.issueSession(c, user)
	if err != nil {
		return s.loginFailed(c, models.NewInternalError(err))
	}

	const msg = "Boli ste úspešne prihlásený!"
	if wantsJSON(c) {
		return success(c, fiber.StatusOK, msg, fiber.Map{"token": token, "user": user})
	}
	target := "/"
	if next, ok := localPath(c.Query("next", c.FormValue("next"))); ok {
		target = next
	}
	return s.flashRedirect(c, flashSuccess, msg, target)
}

func (s *Server) loginFailed(c *fiber.Ctx, err error) error {
	if wantsJSON(c) {
		return respondError(c, err)
	}
	return s.flashRedirect(c, flashDanger,
		userMessage(err, "Prihlásenie neúspešné. Skontrolujte email a heslo."), "/login")
}

// Logout handles GET /logout
// @Summary Logout
// @Description Revoke the current token and clear the session cookie.
// @Tags auth
// @Produce json
// @Success 200 {object} object{success=bool,message=string}
// @Router /logout [get]
func (s *Server) Logout(c *fiber.Ctx) error {
	s.revokeSession(c)

	const msg = "Boli ste odhlásený."
	if wantsJSON(c) {
		return success(c, fiber.StatusOK, msg, nil)
	}
	return s.flashRedirect(c, flashInfo, msg, "/")
}

// Dashboard handles GET /dashboard
// @Summary Dashboard
// @Description The caller's profile and counts of listings, favorites and unread messages.
// @Tags account
// @Produce json
// @Success 200 {object} object{user=models.User,listing_count=int,favorite_count=int,unread_count=int}
// @Router /dashboard [get]
func (s *Server) Dashboard(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := currentUserID(c)

	var (
		user                   *models.User
		listings, favs, unread int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		user, err = s.userService.GetByID(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		listings, err = s.listingService.CountByUser(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		favs, err = s.favoriteService.CountByUser(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		unread, err = s.messageService.UnreadCount(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return respondError(c, err)
	}

	return s.page(c, fiber.Map{
		"page":           "dashboard",
		"user":           user,
		"listing_count":  listings,
		"favorite_count": favs,
		"unread_count":   unread,
	})
}

// ChangePasswordForm handles POST /change-password
func (s *Server) ChangePasswordForm(c *fiber.Ctx) error {
	const target = "/dashboard#change-password"

	var req changePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return s.flashRedirect(c, flashDanger, "Všetky polia sú povinné.", target)
	}

	err := s.userService.ChangePassword(c.UserContext(), service.ChangePasswordInput{
		UserID:         currentUserID(c),
		Current:        req.CurrentPassword,
		New:            req.NewPassword,
		Confirm:        req.ConfirmPassword,
		RequireConfirm: true,
	})
	if wantsJSON(c) {
		if err != nil {
			return s.changePasswordError(c, err)
		}
		return success(c, fiber.StatusOK, "Heslo bolo úspešne zmenené!", nil)
	}
	if err != nil {
		return s.flashRedirect(c, flashDanger, userMessage(err, "Chyba servera pri ukladaní nového hesla."), target)
	}
	return s.flashRedirect(c, flashSuccess, "Heslo bolo úspešne zmenené!", target)
}

// ChangePassword handles POST /api/change-password
// @Summary Change password
// @Description Verify the current password and store a new one. confirm_password is optional.
// @Tags account
// @Accept json
// @Produce json
// @Param request body changePasswordRequest true "Passwords"
// @Success 200 {object} object{success=bool,message=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/change-password [post]
func (s *Server) ChangePassword(c *fiber.Ctx) error {
	var req changePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Chýbajú povinné polia.").WithField("all"))
	}

	err := s.userService.ChangePassword(c.UserContext(), service.ChangePasswordInput{
		UserID:  currentUserID(c),
		Current: req.CurrentPassword,
		New:     req.NewPassword,
		Confirm: req.ConfirmPassword,
	})
	if err != nil {
		return s.changePasswordError(c, err)
	}
	return success(c, fiber.StatusOK, "Heslo bolo úspešne zmenené.", nil)
}

func (s *Server) changePasswordError(c *fiber.Ctx, err error) error {
	if models.StatusFor(err) < fiber.StatusInternalServerError {
		return respondError(c, err)
	}
	middleware.Logger.ErrorContext(c.UserContext(), "password change failed", slog.String("error", err.Error()))
	return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{
		Message: "Chyba servera pri ukladaní nového hesla.",
		Code:    models.CodeInternal,
	})
}

// ValidatePassword handles POST /api/validate-password
// @Summary Validate current password
// @Tags account
// @Accept json
// @Produce json
// @Param request body object{current_password=string} true "Password to check"
// @Success 200 {object} object{valid=bool,message=string}
// @Failure 400 {object} object{valid=bool,message=string}
// @Router /api/validate-password [post]
func (s *Server) ValidatePassword(c *fiber.Ctx) error {
	var req struct {
		CurrentPassword string `json:"current_password" form:"current_password"`
	}
	if err := c.BodyParser(&req); err != nil || req.CurrentPassword == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"valid": false, "message": "Chýbajúce údaje"})
	}

	ok, err := s.userService.CheckPassword(c.UserContext(), currentUserID(c), req.CurrentPassword)
	if err != nil {
		return respondError(c, err)
	}
	if !ok {
		return c.JSON(fiber.Map{"valid": false, "message": "Súčasné heslo je nesprávne"})
	}
	return c.JSON(fiber.Map{"valid": true, "message": "Heslo je správne"})
}
