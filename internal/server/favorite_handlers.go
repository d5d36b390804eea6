package server

import (
	"bazar/internal/models"

	"github.com/gofiber/fiber/v2"
)

type toggleFavoriteRequest struct {
	ListingID flexUint `json:"listing_id" form:"listing_id"`
}

func favoriteMessage(favorited bool) string {
	if favorited {
		return "Inzerát bol pridaný do obľúbených."
	}
	return "Inzerát bol odstránený z obľúbených."
}

func (s *Server) toggleFavorite(c *fiber.Ctx, listingID uint) error {
	favorited, err := s.favoriteService.Toggle(c.UserContext(), currentUserID(c), listingID)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, favoriteMessage(favorited), fiber.Map{
		"favorited":   favorited,
		"is_favorite": favorited,
	})
}

// ToggleFavoriteForm handles POST /toggle-favorite. The listing id comes from
// the form or a JSON body, and the answer is always JSON.
// @Summary Toggle favorite (form)
// @Tags favorites
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param request body toggleFavoriteRequest true "Listing"
// @Success 200 {object} object{success=bool,message=string,favorited=bool,is_favorite=bool}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /toggle-favorite [post]
func (s *Server) ToggleFavoriteForm(c *fiber.Ctx) error {
	var req toggleFavoriteRequest
	if err := c.BodyParser(&req); err != nil || req.ListingID == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Chýbajúce údaje.").WithField("listing_id"))
	}
	return s.toggleFavorite(c, uint(req.ListingID))
}

// ToggleFavorite handles POST /api/favorite/:listing_id
// @Summary Toggle favorite
// @Tags favorites
// @Produce json
// @Param listing_id path int true "Listing ID"
// @Success 200 {object} object{success=bool,message=string,favorited=bool,is_favorite=bool}
// @Failure 404 {object} models.ErrorResponse
// @Router /api/favorite/{listing_id} [post]
func (s *Server) ToggleFavorite(c *fiber.Ctx) error {
	listingID, err := s.parseID(c, "listing_id")
	if err != nil {
		return nil
	}
	return s.toggleFavorite(c, listingID)
}

// CheckFavorite handles GET /api/check-favorite/:listing_id
// @Summary Is the listing a favorite
// @Tags favorites
// @Produce json
// @Param listing_id path int true "Listing ID"
// @Success 200 {object} object{is_favorite=bool}
// @Router /api/check-favorite/{listing_id} [get]
func (s *Server) CheckFavorite(c *fiber.Ctx) error {
	listingID, err := s.parseID(c, "listing_id")
	if err != nil {
		return nil
	}
	fav, err := s.favoriteService.Check(c.UserContext(), currentUserID(c), listingID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"is_favorite": fav})
}

// MyFavorites handles GET /api/my-favorites
// @Summary My favorites
// @Tags favorites
// @Produce json
// @Success 200 {array} service.FavoriteItem
// @Router /api/my-favorites [get]
func (s *Server) MyFavorites(c *fiber.Ctx) error {
	items, err := s.favoriteService.MyFavorites(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(items)
}
