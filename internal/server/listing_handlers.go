package server

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"bazar/internal/models"
	"bazar/internal/service"
	"bazar/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// Home handles GET /
// @Summary Home page
// @Description The six newest active listings and all categories.
// @Tags listings
// @Produce json
// @Success 200 {object} service.HomeResult
// @Router / [get]
func (s *Server) Home(c *fiber.Ctx) error {
	home, err := s.listingService.Home(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return s.page(c, fiber.Map{
		"page":            "home",
		"latest_listings": home.Latest,
		"categories":      home.Categories,
	})
}

// parseSearch reads the /listings query. Malformed numbers count as absent
// and a malformed page as page 1.
func parseSearch(c *fiber.Ctx) service.SearchInput {
	page, err := strconv.Atoi(strings.TrimSpace(c.Query("page")))
	if err != nil {
		page = 1
	}
	return service.SearchInput{
		Filter: models.ListingFilter{
			Query:      strings.TrimSpace(c.Query("q")),
			CategoryID: optionalUint(c.Query("category")),
			MinPrice:   optionalFloat(c.Query("min_price")),
			MaxPrice:   optionalFloat(c.Query("max_price")),
			Location:   strings.TrimSpace(c.Query("location")),
		},
		Page: page,
	}
}

// SearchListings handles GET /listings
// @Summary Search listings
// @Description Active listings matching every supplied filter, newest first, 12 per page.
// @Tags listings
// @Produce json
// @Param q query string false "Text in title or description"
// @Param category query int false "Category ID"
// @Param min_price query number false "Minimum price"
// @Param max_price query number false "Maximum price"
// @Param location query string false "Location substring"
// @Param page query int false "Page number" default(1)
// @Success 200 {object} service.SearchResult
// @Router /listings [get]
func (s *Server) SearchListings(c *fiber.Ctx) error {
	in := parseSearch(c)
	res, err := s.listingService.Search(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return s.page(c, fiber.Map{
		"page":        "listings",
		"listings":    res.Items,
		"categories":  res.Categories,
		"total":       res.Total,
		"current":     res.Page,
		"per_page":    res.PerPage,
		"total_pages": res.TotalPages,
		"has_prev":    res.HasPrev,
		"has_next":    res.HasNext,
		"filters": fiber.Map{
			"q":         in.Filter.Query,
			"category":  in.Filter.CategoryID,
			"min_price": in.Filter.MinPrice,
			"max_price": in.Filter.MaxPrice,
			"location":  in.Filter.Location,
		},
	})
}

// ListingDetail handles GET /listings/:id
// @Summary Listing detail
// @Description One listing with up to four similar listings.
// @Tags listings
// @Produce json
// @Param id path int true "Listing ID"
// @Success 200 {object} service.ListingDetail
// @Failure 404 {object} models.ErrorResponse
// @Router /listings/{id} [get]
func (s *Server) ListingDetail(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	detail, err := s.listingService.Detail(c.UserContext(), id, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return s.page(c, fiber.Map{
		"page":             "listing_detail",
		"listing":          detail.Listing,
		"similar_listings": detail.Similar,
		"is_favorite":      detail.IsFavorite,
	})
}

// NewListingPage handles GET /listings/new
func (s *Server) NewListingPage(c *fiber.Ctx) error {
	categories, err := s.listingService.Categories(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return s.page(c, fiber.Map{"page": "new_listing", "categories": categories})
}

// listingForm reads the listing fields and uploaded images of a multipart or urlencoded form.
func listingForm(c *fiber.Ctx) (validation.ListingFields, []service.Upload, error) {
	fields := validation.ListingFields{
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
		Price:       optionalFloat(c.FormValue("price")),
		Location:    c.FormValue("location"),
	}
	if id := optionalUint(c.FormValue("category_id")); id != nil {
		fields.CategoryID = *id
	}

	form, err := c.MultipartForm()
	if err != nil {
		// urlencoded posts carry no files
		return fields, nil, nil
	}
	var uploads []service.Upload
	for _, fh := range form.File["images"] {
		if fh.Filename == "" || fh.Size == 0 {
			continue
		}
		f, err := fh.Open()
		if err != nil {
			return fields, nil, fmt.Errorf("open upload %s: %w", fh.Filename, err)
		}
		content, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return fields, nil, fmt.Errorf("read upload %s: %w", fh.Filename, err)
		}
		uploads = append(uploads, service.Upload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get(fiber.HeaderContentType),
			Content:     content,
		})
	}
	return fields, uploads, nil
}

// CreateListing handles POST /listings/new
// @Summary Create listing
// @Description Multipart form with title, description, price, location, category_id and images[].
// @Tags listings
// @Accept multipart/form-data
// @Produce json
// @Success 201 {object} object{success=bool,message=string,listing=models.Listing}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /listings/new [post]
func (s *Server) CreateListing(c *fiber.Ctx) error {
	fields, uploads, err := listingForm(c)
	if err != nil {
		return s.listingFormFailed(c, models.NewInternalError(err), "/listings/new")
	}

	listing, err := s.listingService.Create(c.UserContext(), service.CreateListingInput{
		UserID:  currentUserID(c),
		Fields:  fields,
		Uploads: uploads,
	})
	if err != nil {
		return s.listingFormFailed(c, err, "/listings/new")
	}

	const msg = "Inzerát bol úspešne pridaný!"
	if wantsJSON(c) {
		return success(c, fiber.StatusCreated, msg, fiber.Map{"listing": listing})
	}
	return s.flashRedirect(c, flashSuccess, msg, "/dashboard")
}

func (s *Server) listingFormFailed(c *fiber.Ctx, err error, target string) error {
	if wantsJSON(c) {
		return respondError(c, err)
	}
	if models.StatusFor(err) == fiber.StatusForbidden {
		target = "/dashboard"
	}
	return s.flashRedirect(c, flashDanger, userMessage(err, "Chyba pri ukladaní inzerátu."), target)
}

// EditListingPage handles GET /listings/:id/edit
func (s *Server) EditListingPage(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	listing, err := s.listingService.GetOwned(c.UserContext(), currentUserID(c), id)
	if err != nil {
		if !wantsJSON(c) && models.StatusFor(err) == fiber.StatusForbidden {
			return s.flashRedirect(c, flashDanger, userMessage(err, ""), "/dashboard")
		}
		return respondError(c, err)
	}
	categories, err := s.listingService.Categories(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return s.page(c, fiber.Map{
		"page":       "edit_listing",
		"listing":    listing,
		"categories": categories,
		"statuses":   []string{models.ListingStatusActive, models.ListingStatusSold, models.ListingStatusExpired},
	})
}

// UpdateListing handles POST /listings/:id/edit
// @Summary Edit listing
// @Description Owner only. Same fields as create plus an optional status; new images are appended.
// @Tags listings
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Listing ID"
// @Success 200 {object} object{success=bool,message=string,listing=models.Listing}
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /listings/{id}/edit [post]
func (s *Server) UpdateListing(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	target := fmt.Sprintf("/listings/%d/edit", id)

	fields, uploads, err := listingForm(c)
	if err != nil {
		return s.listingFormFailed(c, models.NewInternalError(err), target)
	}

	listing, err := s.listingService.Update(c.UserContext(), service.UpdateListingInput{
		UserID:    currentUserID(c),
		ListingID: id,
		Fields:    fields,
		Status:    strings.TrimSpace(c.FormValue("status")),
		Uploads:   uploads,
	})
	if err != nil {
		return s.listingFormFailed(c, err, target)
	}

	const msg = "Inzerát bol úspešne upravený!"
	if wantsJSON(c) {
		return success(c, fiber.StatusOK, msg, fiber.Map{"listing": listing})
	}
	return s.flashRedirect(c, flashSuccess, msg, "/dashboard")
}

// DeleteListing handles POST /listings/:id/delete. It always answers JSON.
// @Summary Delete listing
// @Tags listings
// @Produce json
// @Param id path int true "Listing ID"
// @Success 200 {object} object{success=bool,message=string}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /listings/{id}/delete [post]
func (s *Server) DeleteListing(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.listingService.Delete(c.UserContext(), currentUserID(c), id); err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "Inzerát bol odstránený", nil)
}

// DeleteListingImage handles DELETE /listings/:listing_id/images/:image_id/delete
// @Summary Delete listing image
// @Tags listings
// @Produce json
// @Param listing_id path int true "Listing ID"
// @Param image_id path int true "Image ID"
// @Success 200 {object} object{success=bool,message=string}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /listings/{listing_id}/images/{image_id}/delete [delete]
func (s *Server) DeleteListingImage(c *fiber.Ctx) error {
	listingID, err := s.parseID(c, "listing_id")
	if err != nil {
		return nil
	}
	imageID, err := s.parseID(c, "image_id")
	if err != nil {
		return nil
	}
	if err := s.listingService.DeleteImage(c.UserContext(), currentUserID(c), listingID, imageID); err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "Obrázok bol odstránený", nil)
}

// MyListings handles GET /api/my-listings
// @Summary My listings
// @Tags account
// @Produce json
// @Success 200 {array} service.MyListingItem
// @Router /api/my-listings [get]
func (s *Server) MyListings(c *fiber.Ctx) error {
	items, err := s.listingService.MyListings(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(items)
}
