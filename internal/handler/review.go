package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/avialex/api/internal/model"
	"github.com/avialex/api/internal/repository"
)

// ReviewHandler owns client reviews and their aggregate statistics.
type ReviewHandler struct {
	Reviews *repository.ReviewRepo
}

type reviewRequest struct {
	Rating     int    `json:"rating"`
	Comment    string `json:"comment"`
	ReviewType string `json:"review_type"`
}

type reviewUpdateRequest struct {
	Rating     *int    `json:"rating"`
	Comment    *string `json:"comment"`
	ReviewType *string `json:"review_type"`
}

// Create records a review authored by the signed-in user.
func (h *ReviewHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req reviewRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.Rating < 1 || req.Rating > 5 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "rating must be between 1 and 5"})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	rv := model.Review{
		UserID:     uid,
		Rating:     req.Rating,
		Comment:    req.Comment,
		ReviewType: req.ReviewType,
	}
	if err := h.Reviews.Create(ctx, &rv); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create review"})
	}
	return c.JSON(http.StatusCreated, rv)
}

// List returns one page of reviews, newest first. Query params: page
// (zero-based) and size.
func (h *ReviewHandler) List(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))

	ctx, cancel := dbCtx(c)
	defer cancel()

	items, total, err := h.Reviews.ListPage(ctx, page, size)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not list reviews"})
	}
	if items == nil {
		items = []model.Review{}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items": items,
		"total": total,
		"page":  page,
	})
}

// GetByID returns one review.
func (h *ReviewHandler) GetByID(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid review id"})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	rv, err := h.Reviews.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "review not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load review"})
	}
	return c.JSON(http.StatusOK, rv)
}

// ListByUser returns all reviews written by one user.
func (h *ReviewHandler) ListByUser(c echo.Context) error {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	items, err := h.Reviews.ListByUser(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not list reviews"})
	}
	if items == nil {
		items = []model.Review{}
	}
	return c.JSON(http.StatusOK, items)
}

// Update edits a review. Only the author may edit their own review.
func (h *ReviewHandler) Update(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid review id"})
	}
	var req reviewUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	rv, err := h.Reviews.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "review not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load review"})
	}
	if rv.UserID != uid {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your review"})
	}

	if req.Rating != nil {
		if *req.Rating < 1 || *req.Rating > 5 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "rating must be between 1 and 5"})
		}
		rv.Rating = *req.Rating
	}
	if req.Comment != nil {
		rv.Comment = *req.Comment
	}
	if req.ReviewType != nil {
		rv.ReviewType = *req.ReviewType
	}

	if err := h.Reviews.Update(ctx, rv); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not update review"})
	}
	return c.JSON(http.StatusOK, rv)
}

// Delete removes a review. Reachable only by staff; the route gate
// enforces that.
func (h *ReviewHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid review id"})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	if err := h.Reviews.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "review not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not delete review"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Stats returns the aggregate review figures for the marketing dashboard.
func (h *ReviewHandler) Stats(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()

	stats, err := h.Reviews.Stats(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not compute stats"})
	}
	return c.JSON(http.StatusOK, stats)
}
