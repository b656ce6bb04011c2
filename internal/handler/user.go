package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/avialex/api/internal/auth"
	"github.com/avialex/api/internal/config"
	"github.com/avialex/api/internal/model"
	"github.com/avialex/api/internal/repository"
)

// UserHandler owns staff-facing user administration.
type UserHandler struct {
	Cfg   config.Config
	Users *repository.UserRepo
}

// userUpdateRequest carries a partial update; nil fields keep the current
// value. A non-nil Password is re-hashed before storage.
type userUpdateRequest struct {
	Name     *string `json:"name"`
	Address  *string `json:"address"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
	Password *string `json:"password"`
	CPF      *string `json:"cpf"`
	RG       *string `json:"rg"`
	Type     *string `json:"type"`
}

// List returns users matching the optional query filters. With no filters
// it returns everyone.
func (h *UserHandler) List(c echo.Context) error {
	f := repository.UserFilter{
		Name:    c.QueryParam("name"),
		Address: c.QueryParam("address"),
		Email:   c.QueryParam("email"),
		Phone:   c.QueryParam("phone"),
		CPF:     c.QueryParam("cpf"),
		RG:      c.QueryParam("rg"),
	}
	if t := c.QueryParam("type"); t != "" {
		typ, ok := model.ParseUserType(t)
		if !ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user type"})
		}
		f.Type = typ
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	users, err := h.Users.Search(ctx, f)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not list users"})
	}
	if users == nil {
		users = []model.User{}
	}
	return c.JSON(http.StatusOK, users)
}

// GetByID returns one user.
func (h *UserHandler) GetByID(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load user"})
	}
	return c.JSON(http.StatusOK, u)
}

// Update merges a partial body into the stored row and writes it back.
func (h *UserHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	var req userUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load user"})
	}

	if req.Name != nil {
		u.Name = *req.Name
	}
	if req.Address != nil {
		u.Address = *req.Address
	}
	if req.Email != nil {
		u.Email = *req.Email
	}
	if req.Phone != nil {
		u.Phone = *req.Phone
	}
	if req.CPF != nil {
		u.CPF = *req.CPF
	}
	if req.RG != nil {
		u.RG = *req.RG
	}
	if req.Type != nil {
		typ, ok := model.ParseUserType(*req.Type)
		if !ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user type"})
		}
		u.Type = typ
	}
	if req.Password != nil && *req.Password != "" {
		hash, err := auth.HashPassword(*req.Password, h.Cfg.BcryptCost)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not hash password"})
		}
		u.PasswordHash = hash
	}

	if err := h.Users.Update(ctx, u); err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
		case errors.Is(err, repository.ErrCPFExists):
			return c.JSON(http.StatusConflict, echo.Map{"error": "cpf already registered"})
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not update user"})
	}
	return c.JSON(http.StatusOK, u)
}

// Delete removes a user. Users still referenced by processes cannot be
// deleted.
func (h *UserHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	switch err := h.Users.Delete(ctx, id); {
	case errors.Is(err, repository.ErrUserHasProcesses):
		return c.JSON(http.StatusConflict, echo.Map{"error": "user still has processes"})
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not delete user"})
	}
	return c.NoContent(http.StatusNoContent)
}
