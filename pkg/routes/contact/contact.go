package contact

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	contactrepo "github.com/Ramsey-B/clover/internal/repositories/contact"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/validation"
)

// Register registers contact CRUD routes
func Register(g *echo.Group) {
	g.POST("/contacts", CreateContact)
	g.GET("/contacts", ListContacts)
	g.GET("/contacts/:id", GetContact)
	g.PUT("/contacts/:id", UpdateContact)
	g.DELETE("/contacts/:id", DeleteContact)
}

// CreateContact creates a new standalone primary contact
func CreateContact(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.CreateContactRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	email := validation.NormalizeEmail(req.Email)
	phone := validation.NormalizePhone(req.PhoneNumber)
	if email == nil && phone == nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "at least one of email or phoneNumber must be provided")
	}
	if email != nil && !validation.ValidEmail(*email) {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid email format")
	}
	if phone != nil && !validation.ValidPhone(*phone) {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid phone number format")
	}

	ctx, repo, err := ectoinject.GetContext[*contactrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	contact := &models.Contact{
		Email:          email,
		PhoneNumber:    phone,
		LinkPrecedence: models.LinkPrecedencePrimary,
	}
	if err := repo.Insert(ctx, contact); err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, contact)
}

// ListContacts retrieves contacts with pagination
func ListContacts(c echo.Context) error {
	ctx := c.Request().Context()

	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))

	ctx, repo, err := ectoinject.GetContext[*contactrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	resp, err := repo.List(ctx, page, pageSize)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, resp)
}

// GetContact retrieves a contact by id
func GetContact(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := parseID(c)
	if err != nil {
		return err
	}

	ctx, repo, err := ectoinject.GetContext[*contactrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	contact, err := repo.Get(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, contact)
}

// UpdateContact updates the provided fields of a contact
func UpdateContact(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := parseID(c)
	if err != nil {
		return err
	}

	var req models.UpdateContactRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx, repo, err := ectoinject.GetContext[*contactrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	contact, err := repo.Get(ctx, id)
	if err != nil {
		return err
	}

	if req.Email != nil {
		email := validation.NormalizeEmail(req.Email)
		if email != nil && !validation.ValidEmail(*email) {
			return httperror.NewHTTPError(http.StatusBadRequest, "invalid email format")
		}
		contact.Email = email
	}
	if req.PhoneNumber != nil {
		phone := validation.NormalizePhone(req.PhoneNumber)
		if phone != nil && !validation.ValidPhone(*phone) {
			return httperror.NewHTTPError(http.StatusBadRequest, "invalid phone number format")
		}
		contact.PhoneNumber = phone
	}
	if req.LinkPrecedence != nil {
		if *req.LinkPrecedence != models.LinkPrecedencePrimary && *req.LinkPrecedence != models.LinkPrecedenceSecondary {
			return httperror.NewHTTPError(http.StatusBadRequest, "invalid linkPrecedence")
		}
		contact.LinkPrecedence = *req.LinkPrecedence
		if contact.LinkPrecedence == models.LinkPrecedencePrimary {
			contact.LinkedID = nil
		}
	}

	if contact.Email == nil && contact.PhoneNumber == nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "contact must keep at least one of email or phoneNumber")
	}

	if err := repo.Update(ctx, contact); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, contact)
}

// DeleteContact soft deletes a contact
func DeleteContact(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := parseID(c)
	if err != nil {
		return err
	}

	ctx, repo, err := ectoinject.GetContext[*contactrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := repo.SoftDelete(ctx, id); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, httperror.NewHTTPError(http.StatusBadRequest, "invalid contact id")
	}
	return id, nil
}
