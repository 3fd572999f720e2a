package identify

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/reconcile"
	"github.com/Ramsey-B/clover/pkg/validation"
)

// Register registers the identify route
func Register(g *echo.Group) {
	g.POST("/identify", Identify)
}

// Identify reconciles an observation into its consolidated identity view
func Identify(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.IdentifyRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	email := validation.NormalizeEmail(req.Email)
	phone := validation.NormalizePhone(req.PhoneNumber)

	if email == nil && phone == nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "either email or phoneNumber must be provided")
	}
	if email != nil && !validation.ValidEmail(*email) {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid email format")
	}
	if phone != nil && !validation.ValidPhone(*phone) {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid phone number format")
	}

	ctx, engine, err := ectoinject.GetContext[*reconcile.Engine](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "reconciliation engine not available")
	}

	view, err := engine.Reconcile(ctx, reconcile.Observation{Email: email, PhoneNumber: phone})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, view)
}
