package identify

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doIdentify(t *testing.T, body string) error {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/identify", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return Identify(e.NewContext(req, rec))
}

func TestIdentifyRejectsEmptyObservation(t *testing.T) {
	for _, body := range []string{
		`{}`,
		`{"email": null, "phoneNumber": null}`,
		`{"email": "", "phoneNumber": ""}`,
		`{"email": "   "}`,
	} {
		err := doIdentify(t, body)
		require.Error(t, err, body)
		assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err), body)
	}
}

func TestIdentifyRejectsBadFormats(t *testing.T) {
	for _, body := range []string{
		`{"email": "not-an-email"}`,
		`{"email": "a@b"}`,
		`{"phoneNumber": "12"}`,
		`{"phoneNumber": "0123456789"}`,
		`{"email": "a@x.com", "phoneNumber": "abc"}`,
	} {
		err := doIdentify(t, body)
		require.Error(t, err, body)
		assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err), body)
	}
}

func TestIdentifyRejectsMalformedBody(t *testing.T) {
	err := doIdentify(t, `{"email": 5}`)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
}
