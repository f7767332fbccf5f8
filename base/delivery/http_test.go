package delivery

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"

	"github.com/x-xyz/cloutledger/domain"
)

func TestMakeJsonResp(t *testing.T) {
	errTooLate := domain.NewError(domain.KindValidation, "ListingExpired", "listing has expired")
	cases := []struct {
		desc     string
		status   int
		data     interface{}
		expCode  int
		expState JsonResponseStatus
		expErr   string
	}{
		{"success", http.StatusOK, map[string]string{"a": "b"}, http.StatusOK, JsonResponseStatusSuccess, ""},
		{"plain fail", http.StatusBadRequest, "invalid params", http.StatusBadRequest, JsonResponseStatusFail, ""},
		{"validation", http.StatusInternalServerError, errTooLate, http.StatusBadRequest, JsonResponseStatusFail, "ListingExpired"},
		{"wrapped", http.StatusInternalServerError, xerrors.Errorf("settle: %w", errTooLate), http.StatusBadRequest, JsonResponseStatusFail, "ListingExpired"},
		{"arithmetic", http.StatusInternalServerError, domain.ErrMathOverflow, http.StatusUnprocessableEntity, JsonResponseStatusFail, domain.ErrMathOverflow.Code},
		{"not found", http.StatusInternalServerError, domain.ErrNotFound, http.StatusNotFound, JsonResponseStatusFail, "NotFound"},
		{"conflict", http.StatusInternalServerError, domain.ErrConflict, http.StatusConflict, JsonResponseStatusFail, "Conflict"},
		{"unauthorized", http.StatusInternalServerError, domain.ErrUnauthorized, http.StatusForbidden, JsonResponseStatusFail, domain.ErrUnauthorized.Code},
		{"foreign", http.StatusInternalServerError, xerrors.New("boom"), http.StatusInternalServerError, JsonResponseStatusFail, ""},
	}

	for _, c := range cases {
		e := echo.New()
		rec := httptest.NewRecorder()
		ec := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

		require.NoError(t, MakeJsonResp(ec, c.status, c.data), c.desc)
		require.Equal(t, c.expCode, rec.Code, c.desc)

		var res JsonResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res), c.desc)
		require.Equal(t, c.expState, res.Status, c.desc)
		require.Equal(t, c.expErr, res.Code, c.desc)
	}
}

func TestStatusOf(t *testing.T) {
	require.Equal(t, http.StatusConflict, StatusOf(domain.KindState))
	require.Equal(t, http.StatusInternalServerError, StatusOf(domain.KindInternal))
}

type bindPayload struct {
	Owner    domain.Address  `json:"owner" validate:"required"`
	Delegate *domain.Address `json:"delegate"`
	Caller   domain.Address  `json:"-"`
	Amount   domain.Amount   `json:"amount"`
}

type noopValidator struct{}

func (noopValidator) Validate(interface{}) error { return nil }

func TestBindLowersAddresses(t *testing.T) {
	e := echo.New()
	e.Validator = noopValidator{}
	body := `{"owner":"0xABCDEF0000000000000000000000000000000001","delegate":"0xAB00000000000000000000000000000000000002","amount":"42"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	ec := e.NewContext(req, httptest.NewRecorder())

	var p bindPayload
	require.NoError(t, Bind(ec, &p))
	require.Equal(t, domain.Address("0xabcdef0000000000000000000000000000000001"), p.Owner)
	require.NotNil(t, p.Delegate)
	require.Equal(t, domain.Address("0xab00000000000000000000000000000000000002"), *p.Delegate)
	require.Equal(t, domain.Amount(42), p.Amount)
}

func TestBindRejectsMalformedBody(t *testing.T) {
	e := echo.New()
	e.Validator = noopValidator{}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount":`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	ec := e.NewContext(req, httptest.NewRecorder())

	var p bindPayload
	err := Bind(ec, &p)
	require.Error(t, err)
	require.Equal(t, domain.KindValidation, domain.KindOf(err))
}
