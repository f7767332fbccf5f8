package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/suite"

	"github.com/x-xyz/cloutledger/domain"
)

type MiddlewareTestSuite struct {
	suite.Suite
	e *echo.Echo
}

func TestMiddlewareTestSuite(t *testing.T) {
	suite.Run(t, new(MiddlewareTestSuite))
}

func (s *MiddlewareTestSuite) SetupTest() {
	m := InitMiddleware()
	s.e = echo.New()
	s.e.Use(m.AddContext())
	s.e.GET("/whoami", func(c echo.Context) error {
		return c.String(http.StatusOK, string(CallerOf(c)))
	}, m.Caller())
	s.e.GET("/cosigned/:signer", func(c echo.Context) error {
		if err := RequireSigners(c, domain.Address(c.Param("signer"))); err != nil {
			return c.String(http.StatusForbidden, err.Error())
		}
		parts := []string{}
		for _, a := range CosignersOf(c) {
			parts = append(parts, string(a))
		}
		return c.String(http.StatusOK, strings.Join(parts, ","))
	}, m.Caller(), m.Cosigners())
	s.e.GET("/accounts/:account", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	}, IsValidAddress("account"))
}

func (s *MiddlewareTestSuite) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *MiddlewareTestSuite) TestCaller() {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(HeaderCallerAddress, "0x939ae6A4C8dfDBB1f7085189574F0A938013952A")
	rec := s.do(req)
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("0x939ae6a4c8dfdbb1f7085189574f0a938013952a", rec.Body.String())
}

func (s *MiddlewareTestSuite) TestCallerRejected() {
	for _, header := range []string{"", "0x1234", "not an address"} {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		if header != "" {
			req.Header.Set(HeaderCallerAddress, header)
		}
		rec := s.do(req)
		s.Equal(http.StatusUnauthorized, rec.Code, header)
	}
}

func (s *MiddlewareTestSuite) TestIsValidAddress() {
	rec := s.do(httptest.NewRequest(http.MethodGet, "/accounts/0x939ae6a4c8dfdbb1f7085189574f0a938013952a", nil))
	s.Equal(http.StatusNoContent, rec.Code)

	rec = s.do(httptest.NewRequest(http.MethodGet, "/accounts/0x12", nil))
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *MiddlewareTestSuite) TestCallerOfWithoutMiddleware() {
	c := s.e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	s.Equal(domain.Address(""), CallerOf(c))
	s.NotNil(Ctx(c).Context)
}

const (
	caller   = "0x00000000000000000000000000000000000000a1"
	cosigner = "0x00000000000000000000000000000000000000AD"
	other    = "0x00000000000000000000000000000000000000b1"
)

func (s *MiddlewareTestSuite) cosigned(signer string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/cosigned/"+signer, nil)
	req.Header.Set(HeaderCallerAddress, caller)
	for _, h := range headers {
		req.Header.Add(HeaderCosignerAddress, h)
	}
	return s.do(req)
}

func (s *MiddlewareTestSuite) TestCosigners() {
	rec := s.cosigned(strings.ToLower(cosigner), cosigner+" , "+other)
	s.Equal(http.StatusOK, rec.Code)
	s.Equal(strings.ToLower(cosigner)+","+other, rec.Body.String())

	rec = s.cosigned(other, cosigner, other)
	s.Equal(http.StatusOK, rec.Code)
	s.Equal(strings.ToLower(cosigner)+","+other, rec.Body.String())

	// the caller always counts as a signer
	rec = s.cosigned(caller)
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("", rec.Body.String())
}

func (s *MiddlewareTestSuite) TestCosignersRejected() {
	rec := s.cosigned(cosigner)
	s.Equal(http.StatusForbidden, rec.Code)

	rec = s.cosigned(cosigner, other)
	s.Equal(http.StatusForbidden, rec.Code)

	rec = s.cosigned(cosigner, cosigner+",0x12")
	s.Equal(http.StatusUnauthorized, rec.Code)
}
