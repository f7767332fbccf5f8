package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/suite"

	"github.com/x-xyz/cloutledger/base/amount"
	"github.com/x-xyz/cloutledger/base/ctx"
	"github.com/x-xyz/cloutledger/base/metrics"
	bValidator "github.com/x-xyz/cloutledger/base/validator"
	"github.com/x-xyz/cloutledger/domain"
	"github.com/x-xyz/cloutledger/domain/token"
	"github.com/x-xyz/cloutledger/middleware"
	"github.com/x-xyz/cloutledger/service/executor"
	"github.com/x-xyz/cloutledger/service/query"
	"github.com/x-xyz/cloutledger/stores/token/repository"
	"github.com/x-xyz/cloutledger/stores/token/usecase"
)

const alice = domain.Address("0x00000000000000000000000000000000000000a1")

type envelope struct {
	Data   json.RawMessage `json:"data"`
	Status string          `json:"status"`
	Code   string          `json:"code"`
}

type HandlerTestSuite struct {
	suite.Suite
	tokens token.Usecase
}

func TestHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}

func (s *HandlerTestSuite) SetupTest() {
	q := query.NewMemory()
	s.tokens = usecase.New(repository.New(q), executor.New(q, metrics.New("test")))
}

func (s *HandlerTestSuite) server(faucet bool) *echo.Echo {
	m := middleware.InitMiddleware()
	e := echo.New()
	e.Validator = bValidator.NewCustomValidator(bValidator.New())
	e.Use(m.AddContext())
	New(e, m, s.tokens, amount.NewFormatter(s.tokens), faucet)
	return e
}

func (s *HandlerTestSuite) deposit(e *echo.Echo, value string) (int, envelope) {
	var buf bytes.Buffer
	s.Require().NoError(json.NewEncoder(&buf).Encode(map[string]string{"amount": value}))
	req := httptest.NewRequest(http.MethodPost, "/tokens/accounts/"+string(alice)+"/deposit", &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(middleware.HeaderCallerAddress, string(alice))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	env := envelope{}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &env))
	return rec.Code, env
}

func (s *HandlerTestSuite) TestDepositDisabledByDefault() {
	code, env := s.deposit(s.server(false), "1000")
	s.Equal(http.StatusForbidden, code)
	s.Equal("FaucetDisabled", env.Code)

	_, err := s.tokens.GetAccount(ctx.Background(), alice)
	s.ErrorIs(err, token.ErrAccountNotFound)
}

func (s *HandlerTestSuite) TestDepositWithFaucet() {
	code, env := s.deposit(s.server(true), "1.5")
	s.Require().Equal(http.StatusOK, code, string(env.Data))

	acc, err := s.tokens.GetAccount(ctx.Background(), alice)
	s.Require().NoError(err)
	s.Equal(domain.Amount(1_500_000_000), acc.Balance)
	s.True(acc.IsNative())
}
