package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/x-xyz/cloutledger/base/amount"
	"github.com/x-xyz/cloutledger/base/delivery"
	"github.com/x-xyz/cloutledger/domain"
	"github.com/x-xyz/cloutledger/domain/token"
	"github.com/x-xyz/cloutledger/middleware"
)

type handler struct {
	token     token.Usecase
	formatter amount.Formatter
	faucet    bool
}

type accountView struct {
	*token.Account
	DisplayBalance decimal.Decimal `json:"displayBalance"`
}

// New registers the token routes. Deposits answer FaucetDisabled unless faucet
// is set.
func New(e *echo.Echo, m *middleware.GoMiddleware, us token.Usecase, formatter amount.Formatter, faucet bool) {
	h := &handler{us, formatter, faucet}

	g := e.Group("/tokens")
	g.POST("/mints", h.createMint, m.Caller())
	g.GET("/mints/:mint", h.getMint, middleware.IsValidAddress("mint"))
	g.POST("/accounts", h.openAccount, m.Caller())
	g.GET("/accounts/:account", h.getAccount, middleware.IsValidAddress("account"))
	g.POST("/accounts/:account/deposit", h.deposit, middleware.IsValidAddress("account"), m.Caller())
	g.POST("/accounts/:account/transfer", h.transfer, middleware.IsValidAddress("account"), m.Caller())
}

func (h *handler) view(c echo.Context, a *token.Account) (accountView, error) {
	d, err := h.formatter.Format(middleware.Ctx(c), a.Mint, a.Balance)
	if err != nil {
		return accountView{}, err
	}
	return accountView{a, d}, nil
}

// createMint makes the caller the mint authority unless one is given.
func (h *handler) createMint(c echo.Context) error {
	type payload struct {
		Address   domain.Address `json:"address" validate:"required,address"`
		Authority domain.Address `json:"authority" validate:"omitempty,address"`
		Decimals  uint8          `json:"decimals" validate:"lte=18"`
	}
	p := payload{}
	if err := delivery.Bind(c, &p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}
	if p.Authority.IsEmpty() {
		p.Authority = middleware.CallerOf(c)
	}

	res, err := h.token.CreateMint(middleware.Ctx(c), p.Address, p.Authority, p.Decimals)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusCreated, res)
}

func (h *handler) getMint(c echo.Context) error {
	res, err := h.token.GetMint(middleware.Ctx(c), delivery.Address(c, "mint"))
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}

// openAccount opens an account owned by the caller.
func (h *handler) openAccount(c echo.Context) error {
	type payload struct {
		Address domain.Address `json:"address" validate:"required,address"`
		Mint    domain.Address `json:"mint" validate:"required"`
	}
	p := payload{}
	if err := delivery.Bind(c, &p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}

	res, err := h.token.OpenAccount(middleware.Ctx(c), p.Address, middleware.CallerOf(c), p.Mint)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	v, err := h.view(c, res)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusCreated, v)
}

func (h *handler) getAccount(c echo.Context) error {
	res, err := h.token.GetAccount(middleware.Ctx(c), delivery.Address(c, "account"))
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	v, err := h.view(c, res)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, v)
}

// deposit credits native value to a wallet. Amount is in display units.
func (h *handler) deposit(c echo.Context) error {
	if !h.faucet {
		return delivery.MakeJsonResp(c, http.StatusForbidden, token.ErrFaucetDisabled)
	}
	type payload struct {
		Amount string `json:"amount" validate:"required"`
	}
	p := payload{}
	if err := delivery.Bind(c, &p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}
	ctx := middleware.Ctx(c)
	value, err := h.formatter.Parse(ctx, domain.NativeMint, p.Amount)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}

	res, err := h.token.Deposit(ctx, delivery.Address(c, "account"), value)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	v, err := h.view(c, res)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, v)
}

// transfer moves base units out of an account owned by the caller.
func (h *handler) transfer(c echo.Context) error {
	type payload struct {
		To     domain.Address `json:"to" validate:"required,address"`
		Amount domain.Amount  `json:"amount"`
	}
	p := payload{}
	if err := delivery.Bind(c, &p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}

	ctx := middleware.Ctx(c)
	from := delivery.Address(c, "account")
	if err := h.token.Transfer(ctx, middleware.CallerOf(c), from, p.To, p.Amount); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	res, err := h.token.GetAccount(ctx, from)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	v, err := h.view(c, res)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, v)
}
