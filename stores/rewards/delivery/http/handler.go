package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/x-xyz/cloutledger/base/delivery"
	"github.com/x-xyz/cloutledger/domain"
	"github.com/x-xyz/cloutledger/domain/rewards"
	"github.com/x-xyz/cloutledger/middleware"
)

type handler struct {
	rewards rewards.Usecase
}

func New(e *echo.Echo, m *middleware.GoMiddleware, us rewards.Usecase) {
	h := &handler{us}

	g := e.Group("/rewards/vaults")
	g.POST("", h.initializeVault, m.Caller())
	g.GET("/:vault", h.getVault, middleware.IsValidAddress("vault"))
	g.POST("/:vault/emission", h.setEmissionRate, middleware.IsValidAddress("vault"), m.Caller())
}

func (h *handler) initializeVault(c echo.Context) error {
	type payload struct {
		RewardMint domain.Address `json:"rewardMint" validate:"required,address"`
	}
	p := payload{}
	if err := delivery.Bind(c, &p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}

	res, err := h.rewards.InitializeVault(middleware.Ctx(c), middleware.CallerOf(c), p.RewardMint)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusCreated, res)
}

func (h *handler) getVault(c echo.Context) error {
	res, err := h.rewards.GetVault(middleware.Ctx(c), delivery.Address(c, "vault"))
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}

func (h *handler) setEmissionRate(c echo.Context) error {
	type payload struct {
		EmissionRate domain.Amount `json:"emissionRate"`
	}
	p := payload{}
	if err := delivery.Bind(c, &p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}

	res, err := h.rewards.SetEmissionRate(middleware.Ctx(c), middleware.CallerOf(c), delivery.Address(c, "vault"), p.EmissionRate)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}
