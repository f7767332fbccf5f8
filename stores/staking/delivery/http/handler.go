package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/x-xyz/cloutledger/base/delivery"
	"github.com/x-xyz/cloutledger/domain"
	"github.com/x-xyz/cloutledger/domain/staking"
	"github.com/x-xyz/cloutledger/middleware"
)

const defaultPageSize = 50

type handler struct {
	staking staking.Usecase
}

type positionView struct {
	*staking.Position
	PreviewRewards domain.Amount `json:"previewRewards"`
}

func New(e *echo.Echo, m *middleware.GoMiddleware, us staking.Usecase) {
	h := &handler{us}

	g := e.Group("/pools")
	g.POST("", h.createPool, m.Caller())
	g.GET("/:pool", h.getPool, middleware.IsValidAddress("pool"))
	g.POST("/:pool/rate", h.updateRate, middleware.IsValidAddress("pool"), m.Caller())
	g.POST("/:pool/stake", h.stake, middleware.IsValidAddress("pool"), m.Caller())
	g.POST("/:pool/unstake", h.unstake, middleware.IsValidAddress("pool"), m.Caller())
	g.POST("/:pool/harvest", h.harvest, middleware.IsValidAddress("pool"), m.Caller(), m.Cosigners())
	g.GET("/:pool/positions", h.listPositions, middleware.IsValidAddress("pool"))
	g.GET("/:pool/positions/:owner", h.getPosition, middleware.IsValidAddress("pool"), middleware.IsValidAddress("owner"))
}

func (h *handler) createPool(c echo.Context) error {
	p := staking.CreatePoolParams{}
	if err := delivery.Bind(c, &p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}
	p.Authority = middleware.CallerOf(c)

	res, err := h.staking.CreatePool(middleware.Ctx(c), p)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusCreated, res)
}

func (h *handler) getPool(c echo.Context) error {
	res, err := h.staking.GetPool(middleware.Ctx(c), delivery.Address(c, "pool"))
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}

func (h *handler) updateRate(c echo.Context) error {
	type payload struct {
		RewardRate domain.Amount `json:"rewardRate"`
	}
	p := payload{}
	if err := delivery.Bind(c, &p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}

	res, err := h.staking.UpdateRewardRate(middleware.Ctx(c), middleware.CallerOf(c), delivery.Address(c, "pool"), p.RewardRate)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}

func (h *handler) stake(c echo.Context) error {
	p := staking.StakeParams{}
	if err := delivery.Bind(c, &p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}
	p.Pool = delivery.Address(c, "pool")
	p.Staker = middleware.CallerOf(c)

	res, err := h.staking.Stake(middleware.Ctx(c), p)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}

func (h *handler) unstake(c echo.Context) error {
	p := staking.UnstakeParams{}
	if err := delivery.Bind(c, &p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}
	p.Pool = delivery.Address(c, "pool")
	p.Staker = middleware.CallerOf(c)

	res, err := h.staking.Unstake(middleware.Ctx(c), p)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}

func (h *handler) harvest(c echo.Context) error {
	p := staking.HarvestParams{}
	if err := delivery.Bind(c, &p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}
	p.Pool = delivery.Address(c, "pool")
	p.Staker = middleware.CallerOf(c)
	if err := middleware.RequireSigners(c, p.PoolAuthority); err != nil {
		return delivery.MakeJsonResp(c, http.StatusForbidden, err)
	}

	amount, err := h.staking.Harvest(middleware.Ctx(c), p)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, map[string]domain.Amount{"harvested": amount})
}

func (h *handler) listPositions(c echo.Context) error {
	type params struct {
		Offset int `query:"offset"`
		Limit  int `query:"limit"`
	}
	p := params{}
	if err := delivery.Bind(c, &p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}
	if p.Limit <= 0 {
		p.Limit = defaultPageSize
	}

	res, err := h.staking.ListPositions(middleware.Ctx(c), delivery.Address(c, "pool"), p.Offset, p.Limit)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}

func (h *handler) getPosition(c echo.Context) error {
	ctx := middleware.Ctx(c)
	pool, owner := delivery.Address(c, "pool"), delivery.Address(c, "owner")

	pos, err := h.staking.GetPosition(ctx, pool, owner)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	preview, err := h.staking.PreviewPosition(ctx, pool, owner)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, positionView{pos, preview})
}
