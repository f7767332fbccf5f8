package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/x-xyz/cloutledger/base/delivery"
	"github.com/x-xyz/cloutledger/domain"
	"github.com/x-xyz/cloutledger/domain/loyalty"
	"github.com/x-xyz/cloutledger/middleware"
)

type handler struct {
	loyalty loyalty.Usecase
}

func New(e *echo.Echo, m *middleware.GoMiddleware, us loyalty.Usecase) {
	h := &handler{us}

	g := e.Group("/loyalty")
	g.POST("/registry", h.initializeRegistry, m.Caller())
	g.GET("/registry", h.getRegistry)
	g.POST("/registry/authority", h.setRegistryAuthority, m.Caller())

	g.POST("/profiles", h.registerProfile, m.Caller())
	g.GET("/profiles/:owner", h.getProfile, middleware.IsValidAddress("owner"))
	g.POST("/profiles/:owner/bonus", h.grantBonus, middleware.IsValidAddress("owner"), m.Caller())
	g.POST("/profiles/:owner/upgrade", h.upgradeTier, middleware.IsValidAddress("owner"), m.Caller())
	g.POST("/profiles/:owner/delegate", h.setDelegate, middleware.IsValidAddress("owner"), m.Caller())
}

func (h *handler) initializeRegistry(c echo.Context) error {
	type payload struct {
		PointsPerUnit domain.Amount `json:"pointsPerUnit"`
	}
	p := payload{}
	if err := delivery.Bind(c, &p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}

	res, err := h.loyalty.InitializeRegistry(middleware.Ctx(c), middleware.CallerOf(c), p.PointsPerUnit)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusCreated, res)
}

func (h *handler) getRegistry(c echo.Context) error {
	res, err := h.loyalty.GetRegistry(middleware.Ctx(c))
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}

func (h *handler) setRegistryAuthority(c echo.Context) error {
	type payload struct {
		Authority domain.Address `json:"authority" validate:"required,address"`
	}
	p := payload{}
	if err := delivery.Bind(c, &p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}

	res, err := h.loyalty.SetRegistryAuthority(middleware.Ctx(c), middleware.CallerOf(c), p.Authority)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}

func (h *handler) registerProfile(c echo.Context) error {
	res, err := h.loyalty.RegisterProfile(middleware.Ctx(c), middleware.CallerOf(c))
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusCreated, res)
}

func (h *handler) getProfile(c echo.Context) error {
	res, err := h.loyalty.GetProfile(middleware.Ctx(c), delivery.Address(c, "owner"))
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}

func (h *handler) grantBonus(c echo.Context) error {
	type payload struct {
		Points domain.Amount `json:"points"`
	}
	p := payload{}
	if err := delivery.Bind(c, &p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}

	res, err := h.loyalty.GrantBonus(middleware.Ctx(c), delivery.Address(c, "owner"), middleware.CallerOf(c), p.Points)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}

func (h *handler) upgradeTier(c echo.Context) error {
	res, err := h.loyalty.UpgradeTier(middleware.Ctx(c), delivery.Address(c, "owner"), middleware.CallerOf(c))
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}

// setDelegate is owner only; a missing delegate clears it.
func (h *handler) setDelegate(c echo.Context) error {
	type payload struct {
		Delegate *domain.Address `json:"delegate" validate:"omitempty,address"`
	}
	p := payload{}
	if err := delivery.Bind(c, &p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}
	owner := delivery.Address(c, "owner")
	if !owner.Equals(middleware.CallerOf(c)) {
		return delivery.MakeJsonResp(c, http.StatusForbidden, domain.ErrUnauthorized)
	}

	res, err := h.loyalty.SetDelegate(middleware.Ctx(c), owner, p.Delegate)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}
