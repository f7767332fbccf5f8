package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/x-xyz/cloutledger/base/amount"
	"github.com/x-xyz/cloutledger/base/delivery"
	"github.com/x-xyz/cloutledger/base/ptr"
	"github.com/x-xyz/cloutledger/domain"
	"github.com/x-xyz/cloutledger/domain/escrow"
	"github.com/x-xyz/cloutledger/middleware"
)

const defaultPageSize = 50

type handler struct {
	escrow escrow.Usecase
}

type listingView struct {
	*escrow.Listing
	DisplayPrice decimal.Decimal `json:"displayPrice"`
}

func newListingView(l *escrow.Listing) listingView {
	return listingView{l, amount.ToDecimal(l.Price, amount.NativeDecimals)}
}

func New(e *echo.Echo, m *middleware.GoMiddleware, us escrow.Usecase) {
	h := &handler{us}

	g := e.Group("/listings")
	g.POST("", h.createListing, m.Caller())
	g.GET("", h.listListings)
	g.GET("/:listing", h.getListing, middleware.IsValidAddress("listing"))
	g.POST("/:listing/cancel", h.cancelListing, middleware.IsValidAddress("listing"), m.Caller())
	g.POST("/:listing/execute", h.executeSale, middleware.IsValidAddress("listing"), m.Caller())
	g.POST("/:listing/settle", h.settleSale, middleware.IsValidAddress("listing"), m.Caller(), m.Cosigners())
	g.GET("/:listing/vault", h.getVault, middleware.IsValidAddress("listing"))
	g.GET("/:listing/receipt", h.getReceipt, middleware.IsValidAddress("listing"))
}

func (h *handler) createListing(c echo.Context) error {
	p := escrow.CreateListingParams{}
	if err := delivery.Bind(c, &p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}
	p.Seller = middleware.CallerOf(c)

	res, err := h.escrow.CreateListing(middleware.Ctx(c), p)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusCreated, newListingView(res))
}

func (h *handler) listListings(c echo.Context) error {
	type params struct {
		Seller string `query:"seller"`
		Status string `query:"status"`
		Offset int    `query:"offset"`
		Limit  int    `query:"limit"`
	}
	p := params{}
	if err := delivery.Bind(c, &p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}

	filter := escrow.ListingFilter{Offset: p.Offset, Limit: p.Limit}
	if filter.Limit <= 0 {
		filter.Limit = defaultPageSize
	}
	if p.Seller != "" {
		filter.Seller = ptr.Address(domain.Address(p.Seller))
	}
	if p.Status != "" {
		status := escrow.Status(p.Status)
		filter.Status = &status
	}

	res, err := h.escrow.ListListings(middleware.Ctx(c), filter)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	views := make([]listingView, 0, len(res))
	for _, l := range res {
		views = append(views, newListingView(l))
	}
	return delivery.MakeJsonResp(c, http.StatusOK, views)
}

func (h *handler) getListing(c echo.Context) error {
	res, err := h.escrow.GetListing(middleware.Ctx(c), delivery.Address(c, "listing"))
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, newListingView(res))
}

func (h *handler) cancelListing(c echo.Context) error {
	res, err := h.escrow.CancelListing(middleware.Ctx(c), middleware.CallerOf(c), delivery.Address(c, "listing"))
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, newListingView(res))
}

func (h *handler) executeSale(c echo.Context) error {
	p := escrow.ExecuteSaleParams{}
	if err := delivery.Bind(c, &p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}
	p.Listing = delivery.Address(c, "listing")
	p.Buyer = middleware.CallerOf(c)

	res, err := h.escrow.ExecuteSale(middleware.Ctx(c), p)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, newListingView(res))
}

func (h *handler) settleSale(c echo.Context) error {
	p := escrow.SettleSaleParams{}
	if err := delivery.Bind(c, &p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}
	p.Listing = delivery.Address(c, "listing")
	p.Seller = middleware.CallerOf(c)
	if err := middleware.RequireSigners(c, p.RewardAuthority, p.LoyaltyAuthority); err != nil {
		return delivery.MakeJsonResp(c, http.StatusForbidden, err)
	}

	res, err := h.escrow.SettleSale(middleware.Ctx(c), p)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}

func (h *handler) getVault(c echo.Context) error {
	res, err := h.escrow.GetVault(middleware.Ctx(c), delivery.Address(c, "listing"))
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}

func (h *handler) getReceipt(c echo.Context) error {
	res, err := h.escrow.GetReceipt(middleware.Ctx(c), delivery.Address(c, "listing"))
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}
