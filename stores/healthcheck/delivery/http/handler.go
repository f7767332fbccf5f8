package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/x-xyz/cloutledger/base/delivery"
	hcdomain "github.com/x-xyz/cloutledger/domain/healthcheck"
	"github.com/x-xyz/cloutledger/middleware"
)

type healthCheckHandler struct {
	healthCheck hcdomain.HealthCheckUsecase
}

// New will initialize the healthcheck/
func New(e *echo.Echo, us hcdomain.HealthCheckUsecase) {
	handler := &healthCheckHandler{
		healthCheck: us,
	}
	g := e.Group("/health")
	g.GET("", handler.check)
}

func (h *healthCheckHandler) check(c echo.Context) error {
	status, err := h.healthCheck.Check(middleware.Ctx(c))
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, delivery.JsonResponse{Data: status, Status: delivery.JsonResponseStatusFail})
	}
	return delivery.MakeJsonResp(c, http.StatusOK, status)
}
