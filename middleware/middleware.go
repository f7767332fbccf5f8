package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/x-xyz/cloutledger/base/ctx"
	"github.com/x-xyz/cloutledger/base/delivery"
	"github.com/x-xyz/cloutledger/base/log"
	"github.com/x-xyz/cloutledger/base/metrics"
	"github.com/x-xyz/cloutledger/base/validator"
	"github.com/x-xyz/cloutledger/domain"
)

const (
	// HeaderCallerAddress carries the identity vouched for by the gateway.
	HeaderCallerAddress = "X-Caller-Address"
	// HeaderCosignerAddress lists, comma separated, the extra signers the
	// gateway verified for this request.
	HeaderCosignerAddress = "X-Cosigner-Address"

	keyCtx       = "ctx"
	keyCaller    = "address"
	keyCosigners = "cosigners"
)

// GoMiddleware represent the data-struct for middleware
type GoMiddleware struct {
	met metrics.Service
}

// InitMiddleware initialize the middleware
func InitMiddleware() *GoMiddleware {
	return &GoMiddleware{met: metrics.New("http")}
}

// CORS will handle the CORS middleware
func (m *GoMiddleware) CORS(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set("Access-Control-Allow-Origin", "*")
		return next(c)
	}
}

// AddContext puts a ctx.Ctx tagged with the request id into echo
func (m *GoMiddleware) AddContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			base := ctx.Wrap(ctx.Background(), c.Request().Context())
			cont := ctx.WithValue(base, "requestID", c.Response().Header().Get(echo.HeaderXRequestID))
			c.Set(keyCtx, cont)
			return next(c)
		}
	}
}

// ResponseLogger logs response for every request
func (m *GoMiddleware) ResponseLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			defer m.met.BumpTime("request.time", "method", c.Request().Method, "path", c.Path()).End()

			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			fields := log.Fields{
				"ms":         time.Since(start).Seconds() * 1000,
				"httpStatus": res.Status,
				"host":       req.Host,
				"remoteIP":   c.RealIP(),
				"uri":        req.URL.Path,
				"httpMethod": req.Method,
				"size":       res.Size,
				"userAgent":  req.UserAgent(),
				"caller":     req.Header.Get(HeaderCallerAddress),
				"cosigners":  req.Header.Get(HeaderCosignerAddress),
			}
			if res.Status >= 400 {
				fields["nextErr"] = err
				m.met.BumpSum("request.err", 1, "status", http.StatusText(res.Status), "path", c.Path())
			}

			Ctx(c).WithFields(fields).Info("response")
			return nil
		}
	}
}

// Caller requires the caller address header and exposes it as domain.Address
// under "address". The request ctx also gains a caller log field.
func (m *GoMiddleware) Caller() echo.MiddlewareFunc {
	return middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		KeyLookup: "header:" + HeaderCallerAddress,
		Validator: func(key string, c echo.Context) (bool, error) {
			if !validator.IsValidAddress(key) {
				return false, nil
			}
			address := domain.Address(key).ToLower()
			c.Set(keyCaller, address)
			c.Set(keyCtx, ctx.WithValue(Ctx(c), "caller", address))
			return true, nil
		},
		ErrorHandler: func(err error, c echo.Context) error {
			return delivery.MakeJsonResp(c, http.StatusUnauthorized, "missing or invalid "+HeaderCallerAddress)
		},
	})
}

// Cosigners collects every address in the co-signer header under "cosigners".
// A missing header means no co-signers; any malformed entry rejects the request.
func (m *GoMiddleware) Cosigners() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cosigners := []domain.Address{}
			for _, value := range c.Request().Header.Values(HeaderCosignerAddress) {
				for _, key := range strings.Split(value, ",") {
					key = strings.TrimSpace(key)
					if key == "" {
						continue
					}
					if !validator.IsValidAddress(key) {
						return delivery.MakeJsonResp(c, http.StatusUnauthorized, "invalid "+HeaderCosignerAddress)
					}
					cosigners = append(cosigners, domain.Address(key).ToLower())
				}
			}
			c.Set(keyCosigners, cosigners)
			return next(c)
		}
	}
}

// Ctx returns the request context set by AddContext, or a background one.
func Ctx(c echo.Context) ctx.Ctx {
	if cont, ok := c.Get(keyCtx).(ctx.Ctx); ok {
		return cont
	}
	return ctx.Background()
}

// CallerOf returns the address set by Caller.
func CallerOf(c echo.Context) domain.Address {
	address, _ := c.Get(keyCaller).(domain.Address)
	return address
}

// CosignersOf returns the addresses set by Cosigners.
func CosignersOf(c echo.Context) []domain.Address {
	cosigners, _ := c.Get(keyCosigners).([]domain.Address)
	return cosigners
}

// RequireSigners fails with domain.ErrMissingSignature unless every non-empty
// address is the caller or one of the co-signers.
func RequireSigners(c echo.Context, addresses ...domain.Address) error {
	for _, address := range addresses {
		if address.IsEmpty() || address.Equals(CallerOf(c)) {
			continue
		}
		signed := false
		for _, cosigner := range CosignersOf(c) {
			if cosigner.Equals(address) {
				signed = true
				break
			}
		}
		if !signed {
			return domain.ErrMissingSignature
		}
	}
	return nil
}

func IsValidAddress(param string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			if !validator.IsValidAddress(c.Param(param)) {
				return delivery.MakeJsonResp(c, http.StatusBadRequest, "invalid address")
			}
			return next(c)
		}
	}
}
