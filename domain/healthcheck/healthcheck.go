package healthcheck

import (
	"github.com/x-xyz/cloutledger/base/ctx"
)

// Status reports each dependency as "ok", "disabled" or the error text.
type Status map[string]string

// HealthCheckUsecase represents the healthCheck's usecases
type HealthCheckUsecase interface {
	Check(c ctx.Ctx) (Status, error)
}

// HealthCheckRepo is repository layer of healthCheck
type HealthCheckRepo interface {
	PingDB(c ctx.Ctx) error
	PingCache(c ctx.Ctx) error
}
