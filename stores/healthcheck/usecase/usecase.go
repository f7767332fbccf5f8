package usecase

import (
	"github.com/x-xyz/cloutledger/base/ctx"
	hcdomain "github.com/x-xyz/cloutledger/domain/healthcheck"
)

type impl struct {
	repo hcdomain.HealthCheckRepo
}

// New creates new healthCheckUsecase object representation of HealthCheckUsecase interface
func New(repo hcdomain.HealthCheckRepo) hcdomain.HealthCheckUsecase {
	return &impl{
		repo: repo,
	}
}

// Check pings every dependency and returns the first failure.
func (im *impl) Check(c ctx.Ctx) (hcdomain.Status, error) {
	status := hcdomain.Status{}
	var first error
	for name, ping := range map[string]func(ctx.Ctx) error{
		"db":    im.repo.PingDB,
		"cache": im.repo.PingCache,
	} {
		if err := ping(c); err != nil {
			status[name] = err.Error()
			if first == nil {
				first = err
			}
			continue
		}
		status[name] = "ok"
	}
	return status, first
}
