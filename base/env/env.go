package env

import (
	"os"
)

// PodName example: ledger-api-6868d88fbd-bz8zv
func PodName() string {
	return os.Getenv("PODNAME")
}

// EnvName example: staging
func EnvName() string {
	return os.Getenv("ENV_NAME")
}

// AppName example: ledger-api
func AppName() string {
	if name := os.Getenv("APP_NAME"); name != "" {
		return name
	}
	return "cloutledger"
}
