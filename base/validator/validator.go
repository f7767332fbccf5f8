package validator

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/x-xyz/cloutledger/domain"
)

// IsValidAddress returns is an address valid or not
func IsValidAddress(address string) bool {
	if !common.IsHexAddress(address) {
		return false
	}
	checksum := common.HexToAddress(address).Hex()
	return strings.EqualFold(checksum, address)
}

// New returns a validator with the ledger's custom tags registered.
//
//	address  a 20-byte hex address, any case
func New() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("address", func(fl validator.FieldLevel) bool {
		switch a := fl.Field().Interface().(type) {
		case domain.Address:
			return IsValidAddress(string(a))
		case string:
			return IsValidAddress(a)
		}
		return false
	})
	return v
}

func NewCustomValidator(v *validator.Validate) echo.Validator {
	return &CustomValidator{v}
}

type CustomValidator struct {
	validator *validator.Validate
}

func (v *CustomValidator) Validate(i interface{}) error {
	if err := v.validator.Struct(i); err != nil {
		return domain.NewError(domain.KindValidation, "BadParamInput", err.Error())
	}
	return nil
}
