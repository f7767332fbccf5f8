package delivery

import (
	"reflect"

	"github.com/labstack/echo/v4"

	"github.com/x-xyz/cloutledger/domain"
)

var addressType = reflect.TypeOf(domain.Address(""))

// Bind decodes the request into payload, lowercases its top-level
// domain.Address fields and runs the echo validator. Errors are domain
// validation errors.
func Bind(c echo.Context, payload interface{}) error {
	if err := c.Bind(payload); err != nil {
		return domain.NewError(domain.KindValidation, "BadParamInput", err.Error())
	}
	lowerAddresses(reflect.ValueOf(payload))
	if err := c.Validate(payload); err != nil {
		return err
	}
	return nil
}

func lowerAddresses(v reflect.Value) {
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return
	}
	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)
		if !f.CanSet() {
			continue
		}
		switch {
		case f.Type() == addressType:
			f.Set(reflect.ValueOf(domain.Address(f.String()).ToLower()))
		case f.Kind() == reflect.Ptr && f.Type().Elem() == addressType && !f.IsNil():
			f.Elem().Set(reflect.ValueOf(domain.Address(f.Elem().String()).ToLower()))
		}
	}
}

// Address returns the path parameter name as a lowercased address.
func Address(c echo.Context, name string) domain.Address {
	return domain.Address(c.Param(name)).ToLower()
}
