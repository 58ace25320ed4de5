package httpapi

import (
	"errors"

	"horse.fit/showlist/internal/validation"
)

// requestValidator plugs the shared validator into echo's c.Validate.
type requestValidator struct{}

func (requestValidator) Validate(i any) error {
	return validation.Struct(i)
}

func validationFields(err error) (map[string]string, bool) {
	var verr *validation.Error
	if !errors.As(err, &verr) {
		return nil, false
	}
	out := make(map[string]string, len(verr.Fields))
	for _, f := range verr.Fields {
		msg := f.Tag
		if f.Param != "" {
			msg += "=" + f.Param
		}
		out[f.Field] = msg
	}
	return out, true
}
