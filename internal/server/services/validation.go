package services

import (
	"strconv"

	"github.com/dmitrijs2005/gophlicense/internal/common"
	"github.com/go-playground/validator/v10"
)

// Field lengths are counted in bytes, as they arrive in the fixed request
// buffers.
type registerFields struct {
	Name     string `validate:"minbytes=5,maxbytes=31"`
	Password string `validate:"minbytes=5,maxbytes=31"`
	Code     string `validate:"minbytes=5,maxbytes=31"`
}

type loginFields struct {
	Name     string `validate:"minbytes=5,maxbytes=31"`
	Password string `validate:"minbytes=5,maxbytes=31"`
}

type keyFields struct {
	Key string `validate:"minbytes=8,maxbytes=25"`
}

var fieldOutcomes = map[string]map[string]common.Outcome{
	"Name":     {"minbytes": common.NameTooShort, "maxbytes": common.NameTooLong},
	"Password": {"minbytes": common.PasswordTooShort, "maxbytes": common.PasswordTooLong},
	"Code":     {"minbytes": common.CodeTooShort, "maxbytes": common.CodeTooLong},
	"Key":      {"minbytes": common.KeyTooShort, "maxbytes": common.KeyTooLong},
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("minbytes", byteLen(func(n, limit int) bool { return n >= limit }))
	_ = v.RegisterValidation("maxbytes", byteLen(func(n, limit int) bool { return n <= limit }))
	return v
}

func byteLen(ok func(n, limit int) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return ok(len(fl.Field().String()), limit)
	}
}

// checkFields validates v and reports the first failure, all too-short
// failures ranking before any too-long failure, each in field order.
// It returns "" when every field is acceptable.
func checkFields(v any) common.Outcome {
	err := validate.Struct(v)
	if err == nil {
		return ""
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return common.GenericError
	}

	for _, tag := range []string{"minbytes", "maxbytes"} {
		for _, fe := range verrs {
			if fe.Tag() == tag {
				return fieldOutcomes[fe.StructField()][tag]
			}
		}
	}
	return common.GenericError
}
