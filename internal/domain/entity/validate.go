package entity

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/ignatzorin/feedreach-backend/internal/pkg/apperror"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func formValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			if label := fld.Tag.Get("label"); label != "" {
				return label
			}
			return fld.Name
		})
	})
	return validate
}

// validateStruct проверяет теги validate и превращает первую ошибку в ValidationError.
func validateStruct(v any) error {
	err := formValidator().Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperror.Wrap(err, apperror.ErrCodeValidation, "некорректные данные")
	}

	fe := fieldErrs[0]
	field := fe.Field()
	if i := strings.IndexByte(field, '['); i >= 0 {
		field = field[:i]
	}

	var msg string
	switch fe.Tag() {
	case "required":
		msg = fmt.Sprintf("поле %s обязательно", field)
	case "max":
		if fe.Kind() == reflect.Slice {
			msg = fmt.Sprintf("поле %s: не более %s элементов", field, fe.Param())
		} else {
			msg = fmt.Sprintf("поле %s: не более %s символов", field, fe.Param())
		}
	case "gte", "lte":
		msg = fmt.Sprintf("поле %s вне допустимого диапазона", field)
	case "url":
		msg = fmt.Sprintf("поле %s должно содержать корректные ссылки", field)
	case "numeric":
		msg = fmt.Sprintf("поле %s должно содержать только цифры", field)
	default:
		msg = fmt.Sprintf("поле %s заполнено некорректно", field)
	}
	return apperror.Wrap(err, apperror.ErrCodeValidation, msg)
}
