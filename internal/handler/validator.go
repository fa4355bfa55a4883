package handler

import (
    "errors"
    "fmt"
    "reflect"
    "strings"

    "github.com/go-playground/validator/v10"
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/cinema-ticket-booking/internal/model"
)

// RequestValidator adapts go-playground/validator to echo.Validator.
type RequestValidator struct {
    v *validator.Validate
}

// NewRequestValidator reports field names by their json tag.
func NewRequestValidator() *RequestValidator {
    v := validator.New(validator.WithRequiredStructEnabled())
    v.RegisterTagNameFunc(func(f reflect.StructField) string {
        name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
        if name == "-" {
            return ""
        }
        return name
    })
    // role accepts only the account roles known to the model package.
    _ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
        return model.ValidRole(fl.Field().String())
    })
    return &RequestValidator{v: v}
}

func (rv *RequestValidator) Validate(i interface{}) error {
    return rv.v.Struct(i)
}

// bindValid binds the body into dst and validates it, returning a message
// suitable for a 400 response.
func bindValid(c echo.Context, dst any) (string, bool) {
    if err := c.Bind(dst); err != nil {
        return "Invalid request body", false
    }
    if err := c.Validate(dst); err != nil {
        return validationMessage(err), false
    }
    return "", true
}

func validationMessage(err error) string {
    var ves validator.ValidationErrors
    if !errors.As(err, &ves) || len(ves) == 0 {
        return err.Error()
    }
    fe := ves[0]
    switch fe.Tag() {
    case "required":
        return fmt.Sprintf("%s is required", fe.Field())
    case "email":
        return fmt.Sprintf("%s must be a valid email", fe.Field())
    case "min":
        if fe.Kind() == reflect.String {
            return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
        }
        return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
    case "gt":
        return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
    case "oneof":
        return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
    case "role":
        return fmt.Sprintf("%s must be one of: %s %s %s", fe.Field(), model.RoleUser, model.RolePartner, model.RoleAdmin)
    case "datetime":
        return fmt.Sprintf("%s must match %s", fe.Field(), fe.Param())
    default:
        return fmt.Sprintf("%s is invalid", fe.Field())
    }
}
