package tracker

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"foodsaver/internal/models"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// normalizeDraft fills defaults the way the add form does: a zero quantity
// means one, an empty purchase date means today, and unknown categories or
// units fall back to other/items.
func normalizeDraft(d models.Draft, reference time.Time) models.Draft {
	d.Name = strings.TrimSpace(d.Name)
	d.Category = models.ParseCategory(string(d.Category))
	d.Unit = models.ParseUnit(string(d.Unit))
	if d.Quantity == 0 {
		d.Quantity = 1
	}
	if d.PurchaseDate.IsZero() {
		d.PurchaseDate = models.StartOfDay(reference)
		// Items can be logged after they already expired
		if !d.ExpirationDate.IsZero() && d.PurchaseDate.After(d.ExpirationDate) {
			d.PurchaseDate = d.ExpirationDate
		}
	}
	return d
}

func validateDraft(d models.Draft) error {
	if err := validate.Struct(d); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return &models.ValidationError{Field: verrs[0].Field(), Reason: reasonFor(verrs[0])}
		}
		return &models.ValidationError{Field: "item", Reason: err.Error()}
	}
	if d.PurchaseDate.After(d.ExpirationDate) {
		return &models.ValidationError{Field: "purchaseDate", Reason: "must not be after expirationDate"}
	}
	return nil
}

func reasonFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
