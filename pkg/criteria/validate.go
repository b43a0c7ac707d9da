package criteria

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/matst80/slask-audience/pkg/types"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every field that blocks submission.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "invalid campaign: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

func (e *ValidationError) add(field, message string) {
	if e.Has(field) {
		return
	}
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

type requiredFields struct {
	Name      string `json:"name" validate:"required"`
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02"`
}

var messages = map[string]string{
	"name":          "Please enter campaign name",
	"period":        "Please select campaign dates",
	"purchase_type": "Please select a purchase type",
	"rfm_segments":  "Please select at least one RFM segment",
}

// Validate checks the fields that block submission: name, period, the
// purchase type when taxonomy or value filters are set and the segment when
// segmented RFM is active. The conditional rules only apply to structured
// audiences.
func Validate(src Source) error {
	sc := src.Scalars()
	verr := &ValidationError{}

	err := validate.Struct(requiredFields{
		Name:      strings.TrimSpace(sc.Name),
		StartDate: sc.Period.Start.ISO(),
		EndDate:   sc.Period.End.ISO(),
	})
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			switch fe.Field() {
			case "name":
				verr.add("name", messages["name"])
			default:
				verr.add("period", messages["period"])
			}
		}
	} else if err != nil {
		return err
	}
	if sc.Period.Complete() && sc.Period.End.Before(sc.Period.Start) {
		verr.add("period", "End date must not be before start date")
	}

	if types.ParseAudienceMode(string(sc.AudienceMode)).Structured() {
		if RequiresPurchaseType(src) && types.ParsePurchaseType(string(sc.PurchaseType)) == types.PurchaseNone {
			verr.add("purchase_type", messages["purchase_type"])
		}
		if types.ParseRfmMode(string(sc.RfmMode)) == types.RfmSegmented && len(sc.Segments) == 0 {
			verr.add("rfm_segments", messages["rfm_segments"])
		}
	}

	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}
