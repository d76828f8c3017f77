// Package validate checks form payloads before they reach the network.
//
// Every form is validated with struct tags on the model types plus a few
// custom tags registered here. Failures are returned as errs.FieldErrors
// keyed by the JSON field name, carrying the message shown next to the field.
package validate

import (
	"errors"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/and161185/flasheng/internal/errs"
)

// Currencies accepted by the article form.
var Currencies = []string{"USD", "EUR", "GBP", "UAH", "JPY"}

// Categories accepted by the flashcard form.
var Categories = []string{
	"Animals", "Food", "Travel", "Technology", "Business", "Health",
	"Education", "Sports", "Nature", "Science", "Art", "Music",
	"History", "Geography", "Literature", "Movies",
}

// Difficulties accepted by the flashcard form.
var Difficulties = []string{"Beginner", "Intermediate", "Advanced"}

var (
	emailRe = regexp.MustCompile(`^\S+@\S+\.\S+$`)
	phoneRe = regexp.MustCompile(`^\+?[1-9]\d{8,14}$`)
	zipRe   = regexp.MustCompile(`^\d{5}(-\d{4})?$`)
	mmyyRe  = regexp.MustCompile(`^(0[1-9]|1[0-2])/(\d{2})$`)
)

// Validator runs form validation. The zero value is not usable; call New.
type Validator struct {
	v   *validator.Validate
	now func() time.Time
}

// Option tunes a Validator.
type Option func(*Validator)

// WithClock overrides time.Now for card expiry checks.
func WithClock(now func() time.Time) Option { return func(x *Validator) { x.now = now } }

// New builds a Validator with the custom tags registered.
func New(opts ...Option) *Validator {
	x := &Validator{v: validator.New(validator.WithRequiredStructEnabled()), now: time.Now}
	for _, o := range opts {
		o(x)
	}

	x.v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return lowerFirst(fld.Name)
		}
		return name
	})
	x.v.RegisterCustomTypeFunc(func(v reflect.Value) any {
		d, ok := v.Interface().(decimal.Decimal)
		if !ok {
			return nil
		}
		f, _ := d.Float64()
		return f
	}, decimal.Decimal{})

	must(x.v.RegisterValidation("email_loose", func(fl validator.FieldLevel) bool {
		return emailRe.MatchString(fl.Field().String())
	}))
	must(x.v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phoneRe.MatchString(strings.ReplaceAll(fl.Field().String(), " ", ""))
	}))
	must(x.v.RegisterValidation("zip", func(fl validator.FieldLevel) bool {
		return zipRe.MatchString(fl.Field().String())
	}))
	must(x.v.RegisterValidation("mmyy", func(fl validator.FieldLevel) bool {
		return mmyyRe.MatchString(fl.Field().String())
	}))
	must(x.v.RegisterValidation("mmyy_future", x.notExpired))
	must(x.v.RegisterValidation("image_url", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "data:image/")
	}))
	must(x.v.RegisterValidation("currency", oneOf(Currencies)))
	must(x.v.RegisterValidation("category", oneOf(Categories)))
	must(x.v.RegisterValidation("difficulty", oneOf(Difficulties)))
	return x
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

func oneOf(allowed []string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		for _, a := range allowed {
			if s == a {
				return true
			}
		}
		return false
	}
}

// notExpired accepts a MM/YY card date through the last day of that month.
func (x *Validator) notExpired(fl validator.FieldLevel) bool {
	m := mmyyRe.FindStringSubmatch(fl.Field().String())
	if m == nil {
		// format errors are reported by the mmyy tag
		return true
	}
	month, _ := strconv.Atoi(m[1])
	year, _ := strconv.Atoi(m[2])
	end := time.Date(2000+year, time.Month(month)+1, 1, 0, 0, 0, 0, time.UTC)
	return x.now().UTC().Before(end)
}

// Struct validates any tagged struct and converts failures to FieldErrors.
func (x *Validator) Struct(s any) error {
	err := x.v.Struct(s)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return err
	}
	fe := errs.FieldErrors{}
	for _, e := range ves {
		if _, seen := fe[e.Field()]; seen {
			continue
		}
		fe[e.Field()] = message(e)
	}
	return fe.OrNil()
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}
