package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"learnsprout/internal/models"
)

const maxBodyBytes = 1 << 20

var (
	validate   *validator.Validate
	translator ut.Translator

	notBlankTag = "notblank"
	weekdayTag  = "weekday"
)

func init() {
	validate = validator.New()

	english := en.New()
	uni := ut.New(english, english)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(notBlankTag, func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = validate.RegisterValidation(weekdayTag, func(fl validator.FieldLevel) bool {
		return models.Weekday(fl.Field().String()).Valid()
	})

	noop := func(ut.Translator) error { return nil }
	for _, tag := range []string{notBlankTag, weekdayTag} {
		_ = validate.RegisterTranslation(tag, translator, noop, translateCustom)
	}
}

func translateCustom(_ ut.Translator, fe validator.FieldError) string {
	switch fe.Tag() {
	case notBlankTag:
		return fmt.Sprintf("%s cannot be blank", fe.Field())
	case weekdayTag:
		return fmt.Sprintf("%s must be a day of the week", fe.Field())
	default:
		return fe.Error()
	}
}

func translateErrors(errs validator.ValidationErrors) map[string]string {
	fields := make(map[string]string, len(errs))
	for _, fe := range errs {
		key := fe.Namespace()
		if i := strings.Index(key, "."); i >= 0 {
			key = key[i+1:]
		}
		fields[key] = fe.Translate(translator)
	}
	return fields
}

var errUnsupportedMedia = errors.New("content type must be application/json")

// decodeJSON reads one JSON object from the request body into dst and validates it.
// Unknown fields are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return errUnsupportedMedia
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("failed to decode body: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("body must contain a single JSON object")
	}
	return validate.Struct(dst)
}

// bindJSON decodes and validates a request body, writing the error response itself.
// It reports whether the handler should continue.
func bindJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	err := decodeJSON(w, r, dst)
	if err == nil {
		return true
	}

	var vErrs validator.ValidationErrors
	switch {
	case errors.Is(err, errUnsupportedMedia):
		respondJSONError(w, http.StatusUnsupportedMediaType, err.Error(), "", nil)
	case errors.As(err, &vErrs):
		respondServiceError(w, err)
	default:
		respondJSONError(w, http.StatusBadRequest, ErrInvalidJSON, "", err)
	}
	return false
}
