package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dom/progress-tracker/internal/domain"
	"github.com/go-playground/validator/v10"
)

// maxFormMemory bounds the multipart fields held in memory; the forms here
// carry no files.
const maxFormMemory = 1 << 20

var errMalformedBody = errors.New("malformed request body")

// request is a typed payload that can be filled from either JSON or a form.
type request interface {
	fromForm(form url.Values)
	normalize()
}

// decodeRequest turns the body into dst and validates it. It returns
// errMalformedBody or *domain.ValidationErrors.
func decodeRequest(r *http.Request, v *validator.Validate, dst request) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "application/json":
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
			return errMalformedBody
		}
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxFormMemory); err != nil {
			return errMalformedBody
		}
		dst.fromForm(r.PostForm)
	default:
		if err := r.ParseForm(); err != nil {
			return errMalformedBody
		}
		dst.fromForm(r.PostForm)
	}

	dst.normalize()

	if err := v.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		out := &domain.ValidationErrors{}
		for _, fe := range verrs {
			out.Add(jsonFieldName(fe), fieldMessage(fe))
		}
		return out
	}
	return nil
}

func jsonFieldName(fe validator.FieldError) string {
	return strings.ToLower(fe.Field())
}

func fieldMessage(fe validator.FieldError) string {
	name := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", name)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", name, fe.Param())
	case "safe_text":
		return fmt.Sprintf("%s contains invalid characters", name)
	default:
		return fmt.Sprintf("%s is invalid", name)
	}
}

// flexBool accepts true/false, 0/1 and their string forms.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case bool:
		*b = flexBool(v)
	case float64:
		*b = v != 0
	case string:
		*b = flexBool(parseFormBool(v))
	case nil:
		*b = false
	default:
		return fmt.Errorf("invalid boolean %s", data)
	}
	return nil
}

func parseFormBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// optionalID is an id that may be sent as a number or a numeric string.
// Set is false when the field is absent; Value is 0 when it is unparseable.
type optionalID struct {
	Set   bool
	Value uint64
}

func (o *optionalID) UnmarshalJSON(data []byte) error {
	o.Set = true
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case float64:
		if v > 0 && v == float64(uint64(v)) {
			o.Value = uint64(v)
		}
	case string:
		o.Value = parseID(v)
	case nil:
		o.Set = false
	}
	return nil
}

// parseID returns 0 for anything that is not a positive integer.
func parseID(s string) uint64 {
	id, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
