package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// A single validator instance is used, because it caches struct parsing.
var validate = func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}()

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Error   string `json:"error"`
	Type    string `json:"type,omitempty"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(true)
	if err := enc.Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func writeError(w http.ResponseWriter, status int, msg, typ string) {
	writeJSON(w, status, errorResponse{Error: msg, Type: typ})
}

// readJSON decodes and validates the request body, writing a 400 on
// failure.
func readJSON(w http.ResponseWriter, r *http.Request, v any, invalidMsg string) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", "BadRequest")
		return false
	}
	err := validate.Struct(v)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   invalidMsg,
			Type:    "ValidationError",
			Details: verrs[0].Field() + " failed " + verrs[0].Tag(),
		})
		return false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Validation failed", "InternalError")
		return false
	}
	return true
}
