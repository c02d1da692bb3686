// Package bind decodes and validates request input into a struct.
//
// Mutations carry a JSON body (JSON); queries carry their input in the query
// string (Query). Both run pkg/validate afterwards.
package bind

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/humanebio/storefront/config"
	"github.com/humanebio/storefront/pkg/validate"
)

// maxBodyBytes returns the configured request body size limit (default 4 MB).
func maxBodyBytes() int64 {
	n := config.GetInt("MAX_BODY_BYTES", 4<<20)
	if n <= 0 {
		return 4 << 20
	}
	return int64(n)
}

// JSON decodes r.Body as JSON into dest and runs validation.
// Returns (errs, nil) when there are validation failures.
// Returns (nil, err) when the body is malformed JSON or too large.
// An empty body decodes to the zero value, so required-field rules still apply.
func JSON(r *http.Request, dest interface{}) (errs map[string]string, err error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes())

	dec := json.NewDecoder(r.Body)
	if err = dec.Decode(dest); err != nil && !errors.Is(err, io.EOF) {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, fmt.Errorf("request body too large (max %d bytes)", maxErr.Limit)
		}
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	return check(dest), nil
}

// Query fills dest's fields from r's query string using their json tag
// names. Supported field kinds: string, bool, signed and unsigned ints.
func Query(r *http.Request, dest interface{}) (errs map[string]string, err error) {
	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return nil, errors.New("bind: Query needs a pointer to a struct")
	}
	rv = rv.Elem()
	rt := rv.Type()
	q := r.URL.Query()

	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" || !f.IsExported() {
			continue
		}
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		if err := setField(rv.Field(i), raw); err != nil {
			return map[string]string{name: fmt.Sprintf("The %s field is invalid.", name)}, nil
		}
	}

	return check(dest), nil
}

func setField(v reflect.Value, raw string) error {
	switch v.Kind() {
	case reflect.String:
		v.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		v.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return err
		}
		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return err
		}
		v.SetUint(n)
	default:
		return fmt.Errorf("bind: unsupported kind %s", v.Kind())
	}
	return nil
}

func check(dest interface{}) map[string]string {
	if errs := validate.Struct(dest); validate.HasErrors(errs) {
		return errs
	}
	return nil
}
