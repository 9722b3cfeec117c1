package http

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"solde/internal/core"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

const maxBodyBytes = 1 << 20

var errMalformedBody = errors.New("malformed request body")

// SchemaError lists JSON-schema violations of a request body.
type SchemaError struct {
	Details []string
}

func (e *SchemaError) Error() string {
	return "schema invalid: " + strings.Join(e.Details, "; ")
}

type bodySchemas struct {
	transaction *gojsonschema.Schema
	goal        *gojsonschema.Schema
}

func loadSchemas() (bodySchemas, error) {
	tx, err := loadSchema("transaction.schema.json")
	if err != nil {
		return bodySchemas{}, err
	}
	goal, err := loadSchema("goal.schema.json")
	if err != nil {
		return bodySchemas{}, err
	}
	return bodySchemas{transaction: tx, goal: goal}, nil
}

func loadSchema(name string) (*gojsonschema.Schema, error) {
	raw, err := schemaFS.ReadFile("schemas/" + name)
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", name, err)
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return schema, nil
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	return body, nil
}

// decodeJSON reads the body into dst without schema checks.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body, err := readBody(w, r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	return nil
}

// decodeValidated checks the body against schema before decoding it into
// dst. Values the schema accepts but the domain rejects surface as
// *core.ValidationError from the field's own decoder.
func decodeValidated(w http.ResponseWriter, r *http.Request, schema *gojsonschema.Schema, dst any) error {
	body, err := readBody(w, r)
	if err != nil {
		return err
	}
	res, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		// gojsonschema fails outright on bodies that are not JSON.
		return fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	if !res.Valid() {
		details := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			details = append(details, e.String())
		}
		return &SchemaError{Details: details}
	}
	if err := json.Unmarshal(body, dst); err != nil {
		switch {
		case errors.Is(err, core.ErrInvalidAmount):
			return &core.ValidationError{Field: "amount", Err: core.ErrInvalidAmount}
		case errors.Is(err, core.ErrInvalidDate):
			return &core.ValidationError{Field: "date", Err: core.ErrInvalidDate}
		}
		return fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	return nil
}

// parseYear reads ?year=, defaulting to the current year.
func parseYear(q url.Values, now time.Time) (int, error) {
	v := strings.TrimSpace(q.Get("year"))
	if v == "" {
		return now.Year(), nil
	}
	y, err := strconv.Atoi(v)
	if err != nil || y < 1900 || y > 9999 {
		return 0, &core.ValidationError{Field: "year", Err: fmt.Errorf("invalid year %q", v)}
	}
	return y, nil
}

// parseKind reads ?kind=; empty means both kinds.
func parseKind(q url.Values) (core.Kind, error) {
	v := strings.TrimSpace(q.Get("kind"))
	if v == "" {
		return "", nil
	}
	k, err := core.ParseKind(v)
	if err != nil {
		return "", &core.ValidationError{Field: "kind", Err: err}
	}
	return k, nil
}
