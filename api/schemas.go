package api

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"regexp"
	"strings"

	"github.com/qri-io/jsonschema"

	"github.com/garnizeh/built/internal/apperror"
)

// request body schemas, keyed by file name without extension
//
//go:embed schemas/*.json
var schemaFS embed.FS

var bodySchemas = mustLoadSchemas()

const maxBodyBytes = 1 << 20

var requiredRe = regexp.MustCompile(`^"([^"]+)" value is required$`)

func mustLoadSchemas() map[string]*jsonschema.Schema {
	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		panic(fmt.Sprintf("read schemas: %v", err))
	}

	out := make(map[string]*jsonschema.Schema, len(entries))
	for _, e := range entries {
		b, err := schemaFS.ReadFile(path.Join("schemas", e.Name()))
		if err != nil {
			panic(fmt.Sprintf("read schema %s: %v", e.Name(), err))
		}
		rs := &jsonschema.Schema{}
		if err := json.Unmarshal(b, rs); err != nil {
			panic(fmt.Sprintf("compile schema %s: %v", e.Name(), err))
		}
		out[strings.TrimSuffix(e.Name(), ".json")] = rs
	}
	return out
}

// decodeBody validates the request body against the named schema and decodes
// it into dst. Every violation is reported under a "body." path.
func decodeBody(r *http.Request, schema string, dst any) error {
	rs, ok := bodySchemas[schema]
	if !ok {
		return apperror.Internal(nil, "unknown request schema %q", schema)
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return apperror.Internal(err, "failed to read request body")
	}

	verr := &apperror.RequestValidationError{}
	if len(bytes.TrimSpace(body)) == 0 {
		verr.Add("body", "Field required")
		return verr
	}

	kerrs, err := rs.ValidateBytes(r.Context(), body)
	if err != nil {
		verr.Add("body", "JSON decode error")
		return verr
	}
	for _, ke := range kerrs {
		p, msg := keyErrorPath(ke)
		verr.Add(p, msg)
	}
	if err := verr.Err(); err != nil {
		return err
	}

	if err := json.Unmarshal(body, dst); err != nil {
		var te *json.UnmarshalTypeError
		if errors.As(err, &te) && te.Field != "" {
			verr.Add("body."+te.Field, te.Error())
		} else {
			verr.Add("body", err.Error())
		}
		return verr
	}

	return nil
}

// keyErrorPath turns a schema KeyError into a dotted path and message.
func keyErrorPath(ke jsonschema.KeyError) (string, string) {
	p := "body"
	if trimmed := strings.Trim(ke.PropertyPath, "/"); trimmed != "" {
		p += "." + strings.ReplaceAll(trimmed, "/", ".")
	}
	if m := requiredRe.FindStringSubmatch(ke.Message); m != nil {
		return p + "." + m[1], "Field required"
	}
	return p, ke.Message
}
