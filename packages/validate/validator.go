// Package validate checks a received response against a case's expected
// status, detail and body rules. Positive and negative cases follow
// different state machines; both always check the status code first.
package validate

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"

	"github.com/amblessed/employees-harness/packages/cases"
	"github.com/amblessed/employees-harness/packages/httpexec"
)

// Fields every employee element must echo back from a supplied payload.
var payloadFields = []string{"firstName", "lastName", "email"}

// minFieldLength is the structural sanity bound for single-object positive
// responses. Deliberately weaker than the exact-match collection checks.
const minFieldLength = 2

// Validator evaluates responses. The schema directory anchors optional
// JSON Schema checks declared on a case.
type Validator struct {
	schemaDir string
}

// Option configures a Validator.
type Option func(*Validator)

// WithSchemaDir sets the directory schema file names resolve against.
func WithSchemaDir(dir string) Option {
	return func(v *Validator) {
		v.schemaDir = dir
	}
}

// NewValidator returns a validator.
func NewValidator(opts ...Option) *Validator {
	v := &Validator{}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate runs every applicable check and returns the collected result.
// The case must already be placeholder-resolved.
func (v *Validator) Validate(resp *httpexec.Response, c *cases.TestCase) *Result {
	res := &Result{Story: c.Story}

	if resp.StatusCode != c.ExpectedStatus {
		res.fail("status code", c.ExpectedStatus, resp.StatusCode)
	}

	if c.Type == cases.Negative {
		v.validateNegative(res, resp, c)
		return res
	}
	v.validatePositive(res, resp, c)
	return res
}

// validateNegative checks the error detail. An unparsable or empty body is
// tolerated: some rejections carry no JSON at all.
func (v *Validator) validateNegative(res *Result, resp *httpexec.Response, c *cases.TestCase) {
	if !gjson.ValidBytes(resp.Body) {
		return
	}
	body := gjson.ParseBytes(resp.Body)
	if !body.IsObject() || len(body.Map()) == 0 {
		return
	}
	if detail := body.Get("detail"); detail.String() != c.ExpectedDetail {
		res.fail("detail", c.ExpectedDetail, detail.String())
	}
}

// validatePositive checks the field named by check_field. No check_field
// means no body validation; a present-but-empty field is vacuously
// satisfied. The detail field is compared only when the case declares an
// expected detail.
func (v *Validator) validatePositive(res *Result, resp *httpexec.Response, c *cases.TestCase) {
	if c.CheckField == "" {
		return
	}
	if !gjson.ValidBytes(resp.Body) {
		res.fail("response body", "valid JSON", resp.BodyString())
		return
	}
	body := gjson.ParseBytes(resp.Body)

	data := body.Get(c.CheckField)
	if !data.Exists() {
		res.fail("check field "+c.CheckField, "present", "absent")
		return
	}
	if isFalsy(data) {
		return
	}

	if c.ExpectedDetail != "" {
		if detail := body.Get("detail"); detail.Exists() && detail.String() != c.ExpectedDetail {
			res.fail("detail", c.ExpectedDetail, detail.String())
		}
	}

	if data.IsArray() {
		elements := data.Array()
		v.checkDeclaredCount(res, c, elements)
		v.checkSearchFilters(res, c, elements)
		v.checkPayloadEcho(res, c, elements)
	} else {
		v.checkObjectShape(res, data)
	}

	if c.Schema != "" {
		v.checkSchema(res, c, data)
	}
}

// checkDeclaredCount enforces the declared page size on paged listings.
func (v *Validator) checkDeclaredCount(res *Result, c *cases.TestCase, elements []gjson.Result) {
	size := c.DeclaredPageSize()
	if size <= 0 {
		return
	}
	if len(elements) != size {
		res.fail(c.CheckField+" count", size, len(elements))
	}
}

// checkSearchFilters enforces the case's search parameters on every
// element: department and position match exactly, salary is a lower bound.
func (v *Validator) checkSearchFilters(res *Result, c *cases.TestCase, elements []gjson.Result) {
	if c.Params == nil {
		return
	}
	department, hasDept := c.Params["department"]
	position, hasPos := c.Params["position"]
	salaryStr, hasSalary := c.Params["salary"]
	if !hasDept && !hasPos && !hasSalary {
		return
	}

	var minSalary float64
	if hasSalary {
		var err error
		minSalary, err = strconv.ParseFloat(salaryStr, 64)
		if err != nil {
			res.fail("salary filter", "numeric value", salaryStr)
			hasSalary = false
		}
	}

	for i, el := range elements {
		if hasDept {
			if got := el.Get("department").String(); got != department {
				res.fail(fmt.Sprintf("%s[%d].department", c.CheckField, i), department, got)
			}
		}
		if hasPos {
			if got := el.Get("position").String(); got != position {
				res.fail(fmt.Sprintf("%s[%d].position", c.CheckField, i), position, got)
			}
		}
		if hasSalary {
			if got := el.Get("salary").Float(); got < minSalary {
				res.fail(fmt.Sprintf("%s[%d].salary", c.CheckField, i),
					fmt.Sprintf(">= %v", minSalary), got)
			}
		}
	}
}

// checkPayloadEcho verifies each returned element echoes the supplied
// payload's name and email fields exactly.
func (v *Validator) checkPayloadEcho(res *Result, c *cases.TestCase, elements []gjson.Result) {
	if c.Payload.Fields == nil {
		return
	}
	for i, el := range elements {
		for _, field := range payloadFields {
			want := c.Payload.Field(field)
			if want == "" {
				continue
			}
			if got := el.Get(field).String(); got != want {
				res.fail(fmt.Sprintf("%s[%d].%s", c.CheckField, i, field), want, got)
			}
		}
	}
}

// checkObjectShape is the single-object sanity check: name and email fields
// merely need more than two characters. Weaker than the collection case on
// purpose.
func (v *Validator) checkObjectShape(res *Result, data gjson.Result) {
	for _, field := range payloadFields {
		value := data.Get(field).String()
		if len(value) <= minFieldLength {
			res.fail(field+" length", fmt.Sprintf("> %d characters", minFieldLength),
				fmt.Sprintf("%q", value))
		}
	}
}

// checkSchema validates the checked field's value against a JSON Schema
// file resolved under the schema directory.
func (v *Validator) checkSchema(res *Result, c *cases.TestCase, data gjson.Result) {
	schemaPath := c.Schema
	if !filepath.IsAbs(schemaPath) && v.schemaDir != "" {
		schemaPath = filepath.Join(v.schemaDir, schemaPath)
	}

	schemaLoader := gojsonschema.NewReferenceLoader("file://" + schemaPath)
	documentLoader := gojsonschema.NewStringLoader(data.Raw)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		res.fail("schema "+c.Schema, "valid schema check", err.Error())
		return
	}
	for _, desc := range result.Errors() {
		res.fail("schema "+c.Schema, "conforming document", desc.String())
	}
}

// isFalsy mirrors the lenient emptiness rule: null, empty string, empty
// collection, zero and false all count as "nothing to validate".
func isFalsy(g gjson.Result) bool {
	switch g.Type {
	case gjson.Null:
		return true
	case gjson.False:
		return true
	case gjson.String:
		return g.String() == ""
	case gjson.Number:
		return g.Float() == 0
	default:
		if g.IsArray() {
			return len(g.Array()) == 0
		}
		if g.IsObject() {
			return len(g.Map()) == 0
		}
	}
	return false
}
