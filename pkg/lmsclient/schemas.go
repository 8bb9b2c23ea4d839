package lmsclient

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	//go:embed schemas/assignment.schema.json
	assignmentSchemaSource string
	//go:embed schemas/submission.schema.json
	submissionSchemaSource string
	//go:embed schemas/flat_penalties.schema.json
	flatPenaltiesSchemaSource string
	//go:embed schemas/variation_penalty.schema.json
	variationPenaltySchemaSource string
	//go:embed schemas/penalty_ranges.schema.json
	penaltyRangesSchemaSource string
	//go:embed schemas/file_delete.schema.json
	fileDeleteSchemaSource string
)

var (
	assignmentSchema       = jsonschema.MustCompileString("assignment.schema.json", assignmentSchemaSource)
	submissionSchema       = jsonschema.MustCompileString("submission.schema.json", submissionSchemaSource)
	flatPenaltiesSchema    = jsonschema.MustCompileString("flat_penalties.schema.json", flatPenaltiesSchemaSource)
	variationPenaltySchema = jsonschema.MustCompileString("variation_penalty.schema.json", variationPenaltySchemaSource)
	penaltyRangesSchema    = jsonschema.MustCompileString("penalty_ranges.schema.json", penaltyRangesSchemaSource)
	fileDeleteSchema       = jsonschema.MustCompileString("file_delete.schema.json", fileDeleteSchemaSource)
)

// decodeValidated checks raw against schema before decoding it into out.
func decodeValidated(schema *jsonschema.Schema, raw json.RawMessage, out interface{}) error {
	if len(raw) == 0 {
		return fmt.Errorf("response has no data")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("malformed response data: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("unexpected response shape: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}
