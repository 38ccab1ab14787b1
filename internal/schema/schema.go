package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/danielpatrickdp/mrv-verifier/internal/fault"
	"github.com/danielpatrickdp/mrv-verifier/internal/telemetry"
)

// BatchSchemaURL identifies the embedded batch schema.
const BatchSchemaURL = "https://mrv-verifier/schema/batch-v1.schema.json"

//go:embed batch.schema.json
var batchSchema []byte

// #region types
// Batch is the on-disk input of one verification run.
type Batch struct {
	Readings []telemetry.Reading `json:"readings"`
	Context  telemetry.Context   `json:"context"`
}

// InvalidBatchError reports a document that does not match the schema.
type InvalidBatchError struct {
	Err error
}

func (e *InvalidBatchError) Error() string { return "invalid batch: " + e.Err.Error() }
func (e *InvalidBatchError) Unwrap() error { return e.Err }

// Is makes InvalidBatchError match fault.ErrData.
func (e *InvalidBatchError) Is(target error) bool { return target == fault.ErrData }
// #endregion types

// #region compile
var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func batch() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource(BatchSchemaURL, bytes.NewReader(batchSchema)); err != nil {
			compileErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		compiled, compileErr = c.Compile(BatchSchemaURL)
		if compileErr != nil {
			compileErr = fmt.Errorf("compile schema: %w", compileErr)
		}
	})
	return compiled, compileErr
}
// #endregion compile

// #region validate
// Validate checks a raw JSON document against the batch schema.
func Validate(data []byte) error {
	s, err := batch()
	if err != nil {
		return err
	}
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return &InvalidBatchError{Err: fmt.Errorf("parse json: %w", err)}
	}
	if err := s.Validate(instance); err != nil {
		return &InvalidBatchError{Err: err}
	}
	return nil
}

// DecodeBatch validates data and decodes it into a Batch.
func DecodeBatch(data []byte) (Batch, error) {
	if err := Validate(data); err != nil {
		return Batch{}, err
	}
	var b Batch
	if err := json.Unmarshal(data, &b); err != nil {
		return Batch{}, &InvalidBatchError{Err: fmt.Errorf("decode batch: %w", err)}
	}
	return b, nil
}
// #endregion validate
