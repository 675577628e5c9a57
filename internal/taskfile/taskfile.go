// Package taskfile reads and writes chase tasks as JSON.
package taskfile

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"io"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/sells-group/compliance-chaser/internal/model"
)

//go:embed schema.json
var schemaJSON []byte

// ErrSchema is returned when a task document does not match the task schema.
var ErrSchema = eris.New("taskfile: document does not match schema")

// compiledSchema is the schema for one task entry of a file.
var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("tasks.schema.json", bytes.NewReader(schemaJSON)); err != nil {
		return nil, eris.Wrap(err, "taskfile: add schema")
	}
	schema, err := compiler.Compile("tasks.schema.json#/items")
	if err != nil {
		return nil, eris.Wrap(err, "taskfile: compile schema")
	}
	return schema, nil
})

// Rejection is one entry of a task file that was not accepted.
type Rejection struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

// Result holds the accepted tasks of a file and the entries that were not.
type Result struct {
	Tasks      []model.ChaseTask `json:"tasks"`
	Rejections []Rejection       `json:"rejections"`
}

// Write encodes tasks as an indented JSON array. A nil slice is written as [].
func Write(w io.Writer, tasks []model.ChaseTask) error {
	if tasks == nil {
		tasks = []model.ChaseTask{}
	}
	return encode(w, tasks)
}

// WriteProfile encodes an extracted profile record.
func WriteProfile(w io.Writer, p model.ExtractedProfile) error {
	return encode(w, p)
}

// Read decodes a JSON task array. Each entry is checked against the
// embedded schema, decoded, and must pass Validate; entries that fail are
// returned as rejections and the rest are kept. Status tags are normalized
// to their canonical lowercase form. Only a document that is not a JSON
// array fails as a whole.
func Read(r io.Reader) (Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Result{}, eris.Wrap(err, "taskfile: read")
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return Result{}, eris.Wrap(err, "taskfile: parse json")
	}
	items, ok := doc.([]any)
	if !ok {
		return Result{}, eris.Wrap(ErrSchema, "taskfile: document is not a task array")
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Result{}, eris.Wrap(err, "taskfile: split entries")
	}
	schema, err := compiledSchema()
	if err != nil {
		return Result{}, err
	}

	res := Result{Tasks: make([]model.ChaseTask, 0, len(items))}
	for i := range items {
		t, err := readTask(schema, items[i], raw[i])
		if err != nil {
			err = eris.Wrapf(err, "taskfile: task %d", i)
			res.Rejections = append(res.Rejections, Rejection{Index: i, Reason: err.Error(), Err: err})
			continue
		}
		res.Tasks = append(res.Tasks, t)
	}
	return res, nil
}

func readTask(schema *jsonschema.Schema, item any, raw json.RawMessage) (model.ChaseTask, error) {
	var t model.ChaseTask
	if err := schema.Validate(item); err != nil {
		return t, eris.Wrapf(ErrSchema, "%v", err)
	}
	if err := json.Unmarshal(raw, &t); err != nil {
		return t, eris.Wrap(err, "decode")
	}
	status, err := model.ParseStatus(string(t.Status))
	if err != nil {
		return t, err
	}
	t.Status = status
	return t, t.Validate()
}

func encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "taskfile: encode")
}
