package pipeline

// recipe.go reads and writes plans as JSON (the API form) and YAML (recipe
// files kept next to datasets and fed to the CLI).

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// MaxRecipeSize bounds plan documents read from requests and files.
const MaxRecipeSize = 1 << 20

// ParseJSON decodes a plan. A bare array of steps is accepted as well as
// {"steps": [...]}.
func ParseJSON(r io.Reader) (Plan, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxRecipeSize+1))
	if err != nil {
		return Plan{}, fmt.Errorf("read plan: %w", err)
	}
	if len(data) > MaxRecipeSize {
		return Plan{}, fmt.Errorf("plan exceeds %d bytes", MaxRecipeSize)
	}

	var plan Plan
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(trimmed, &plan.Steps)
	} else {
		err = json.Unmarshal(trimmed, &plan)
	}
	if err != nil {
		return Plan{}, fmt.Errorf("decode plan: %w", err)
	}
	return plan, plan.Validate()
}

// ParseYAML decodes a recipe file.
func ParseYAML(r io.Reader) (Plan, error) {
	var plan Plan
	dec := yaml.NewDecoder(io.LimitReader(r, MaxRecipeSize))
	if err := dec.Decode(&plan); err != nil {
		if errors.Is(err, io.EOF) {
			return Plan{}, errors.New("recipe is empty")
		}
		return Plan{}, fmt.Errorf("decode recipe: %w", err)
	}
	return plan, plan.Validate()
}

// LoadRecipe reads a plan from disk. Files ending in .json are JSON,
// everything else is YAML.
func LoadRecipe(path string) (Plan, error) {
	f, err := os.Open(path)
	if err != nil {
		return Plan{}, err
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".json") {
		return ParseJSON(f)
	}
	return ParseYAML(f)
}

// EncodeYAML writes the plan as a recipe file.
func EncodeYAML(w io.Writer, p Plan) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return err
	}
	return enc.Close()
}
