// Package designfile loads power-analysis design documents from YAML.
package designfile

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"sempower/domain/core"
	"sempower/domain/model"
)

// Document describes one analysis: either a canned design or an explicit
// model spec with group moments. Alpha and TargetPower fall back to the
// configured defaults when absent.
type Document struct {
	Name        string               `json:"name" yaml:"name"`
	Alpha       *float64             `json:"alpha,omitempty" yaml:"alpha,omitempty"`
	TargetPower *float64             `json:"target_power,omitempty" yaml:"target_power,omitempty"`
	Design      *model.DesignParams  `json:"design,omitempty" yaml:"design,omitempty"`
	Model       *model.Spec          `json:"model,omitempty" yaml:"model,omitempty"`
	Groups      []model.GroupMoments `json:"groups,omitempty" yaml:"groups,omitempty"`
}

// Parse decodes a single strict YAML document
func Parse(data []byte) (Document, error) {
	var doc Document
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("%w: parse design: %v", core.ErrInvalidArgument, err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return Document{}, fmt.Errorf("%w: parse design: multiple YAML documents are not supported", core.ErrInvalidArgument)
		}
		return Document{}, fmt.Errorf("%w: parse design: %v", core.ErrInvalidArgument, err)
	}
	return doc, nil
}

// Load reads and parses a design file
func Load(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read design %s: %w", path, err)
	}
	doc, err := Parse(data)
	if err != nil {
		return Document{}, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Resolve turns the document into a fit-ready design
func (d Document) Resolve() (model.Design, error) {
	if d.Alpha != nil && !(*d.Alpha > 0 && *d.Alpha < 1) {
		return model.Design{}, core.NewInvalidArgumentError("alpha", "must be in (0,1), got %v", *d.Alpha)
	}
	if d.TargetPower != nil && !(*d.TargetPower > 0 && *d.TargetPower < 1) {
		return model.Design{}, core.NewInvalidArgumentError("target_power", "must be in (0,1), got %v", *d.TargetPower)
	}

	switch {
	case d.Design != nil && (d.Model != nil || len(d.Groups) > 0):
		return model.Design{}, core.NewInvalidArgumentError("design", "document %q sets both design and model", d.Name)
	case d.Design != nil:
		return d.Design.Build()
	case d.Model != nil:
		if err := d.Model.Validate(d.Groups); err != nil {
			return model.Design{}, err
		}
		return model.Design{Kind: "custom", Spec: *d.Model, Groups: d.Groups}, nil
	default:
		return model.Design{}, core.NewInvalidArgumentError("design", "document %q needs a design or a model", d.Name)
	}
}
