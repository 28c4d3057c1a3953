// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package schema

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// DirProvider loads record schemas from YAML files laid out as
//
//	<root>/<product type>/<record name>.yaml
//
// A schema file looks like:
//
//	fields:
//	  - {name: dsr_time, type: UTC}
//	  - {name: quality_flag, type: UChar}
//	  - {name: spare_1, type: Spare, count: 3}
//	  - {name: pixels, type: UShort, count: LINE_WIDTH, unit: dl}
//
// Element counts may name a product parameter (LINE_WIDTH above) which is
// resolved against the parameters the provider was created with.  Parsed
// schemas are cached, so repeated lookups return the same *RecordSchema.
type DirProvider struct {
	fsys   fs.FS
	params map[string]int

	mu    sync.Mutex
	cache map[providerKey]*RecordSchema
}

// NewDirProvider returns a provider reading schema files below dir.
func NewDirProvider(dir string, params map[string]int) *DirProvider {
	return NewFSProvider(os.DirFS(dir), params)
}

// NewFSProvider is like NewDirProvider but reads from an arbitrary fs.FS.
func NewFSProvider(fsys fs.FS, params map[string]int) *DirProvider {
	p := &DirProvider{
		fsys:   fsys,
		params: make(map[string]int, len(params)),
		cache:  make(map[providerKey]*RecordSchema),
	}
	for k, v := range params {
		p.params[strings.ToUpper(k)] = v
	}
	return p
}

type fileSchema struct {
	Name   string      `yaml:"name"`
	Fields []fileField `yaml:"fields"`
}

type fileField struct {
	Name        string    `yaml:"name"`
	Type        string    `yaml:"type"`
	Count       countSpec `yaml:"count"`
	Unit        string    `yaml:"unit"`
	Description string    `yaml:"description"`
}

// countSpec is either a literal element count or the name of a parameter.
type countSpec struct {
	n     int
	param string
}

func (c *countSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: count must be a scalar", node.Line)
	}
	if n, err := strconv.Atoi(node.Value); err == nil {
		c.n = n
		return nil
	}
	c.param = strings.ToUpper(strings.TrimSpace(node.Value))
	return nil
}

func (c countSpec) resolve(params map[string]int) (int, error) {
	if c.param == "" {
		if c.n == 0 {
			return 1, nil
		}
		return c.n, nil
	}
	n, ok := params[c.param]
	if !ok {
		return 0, fmt.Errorf("unresolved count parameter %q", c.param)
	}
	return n, nil
}

func (p *DirProvider) Lookup(productType, recordName string) (*RecordSchema, error) {
	key := newProviderKey(productType, recordName)

	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.cache[key]; ok {
		return s, nil
	}

	data, err := p.readFile(productType, recordName)
	if err != nil {
		return nil, err
	}
	s, err := p.parse(recordName, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s/%s: %v", ErrUnknownRecordSchema, productType, recordName, err)
	}
	p.cache[key] = s
	return s, nil
}

// readFile tries the names as given, then upper- and lower-cased variants,
// then with spaces replaced by underscores.
func (p *DirProvider) readFile(productType, recordName string) ([]byte, error) {
	underscored := strings.ReplaceAll(recordName, " ", "_")
	candidates := []string{
		path.Join(productType, recordName+".yaml"),
		path.Join(strings.ToUpper(productType), strings.ToUpper(recordName)+".yaml"),
		path.Join(strings.ToLower(productType), strings.ToLower(recordName)+".yaml"),
		path.Join(productType, underscored+".yaml"),
		path.Join(strings.ToUpper(productType), strings.ToUpper(underscored)+".yaml"),
	}
	for _, name := range candidates {
		data, err := fs.ReadFile(p.fsys, name)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("fs.ReadFile(%s): %w", name, err)
		}
	}
	return nil, fmt.Errorf("%w: %s/%s: no schema file", ErrUnknownRecordSchema, productType, recordName)
}

func (p *DirProvider) parse(recordName string, data []byte) (*RecordSchema, error) {
	var fsch fileSchema
	if err := yaml.Unmarshal(data, &fsch); err != nil {
		return nil, fmt.Errorf("yaml.Unmarshal: %w", err)
	}
	name := fsch.Name
	if name == "" {
		name = recordName
	}

	fields := make([]FieldSchema, 0, len(fsch.Fields))
	for _, ff := range fsch.Fields {
		t, err := ParseElementType(ff.Type)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", ff.Name, err)
		}
		n, err := ff.Count.resolve(p.params)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", ff.Name, err)
		}
		description := ff.Description
		if strings.EqualFold(ff.Type, "spare") && description == "" {
			description = "Spare"
		}
		fields = append(fields, FieldSchema{
			Name:        ff.Name,
			Type:        t,
			Count:       n,
			Unit:        ff.Unit,
			Description: description,
		})
	}
	return New(name, fields)
}

var _ Provider = &DirProvider{}
