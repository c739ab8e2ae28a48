package process

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// ParameterKind is type of analyzer parameter's value
type ParameterKind uint16

const (
	ParameterString ParameterKind = iota
	ParameterInt
	ParameterFloat
	ParameterBool
)

func (kind ParameterKind) String() string {
	switch kind {
	case ParameterString:
		return "string"
	case ParameterInt:
		return "int"
	case ParameterFloat:
		return "float"
	case ParameterBool:
		return "bool"
	default:
		return "unknown"
	}
}

// ParameterDescriptor describes a single configurable parameter of an analyzer
type ParameterDescriptor struct {
	ID      string
	Name    string
	Kind    ParameterKind
	Default string
	// Order is position of parameter in listings
	Order  int
	Hidden bool
	// Hints are free form values for user interfaces (e.g. allowed values)
	Hints []string
}

// DisplayName returns Name or ID if no name was given
func (descriptor ParameterDescriptor) DisplayName() string {
	if descriptor.Name != "" {
		return descriptor.Name
	}
	return descriptor.ID
}

func (descriptor ParameterDescriptor) validate(value string) error {
	var err error
	switch descriptor.Kind {
	case ParameterInt:
		_, err = strconv.Atoi(value)
	case ParameterFloat:
		_, err = strconv.ParseFloat(value, 64)
	case ParameterBool:
		_, err = strconv.ParseBool(value)
	}
	if err != nil {
		return errors.Wrapf(ErrInvalidParameter, "'%s' expects %s, got '%s'", descriptor.ID, descriptor.Kind, value)
	}
	return nil
}

// Params are validated analyzer parameters with defaults applied
type Params map[string]string

// String returns parameter as is
func (params Params) String(id string) string {
	return params[id]
}

// Int returns parameter as integer. Zero if missing or malformed
func (params Params) Int(id string) int {
	value, _ := strconv.Atoi(params[id])
	return value
}

// Float returns parameter as float. Zero if missing or malformed
func (params Params) Float(id string) float64 {
	value, _ := strconv.ParseFloat(params[id], 64)
	return value
}

// Bool returns parameter as boolean. False if missing or malformed
func (params Params) Bool(id string) bool {
	value, _ := strconv.ParseBool(params[id])
	return value
}

// Factory constructs analyzer from validated parameters
type Factory func(params Params) (Analyzer, error)

// AnalyzerDefinition is a registry entry
type AnalyzerDefinition struct {
	ID         string
	Name       string
	Parameters []ParameterDescriptor
	New        Factory
}

// Parameter returns descriptor by id
func (definition AnalyzerDefinition) Parameter(id string) (ParameterDescriptor, bool) {
	for _, descriptor := range definition.Parameters {
		if descriptor.ID == id {
			return descriptor, true
		}
	}
	return ParameterDescriptor{}, false
}

// Registry is an explicit table of available analyzers
type Registry struct {
	mu          sync.RWMutex
	definitions map[string]AnalyzerDefinition
}

// NewRegistry creates empty registry
func NewRegistry() *Registry {
	return &Registry{
		definitions: make(map[string]AnalyzerDefinition),
	}
}

// Register adds analyzer definition. Parameters are kept sorted by Order
func (registry *Registry) Register(definition AnalyzerDefinition) error {
	if definition.ID == "" {
		return errors.New("analyzer id must not be empty")
	}
	if definition.New == nil {
		return errors.Errorf("analyzer '%s' has no factory", definition.ID)
	}
	parameters := make([]ParameterDescriptor, len(definition.Parameters))
	copy(parameters, definition.Parameters)
	sort.SliceStable(parameters, func(i, j int) bool {
		return parameters[i].Order < parameters[j].Order
	})
	for _, descriptor := range parameters {
		if descriptor.Default == "" {
			continue
		}
		if err := descriptor.validate(descriptor.Default); err != nil {
			return errors.Wrapf(err, "Bad default of analyzer '%s'", definition.ID)
		}
	}
	definition.Parameters = parameters

	registry.mu.Lock()
	defer registry.mu.Unlock()
	if _, ok := registry.definitions[definition.ID]; ok {
		return errors.Wrapf(ErrDuplicateAnalyzer, "id '%s'", definition.ID)
	}
	registry.definitions[definition.ID] = definition
	return nil
}

// Lookup returns definition by id
func (registry *Registry) Lookup(id string) (AnalyzerDefinition, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	definition, ok := registry.definitions[id]
	return definition, ok
}

// List returns every definition ordered by id
func (registry *Registry) List() []AnalyzerDefinition {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	list := make([]AnalyzerDefinition, 0, len(registry.definitions))
	for _, definition := range registry.definitions {
		list = append(list, definition)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].ID < list[j].ID
	})
	return list
}

// Build validates parameters, applies defaults and constructs analyzer
func (registry *Registry) Build(id string, values map[string]string) (Analyzer, error) {
	definition, ok := registry.Lookup(id)
	if !ok {
		return nil, errors.Wrapf(ErrUnknownAnalyzer, "id '%s'", id)
	}
	params := make(Params, len(definition.Parameters))
	for _, descriptor := range definition.Parameters {
		if descriptor.Default != "" {
			params[descriptor.ID] = descriptor.Default
		}
	}
	for key, value := range values {
		descriptor, ok := definition.Parameter(key)
		if !ok {
			return nil, errors.Wrapf(ErrInvalidParameter, "analyzer '%s' has no parameter '%s'", id, key)
		}
		value = strings.TrimSpace(value)
		if err := descriptor.validate(value); err != nil {
			return nil, err
		}
		params[key] = value
	}
	analyzer, err := definition.New(params)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't build analyzer '%s'", id)
	}
	return analyzer, nil
}
