package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance scenario: a program described by CUE
// specs and the outcome checking it must produce.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Specs lists paths to CUE files describing the program. The files are
	// unified into one value. Paths are relative to the scenario file
	// location when loaded with LoadScenario.
	Specs []string `yaml:"specs"`

	// Expect describes the overall outcome.
	Expect Expect `yaml:"expect"`

	// Assertions check individual properties of the compiled program.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Expect is the expected outcome of checking a scenario's program.
type Expect struct {
	// Valid requires that the program compiles and passes every check.
	Valid bool `yaml:"valid"`

	// Code is the expected error code of the first failure when Valid is
	// false: a diagnostic code such as "VERSION_TOO_LOW", or a lint code
	// such as "E122".
	Code string `yaml:"code,omitempty"`

	// Opset is the expected program opset, e.g. "iOS16".
	Opset string `yaml:"opset,omitempty"`

	// Functions lists the expected function names in insertion order.
	Functions []string `yaml:"functions,omitempty"`
}

// Assertion validates one property of the compiled program.
type Assertion struct {
	// Type specifies the assertion type:
	// - "find_ops": query ops by prefix and/or type, check the match count
	// - "op_version": check the opset variant an op was resolved to
	// - "function_opset": check the opset a function is pinned to
	Type string `yaml:"type"`

	// Prefix and OpType are the query (find_ops).
	Prefix string `yaml:"prefix,omitempty"`
	OpType string `yaml:"op_type,omitempty"`

	// Count is the expected number of matches (find_ops).
	Count int `yaml:"count,omitempty"`

	// Op names the op (op_version).
	Op string `yaml:"op,omitempty"`

	// Function names the function (function_opset).
	Function string `yaml:"function,omitempty"`

	// Version is the expected opset (op_version, function_opset).
	Version string `yaml:"version,omitempty"`
}

// Assertion type constants.
const (
	AssertFindOps       = "find_ops"
	AssertOpVersion     = "op_version"
	AssertFunctionOpset = "function_opset"
)

// LoadScenario reads and parses a scenario YAML file. Spec paths are
// resolved relative to the scenario file's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving spec paths relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve spec paths BEFORE validation
	for i, specPath := range scenario.Specs {
		if !filepath.IsAbs(specPath) && basePath != "" {
			scenario.Specs[i] = filepath.Join(basePath, specPath)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Specs) == 0 {
		return fmt.Errorf("specs list is required and must be non-empty")
	}
	for _, specPath := range s.Specs {
		if _, err := os.Stat(specPath); os.IsNotExist(err) {
			return fmt.Errorf("spec file not found: %s", specPath)
		}
	}

	if s.Expect.Valid && s.Expect.Code != "" {
		return fmt.Errorf("expect: code must be empty when valid is true")
	}
	if !s.Expect.Valid && s.Expect.Code == "" {
		return fmt.Errorf("expect: code is required when valid is false")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertFindOps:
		if a.Prefix == "" && a.OpType == "" {
			return fmt.Errorf("assertions[%d]: prefix or op_type is required for find_ops", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for find_ops", index)
		}
	case AssertOpVersion:
		if a.Op == "" || a.Version == "" {
			return fmt.Errorf("assertions[%d]: op and version are required for op_version", index)
		}
	case AssertFunctionOpset:
		if a.Function == "" || a.Version == "" {
			return fmt.Errorf("assertions[%d]: function and version are required for function_opset", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
