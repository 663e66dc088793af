package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseFile parses all declarations in a YAML file. A file may hold several
// documents separated by "---".
func ParseFile(path string) ([]Declaration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}

	decls, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for i := range decls {
		decls[i].Source = path
	}
	return decls, nil
}

// Parse parses declarations from YAML bytes.
func Parse(data []byte) ([]Declaration, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var decls []Declaration
	for {
		var d Declaration
		err := dec.Decode(&d)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
		if err := Validate(d); err != nil {
			return nil, fmt.Errorf("validate function %q: %w", d.Function, err)
		}
		decls = append(decls, d)
	}
	return decls, nil
}

// ParseDir parses every .yaml and .yml file under dir, including
// subdirectories.
func ParseDir(dir string) ([]Declaration, error) {
	var decls []Declaration

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())

		if entry.IsDir() {
			sub, err := ParseDir(path)
			if err != nil {
				return nil, err
			}
			decls = append(decls, sub...)
			continue
		}

		if !IsDeclarationFile(entry.Name()) {
			continue
		}

		fileDecls, err := ParseFile(path)
		if err != nil {
			return nil, err
		}
		decls = append(decls, fileDecls...)
	}

	return decls, nil
}

// IsDeclarationFile reports whether name has a YAML extension.
func IsDeclarationFile(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}

// Validate checks the structure of a declaration. Types are resolved later
// by Compile, which needs a registry.
func Validate(d Declaration) error {
	var errs []string

	if d.Function == "" {
		errs = append(errs, "function name is required")
	} else if !isValidIdentifier(d.Function) {
		errs = append(errs, fmt.Sprintf("function name %q is not a valid identifier", d.Function))
	}

	seen := make(map[string]bool)
	check := func(kind string, p ParamDecl) {
		if !isValidIdentifier(p.Name) {
			errs = append(errs, fmt.Sprintf("%s name %q is not a valid identifier", kind, p.Name))
			return
		}
		if seen[p.Name] {
			errs = append(errs, fmt.Sprintf("parameter %q declared more than once", p.Name))
		}
		seen[p.Name] = true
	}

	for _, p := range d.Params {
		check("parameter", p)
	}
	if d.Variadic != nil {
		check("variadic", *d.Variadic)
	}
	if d.Keywords != nil {
		check("keywords", *d.Keywords)
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func isValidIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for i, c := range s {
		if i == 0 {
			if !isLetter(c) && c != '_' {
				return false
			}
		} else {
			if !isLetter(c) && !isDigit(c) && c != '_' {
				return false
			}
		}
	}
	return true
}

func isLetter(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c rune) bool {
	return c >= '0' && c <= '9'
}
