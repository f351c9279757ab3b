package dbinit

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	stdpath "path"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Manifest maps a capability key (InitializerDetectorKey, DependentDetectorKey)
// to the names of the detector implementations that participate.
type Manifest map[string][]string

// Names returns the implementations listed under key. A missing key yields nil.
func (m Manifest) Names(key string) []string {
	return m[key]
}

// Merge appends the entries of other, keeping the first occurrence of each name.
func (m Manifest) Merge(other Manifest) {
	for key, names := range other {
		for _, name := range names {
			if !slices.Contains(m[key], name) {
				m[key] = append(m[key], name)
			}
		}
	}
}

// ParseManifest reads a properties-style manifest:
//
//	# comment
//	github.com/Station-Manager/dbinit.InitializerDetector=pkg.A,\
//	    pkg.B
//
// Lines starting with '#' or '!' are comments and a trailing backslash continues
// a line. The key ends at the first unescaped '=', ':' or whitespace, and the
// value is a comma-separated list of names. The escapes \t, \n, \r, \f and
// \uXXXX are understood; a backslash before any other character keeps that
// character literally. A key without a value lists nothing.
func ParseManifest(r io.Reader) (Manifest, error) {
	m := Manifest{}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	var logical strings.Builder
	start := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimLeft(scanner.Text(), " \t\f")
		if logical.Len() == 0 {
			if line == "" || line[0] == '#' || line[0] == '!' {
				continue
			}
			start = lineNo
		}
		if continues(line) {
			logical.WriteString(line[:len(line)-1])
			continue
		}
		logical.WriteString(line)

		key, value, err := splitProperty(logical.String())
		logical.Reset()
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedManifest, start, err)
		}
		m.Merge(Manifest{key: splitNames(value)})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	if logical.Len() > 0 {
		key, value, err := splitProperty(logical.String())
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedManifest, start, err)
		}
		m.Merge(Manifest{key: splitNames(value)})
	}
	return m, nil
}

// continues reports whether line ends with an odd number of backslashes.
func continues(line string) bool {
	n := 0
	for i := len(line) - 1; i >= 0 && line[i] == '\\'; i-- {
		n++
	}
	return n%2 == 1
}

// splitProperty splits a logical line at the first unescaped '=', ':' or
// whitespace. Whitespace around the separator is dropped, so "key value",
// "key = value" and "key:value" are equivalent.
func splitProperty(line string) (string, string, error) {
	end := len(line)
	escaped := false
	for i, r := range line {
		if escaped {
			escaped = false
			continue
		}
		if r == '\\' {
			escaped = true
			continue
		}
		if r == '=' || r == ':' || isPropertySpace(r) {
			end = i
			break
		}
	}

	key, err := unescape(line[:end])
	if err != nil {
		return "", "", err
	}
	if key == "" {
		return "", "", errors.New("empty key")
	}
	rest := strings.TrimLeftFunc(line[end:], isPropertySpace)
	if rest != "" && (rest[0] == '=' || rest[0] == ':') {
		rest = strings.TrimLeftFunc(rest[1:], isPropertySpace)
	}
	value, err := unescape(strings.TrimRightFunc(rest, isPropertySpace))
	if err != nil {
		return "", "", err
	}
	return key, value, nil
}

func isPropertySpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\f'
}

// unescape resolves the \t, \n, \r, \f and \uXXXX escapes. Any other escaped
// character stands for itself.
func unescape(s string) (string, error) {
	if !strings.Contains(s, `\`) {
		return s, nil
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i == len(s) {
			break
		}
		switch s[i] {
		case 't':
			b.WriteByte('\t')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 'f':
			b.WriteByte('\f')
		case 'u':
			if i+5 > len(s) {
				return "", fmt.Errorf("malformed \\u escape in %q", s)
			}
			code, err := strconv.ParseUint(s[i+1:i+5], 16, 16)
			if err != nil {
				return "", fmt.Errorf("malformed \\u escape in %q", s)
			}
			b.WriteRune(rune(code))
			i += 4
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String(), nil
}

func splitNames(value string) []string {
	var names []string
	for _, n := range strings.Split(value, ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names
}

// ParseYAMLManifest reads a manifest from YAML. Each value is either a list of
// names or a comma-separated string.
func ParseYAMLManifest(r io.Reader) (Manifest, error) {
	var raw map[string]any
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		if err == io.EOF {
			return Manifest{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedManifest, err)
	}

	m := Manifest{}
	for key, v := range raw {
		switch val := v.(type) {
		case nil:
			m[key] = nil
		case string:
			m.Merge(Manifest{key: splitNames(val)})
		case []any:
			for _, item := range val {
				name, ok := item.(string)
				if !ok {
					return nil, fmt.Errorf("%w: %s: entry %v is not a string", ErrMalformedManifest, key, item)
				}
				m.Merge(Manifest{key: splitNames(name)})
			}
		default:
			return nil, fmt.Errorf("%w: %s: unsupported value %T", ErrMalformedManifest, key, v)
		}
	}
	return m, nil
}

// LoadManifests reads and merges every file of fsys matching the glob patterns,
// in pattern order and lexical file order within a pattern. Files ending in
// .yaml or .yml are parsed as YAML, anything else as properties. Patterns that
// match nothing contribute nothing.
func LoadManifests(fsys fs.FS, patterns ...string) (Manifest, error) {
	m := Manifest{}
	for _, pattern := range patterns {
		matches, err := fs.Glob(fsys, pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: pattern %q: %v", ErrMalformedManifest, pattern, err)
		}
		for _, path := range matches {
			content, err := fs.ReadFile(fsys, path)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", path, err)
			}

			var parsed Manifest
			switch stdpath.Ext(path) {
			case ".yaml", ".yml":
				parsed, err = ParseYAMLManifest(bytes.NewReader(content))
			default:
				parsed, err = ParseManifest(bytes.NewReader(content))
			}
			if err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
			m.Merge(parsed)
		}
	}
	return m, nil
}
