package shaderdi

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// MaxIncludeDepth bounds #include nesting; exceeding it is reported as a
// circular-include error rather than recursing forever.
const MaxIncludeDepth = 32

// IncludeResolver resolves an #include path against a configurable
// search path, returning the included source text.
type IncludeResolver interface {
	Resolve(path string) (string, error)
}

// MapIncludeResolver is an in-memory IncludeResolver keyed by include
// path, convenient for tests and for embedding shader sources the way
// the teacher's shaders.go embeds WGSL strings as package-level
// constants instead of reading from disk at runtime.
type MapIncludeResolver map[string]string

func (m MapIncludeResolver) Resolve(path string) (string, error) {
	src, ok := m[path]
	if !ok {
		return "", fmt.Errorf("shaderdi: include %q not found", path)
	}
	return src, nil
}

var includeRe = regexp.MustCompile(`(?m)^\s*#include\s+"([^"]+)"\s*$`)

// Preprocessor resolves #include directives and injects #define lines,
// as pure string transformation with no compiler state leaking between
// invocations.
type Preprocessor struct {
	resolver  IncludeResolver
	emitLines bool
}

func NewPreprocessor(resolver IncludeResolver, emitLineMarkers bool) *Preprocessor {
	return &Preprocessor{resolver: resolver, emitLines: emitLineMarkers}
}

// Process resolves source's #include tree (depth-first, in source
// order) and prepends #define lines for every entry in defines, sorted
// by key so the preprocessed output — and therefore the cache hash — is
// deterministic regardless of map iteration order.
func (p *Preprocessor) Process(source string, defines map[string]string) (string, error) {
	var b strings.Builder
	keys := make([]string, 0, len(defines))
	for k := range defines {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "#define %s %s\n", k, defines[k])
	}

	expanded, err := p.expandIncludes(source, "<source>", 0, map[string]bool{})
	if err != nil {
		return "", err
	}
	b.WriteString(expanded)
	return b.String(), nil
}

func (p *Preprocessor) expandIncludes(source, path string, depth int, stack map[string]bool) (string, error) {
	if depth > MaxIncludeDepth {
		return "", fmt.Errorf("shaderdi: include depth exceeds %d at %q (circular include?)", MaxIncludeDepth, path)
	}
	if stack[path] {
		return "", fmt.Errorf("shaderdi: circular include detected at %q", path)
	}
	stack[path] = true
	defer delete(stack, path)

	lineNo := 1
	var out strings.Builder
	lines := strings.Split(source, "\n")
	for _, line := range lines {
		m := includeRe.FindStringSubmatch(line)
		if m == nil {
			out.WriteString(line)
			out.WriteByte('\n')
			lineNo++
			continue
		}
		incPath := m[1]
		incSrc, err := p.resolver.Resolve(incPath)
		if err != nil {
			return "", err
		}
		expanded, err := p.expandIncludes(incSrc, incPath, depth+1, stack)
		if err != nil {
			return "", err
		}
		if p.emitLines {
			fmt.Fprintf(&out, "#line 1 %q\n", incPath)
		}
		out.WriteString(expanded)
		if p.emitLines {
			fmt.Fprintf(&out, "#line %d %q\n", lineNo+1, path)
		}
		lineNo++
	}
	return out.String(), nil
}
