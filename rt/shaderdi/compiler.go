package shaderdi

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/gekko3d/esvo/rt/rtlog"
)

// Compiler is the external GLSL->SPIR-V compiler boundary (spec §4.6:
// "External tool (out of scope); for specification, assume it consumes
// GLSL + stage + entry point + defines and returns SPIR-V words plus an
// error log"). Grounded on shadertools.CompileGlsl's
// (src, shaderType, clientType) []uint32 shape from the retrieval pack's
// gapid reference.
type Compiler interface {
	Compile(ctx context.Context, source string, stage Stage, entryPoint string, defines map[string]string) ([]uint32, string, error)
}

// CompilerVersion is folded into the cache key so a compiler upgrade
// invalidates every cached SPIR-V entry.
type CompilerVersion string

// cacheKey is keyed by a hash of (preprocessed source, stage, entry
// point, defines, compiler version), per spec §4.6.
func cacheKey(preprocessed string, stage Stage, entryPoint string, defines map[string]string, version CompilerVersion) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%d\x00%s\x00%s", preprocessed, stage, entryPoint, version)
	keys := make([]string, 0, len(defines))
	for k := range defines {
		keys = append(keys, k)
	}
	for _, k := range sortedKeys(keys) {
		fmt.Fprintf(h, "\x00%s=%s", k, defines[k])
	}
	return hex.EncodeToString(h.Sum(nil))
}

func sortedKeys(keys []string) []string {
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}

// Cache stores compiled SPIR-V keyed by cacheKey; a hit returns the
// stored words without re-invoking the compiler.
type Cache struct {
	mu      sync.Mutex
	entries map[string][]uint32
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string][]uint32)}
}

func (c *Cache) get(key string) ([]uint32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *Cache) put(key string, spirv []uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = spirv
}

// StageSpec is one stage's compile input: source, entry point, and
// per-stage defines layered on top of the pipeline's shared defines.
type StageSpec struct {
	Stage      Stage
	Source     string
	EntryPoint string
	Defines    map[string]string
}

// Pipeline drives GLSL source -> preprocess -> compile to SPIR-V ->
// cache lookup -> reflect -> generate SDI -> assemble bundle (spec
// §4.6's pipeline), with the compiler and reflector injected so the
// external tool boundary stays explicit per spec §9's "no hidden
// singleton" pattern.
type Pipeline struct {
	Preprocessor    *Preprocessor
	Compiler        Compiler
	Reflector       Reflector
	Cache           *Cache
	CompilerVersion CompilerVersion
	Logger          rtlog.Logger
}

// Compile runs every stage through the pipeline and assembles a single
// move-only Bundle.
func (p *Pipeline) Compile(ctx context.Context, stages []StageSpec, sharedDefines map[string]string) (*Bundle, error) {
	logger := p.Logger
	if logger == nil {
		logger = rtlog.NewNopLogger()
	}

	var reflection Reflection
	var modules []StageModule

	for _, spec := range stages {
		defines := mergeDefines(sharedDefines, spec.Defines)
		preprocessed, err := p.Preprocessor.Process(spec.Source, defines)
		if err != nil {
			return nil, &CompilationFailedError{Stage: spec.Stage, Err: err}
		}

		key := cacheKey(preprocessed, spec.Stage, spec.EntryPoint, defines, p.CompilerVersion)
		spirv, hit := p.Cache.get(key)
		if hit {
			logger.Debugf("shaderdi: cache hit for stage %s entry %q", spec.Stage, spec.EntryPoint)
		} else {
			var diag string
			spirv, diag, err = p.Compiler.Compile(ctx, preprocessed, spec.Stage, spec.EntryPoint, defines)
			if err != nil {
				return nil, &CompilationFailedError{Stage: spec.Stage, Err: err, Diagnostic: diag}
			}
			p.Cache.put(key, spirv)
		}

		r, err := p.Reflector.Reflect(spirv, spec.Stage)
		if err != nil {
			return nil, &CompilationFailedError{Stage: spec.Stage, Err: fmt.Errorf("reflection failed: %w", err)}
		}
		reflection.Merge(r, spec.Stage)
		modules = append(modules, StageModule{Stage: spec.Stage, EntryPoint: spec.EntryPoint, SPIRV: spirv})
	}

	descHash := computeDescriptorInterfaceHash(reflection)
	bundle := &Bundle{
		UUID:                    uuid.New(),
		Stages:                  modules,
		Reflect:                 reflection,
		Binding:                 GenerateSDI(reflection, descHash),
		InterfaceHash:           computeInterfaceHash(modules),
		DescriptorInterfaceHash: descHash,
	}
	return bundle, nil
}

func mergeDefines(shared, perStage map[string]string) map[string]string {
	out := make(map[string]string, len(shared)+len(perStage))
	for k, v := range shared {
		out[k] = v
	}
	for k, v := range perStage {
		out[k] = v
	}
	return out
}
