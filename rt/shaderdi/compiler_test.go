package shaderdi

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompiler struct {
	calls int
}

func (f *fakeCompiler) Compile(ctx context.Context, source string, stage Stage, entryPoint string, defines map[string]string) ([]uint32, string, error) {
	f.calls++
	return []uint32{uint32(len(source)), uint32(stage)}, "", nil
}

func fakeReflector() Reflector {
	return ReflectFunc(func(spirv []uint32, stage Stage) (Reflection, error) {
		return Reflection{
			Descriptors: []DescriptorBinding{{Set: 0, Binding: 0, Type: DescriptorStorageImage}},
		}, nil
	})
}

func TestPipelineCompileCachesRepeatedStage(t *testing.T) {
	compiler := &fakeCompiler{}
	p := &Pipeline{
		Preprocessor:    NewPreprocessor(MapIncludeResolver{}, false),
		Compiler:        compiler,
		Reflector:       fakeReflector(),
		Cache:           NewCache(),
		CompilerVersion: "test-v1",
	}

	stages := []StageSpec{{Stage: StageCompute, Source: "void main(){}", EntryPoint: "main"}}

	b1, err := p.Compile(context.Background(), stages, nil)
	require.NoError(t, err)
	b2, err := p.Compile(context.Background(), stages, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, compiler.calls, "second compile with identical inputs must hit the cache")
	assert.Equal(t, b1.InterfaceHash, b2.InterfaceHash)
	assert.NotEqual(t, b1.UUID, b2.UUID, "each compile produces a distinct bundle identity")
}

func TestPipelineCompileInvalidatesCacheOnDefineChange(t *testing.T) {
	compiler := &fakeCompiler{}
	p := &Pipeline{
		Preprocessor:    NewPreprocessor(MapIncludeResolver{}, false),
		Compiler:        compiler,
		Reflector:       fakeReflector(),
		Cache:           NewCache(),
		CompilerVersion: "test-v1",
	}

	stages := []StageSpec{{Stage: StageCompute, Source: "void main(){}", EntryPoint: "main"}}

	_, err := p.Compile(context.Background(), stages, map[string]string{"N": "1"})
	require.NoError(t, err)
	_, err = p.Compile(context.Background(), stages, map[string]string{"N": "2"})
	require.NoError(t, err)

	assert.Equal(t, 2, compiler.calls)
}

type failingPreprocessResolver struct{}

func (failingPreprocessResolver) Resolve(path string) (string, error) {
	return "", assertErr
}

var assertErr = &CompilationFailedError{Stage: StageCompute}

func TestPipelineCompileWrapsPreprocessFailure(t *testing.T) {
	p := &Pipeline{
		Preprocessor: NewPreprocessor(failingPreprocessResolver{}, false),
		Compiler:     &fakeCompiler{},
		Reflector:    fakeReflector(),
		Cache:        NewCache(),
	}
	stages := []StageSpec{{Stage: StageFragment, Source: "#include \"x\"", EntryPoint: "main"}}

	_, err := p.Compile(context.Background(), stages, nil)
	require.Error(t, err)
	var cfErr *CompilationFailedError
	assert.ErrorAs(t, err, &cfErr)
}
