package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/thrustmig/internal/compiler"
	"github.com/roach88/thrustmig/internal/engine"
	"github.com/roach88/thrustmig/internal/ir"
	"github.com/roach88/thrustmig/internal/rules"
)

// BuiltinRules labels the embedded rule table in output.
const BuiltinRules = "built-in"

// LoadResult contains a compiled rule table and where it came from.
type LoadResult struct {
	Source    string // rules directory, or BuiltinRules
	Functions []ir.FunctionRules
	FileCount int // number of CUE files found
}

// LoadError represents an error that occurred while loading rules.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadRules compiles the rule table in dir. An empty dir selects the
// built-in table. Errors are *LoadError.
func LoadRules(dir string) (*LoadResult, error) {
	if dir == "" {
		funcs, err := compiler.CompileSource(rules.Thrust, rules.Filename)
		if err != nil {
			return nil, convertCompileError(err)
		}
		return &LoadResult{Source: BuiltinRules, Functions: funcs, FileCount: 1}, nil
	}

	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("rules directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing rules directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(cueFiles) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}

	funcs, err := compiler.CompileRules(value)
	if err != nil {
		return nil, convertCompileError(err)
	}

	return &LoadResult{Source: dir, Functions: funcs, FileCount: len(cueFiles)}, nil
}

// LoadRegistry builds the engine registry for dir. An empty dir selects the
// shared built-in registry.
func LoadRegistry(dir string) (*engine.Registry, error) {
	if dir == "" {
		return engine.DefaultRegistry()
	}
	result, err := LoadRules(dir)
	if err != nil {
		return nil, err
	}
	return engine.NewRegistry(result.Functions)
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    ErrCodeCompileFailed,
			Message: fmt.Sprintf("%s: %s", compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{Code: ErrCodeCompileFailed, Message: err.Error()}
}

// loadErrorParts splits an error into a code and message for output.
func loadErrorParts(err error) (string, string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		if loadErr.Pos.IsValid() {
			return loadErr.Code, fmt.Sprintf("%s:%d: %s", loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Message)
		}
		return loadErr.Code, loadErr.Message
	}
	return ErrCodeGeneric, err.Error()
}

// Error code constants, shared by all commands. Rule table validation
// codes (E1xx) come from the compiler package.
const (
	ErrCodeGeneric       = "E001" // Generic/unknown error
	ErrCodeScanError     = "E002" // Directory scan error
	ErrCodeNoFiles       = "E003" // No CUE files found
	ErrCodeLoadFailed    = "E004" // CUE load failed
	ErrCodeNotFound      = "E005" // Path not found
	ErrCodeBuildFailed   = "E006" // CUE build failed
	ErrCodeWriteFailed   = "E007" // File write error
	ErrCodeCompileFailed = "E008" // Rule table does not compile
	ErrCodeSiteFile      = "E009" // Call-site file unreadable or invalid
	ErrCodeDatabase      = "E010" // Migration log error
)
