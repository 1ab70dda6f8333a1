// Package engine provides the Lisp evaluation engine for facet.
// It wraps zygomys in a sandboxed environment whose builtins build, edit
// and query a half-edge mesh.
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chazu/facet/pkg/dcel"
	"github.com/chazu/facet/pkg/kernel"
	"github.com/chazu/facet/pkg/kernel/sdfx"
	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/sirupsen/logrus"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// EvalWarning represents a non-fatal warning produced by a builtin, such as
// a refused edge flip.
type EvalWarning struct {
	Builtin string
	Message string
}

func (w EvalWarning) String() string {
	return w.Builtin + ": " + w.Message
}

// EvalResult bundles the full output of an evaluation.
type EvalResult struct {
	// Mesh is the mesh after the program ran, nil when Errors is set.
	Mesh *dcel.Mesh
	// Value is the printed value of the last expression.
	Value    string
	Errors   []EvalError
	Warnings []EvalWarning
}

// DefaultChecks is the number of rays cast by the inside builtin unless
// the program asks for another count.
const DefaultChecks = 101

// Engine wraps the zygomys interpreter for facet evaluation.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment for determinism.
type Engine struct {
	mu         sync.Mutex
	generation uint64

	kernel  kernel.Kernel
	checks  int
	timeout time.Duration
	log     logrus.FieldLogger
}

// Option configures an Engine.
type Option func(*Engine)

// WithKernel sets the kernel used by the solid builtins.
func WithKernel(k kernel.Kernel) Option {
	return func(e *Engine) { e.kernel = k }
}

// WithChecks sets the default ray count of the inside builtin.
func WithChecks(n int) Option {
	return func(e *Engine) { e.checks = n }
}

// WithTimeout sets the hard limit for a single evaluation.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Engine) { e.log = l }
}

// NewEngine creates a new Engine instance.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		checks:  DefaultChecks,
		timeout: EvalTimeout,
		log:     logrus.StandardLogger(),
	}
	for _, o := range opts {
		o(e)
	}
	if e.kernel == nil {
		e.kernel = sdfx.NewWithResolution(64)
	}
	return e
}

// Evaluate runs source on an empty mesh.
//
// Return semantics:
//   - On success: returns mesh + nil errors + nil error
//   - On parse/eval failure: returns nil mesh + eval errors + nil error
//   - On fatal failure (timeout, panic): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*dcel.Mesh, []EvalError, error) {
	res, err := e.Run(nil, source)
	if err != nil {
		return nil, nil, err
	}
	return res.Mesh, res.Errors, nil
}

// Run evaluates source against a copy of base, or an empty mesh when base
// is nil. base itself is never modified.
func (e *Engine) Run(base *dcel.Mesh, source string) (*EvalResult, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	log := e.log.WithField("generation", gen)
	log.Debug("evaluation started")
	start := time.Now()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		ch <- evalResult{result: e.evaluate(base, source)}
	}()

	res, err := waitWithTimeout(ch, gen, &e.mu, &e.generation, e.timeout)
	if err != nil {
		log.WithError(err).Warn("evaluation failed")
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"errors":   len(res.Errors),
		"warnings": len(res.Warnings),
		"elapsed":  time.Since(start),
	}).Debug("evaluation finished")
	return res, nil
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(base *dcel.Mesh, source string) *EvalResult {
	s := newSession(base, e.kernel, e.checks)

	// Empty source is a valid program that leaves the mesh as it is.
	if strings.TrimSpace(source) == "" {
		return &EvalResult{Mesh: s.mesh}
	}

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()
	registerBuiltins(env, s)

	// Load and compile the source string into bytecode.
	if err := env.LoadString(preprocessSource(source)); err != nil {
		return &EvalResult{Errors: parseZygomysError(err)}
	}

	// Execute the compiled bytecode.
	v, err := env.Run()
	if err != nil {
		return &EvalResult{Errors: parseZygomysError(err)}
	}

	s.mesh.UpdateNormals()
	s.mesh.UpdateBoundingBox()
	res := &EvalResult{Mesh: s.mesh, Warnings: s.warnings}
	if v != nil {
		res.Value = v.SexpString(nil)
	}
	return res
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	// zygomys formats parse errors as "Error on line N: <details>\n"
	for _, p := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := p.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{
				Line:    line,
				Message: strings.TrimSpace(m[2]),
			}}
		}
	}

	// Fallback: no line info available.
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
