// Package filter narrows a result set with expr-lang expressions evaluated
// against each record.
//
// Record fields are exposed as variables, so a crash listing can be filtered
// with expressions such as:
//
//	has(appName, "game") and crashCount > 10
//	Database == "MyGame_Prod" and daysSince(parseDate(crashTime)) < 7
package filter

import (
	"fmt"
	"maps"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/s0up4200/splatctl/bugsplat"
	"github.com/s0up4200/splatctl/fetcher"
)

// Filter is a compiled boolean expression over records
type Filter struct {
	expression string
	program    *vm.Program
	helpers    map[string]any
}

// Expression returns the source expression
func (f *Filter) Expression() string {
	return f.expression
}

// Match evaluates the filter against a record of database
func (f *Filter) Match(database string, r bugsplat.Record) (bool, error) {
	out, err := expr.Run(f.program, recordEnvironment(database, r, f.helpers))
	if err != nil {
		return false, &EvaluationError{
			Expression: f.expression,
			Database:   database,
			RecordID:   r.ID(),
			Err:        err,
		}
	}
	b, ok := out.(bool)
	if !ok {
		return false, &EvaluationError{
			Expression: f.expression,
			Database:   database,
			RecordID:   r.ID(),
			Err:        fmt.Errorf("expression returned %T, not bool", out),
		}
	}
	return b, nil
}

// Option configures a Compiler
type Option func(*Compiler)

// WithCache keeps up to size compiled filters
func WithCache(size int) Option {
	return func(c *Compiler) {
		if size > 0 {
			c.cache = newFilterCache(size)
		}
	}
}

// WithFunctions adds helper functions, replacing built-ins of the same name
func WithFunctions(funcs map[string]any) Option {
	return func(c *Compiler) {
		maps.Copy(c.helpers, funcs)
	}
}

// Compiler compiles filter expressions
type Compiler struct {
	helpers map[string]any
	cache   *filterCache
}

// NewCompiler creates a Compiler
func NewCompiler(opts ...Option) *Compiler {
	c := &Compiler{helpers: helperFunctions()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile compiles expression, which must evaluate to a boolean
func (c *Compiler) Compile(expression string) (*Filter, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, &CompilationError{Expression: expression, Reason: "empty expression"}
	}

	if c.cache != nil {
		if f, ok := c.cache.get(expression); ok {
			return f, nil
		}
	}

	env := maps.Clone(c.helpers)
	env["Record"] = map[string]any{}
	env["Database"] = ""

	program, err := expr.Compile(expression,
		expr.Env(env),
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
	)
	if err != nil {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "failed to compile expression",
			Err:        err,
		}
	}

	f := &Filter{expression: expression, program: program, helpers: c.helpers}
	if c.cache != nil {
		c.cache.put(expression, f)
	}
	return f, nil
}

// CacheSize returns the number of cached filters
func (c *Compiler) CacheSize() int {
	if c.cache == nil {
		return 0
	}
	return c.cache.len()
}

// ClearCache drops every cached filter
func (c *Compiler) ClearCache() {
	if c.cache != nil {
		c.cache.clear()
	}
}

// Result is the outcome of Apply
type Result struct {
	Results fetcher.ResultSet
	Kept    int
	Dropped int
	Errors  []error
}

// Apply returns a new result set holding only the rows f matches. Input rows
// are not modified. Rows whose evaluation fails are dropped and their errors
// collected.
func Apply(f *Filter, rs fetcher.ResultSet) Result {
	res := Result{Results: make(fetcher.ResultSet, 0, len(rs))}

	for _, target := range rs {
		kept := make([]bugsplat.Record, 0, len(target.Rows))
		for _, row := range target.Rows {
			ok, err := f.Match(target.Database, row)
			if err != nil {
				res.Errors = append(res.Errors, err)
			}
			if ok {
				kept = append(kept, row)
				res.Kept++
			} else {
				res.Dropped++
			}
		}

		out := target
		out.Rows = kept
		res.Results = append(res.Results, out)
	}

	return res
}
