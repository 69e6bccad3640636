package compiler

import (
	"sync"

	"flowa/pkg/langerr"
)

// compilerPool recycles *Compiler allocations across sessions. A REPL
// takes ONE compiler at startup, feeds it to CompileWith for every line
// of the session (so the constant pool accumulates and indices compiled
// on earlier lines stay valid — see CompileWith), and returns it here
// only when the session ends.
var compilerPool = sync.Pool{
	New: func() interface{} {
		return New()
	},
}

// GetCompiler retrieves a zeroed compiler from the pool.
func GetCompiler() *Compiler {
	return compilerPool.Get().(*Compiler)
}

// PutCompiler resets c and returns it to the pool after use. The reset
// invalidates every index compiled through c, so this must only happen
// once no bytecode compiled by c will run again.
func PutCompiler(c *Compiler) {
	c.constants = c.constants[:0]
	c.scopes = c.scopes[:0]
	c.cur = langerr.Pos{}
	compilerPool.Put(c)
}
