package benchmarks

import (
	"testing"

	"flowa/pkg/vm"
)

// Plain Go benchmarks for comparison against the VM's interpretation
// overhead on equivalent workloads.
func BenchmarkGoAddition(b *testing.B) {
	var result int64
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		result = 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5
	}
	_ = result
}

func BenchmarkGoComparison(b *testing.B) {
	var result bool
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		result = 1 < 2
	}
	_ = result
}

// BenchmarkVMAdditionReuse measures the same addition chain through a
// single reused VM, isolating per-run setup cost (fresh stack/locals/
// frames via Reset) from the cost of a brand-new VM each iteration.
func BenchmarkVMAdditionReuse(b *testing.B) {
	bc := compileSource(b, `
5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5 + 5
`)

	machine := vm.New()
	machine.SetConstants(bc.Constants)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		machine.Reset()
		if err := machine.Run(bc.Body()); err != nil {
			b.Fatal(err)
		}
		result = machine.PopLast()
	}
}
