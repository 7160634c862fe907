// A miniature instrumented target: the tagged allocators stand in for the
// runtime the instrumentation stage links against.
package main

func tagged_malloc(n int) *int {
	p := new(int)
	_ = n
	return p
}

func tagged_realloc(p *int, n int) *int {
	_ = n
	return p
}

func fill(p *int, v int) {
	*p = v
}

func main() {
	buf := tagged_malloc(16)
	fill(buf, 1)

	buf = tagged_realloc(buf, 32)
	out := *buf
	_ = out
}
