//go:build chronodebug

package engine

func debugAssert(ok bool, msg string) {
	if !ok {
		panic("engine: " + msg)
	}
}
