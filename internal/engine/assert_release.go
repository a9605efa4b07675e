//go:build !chronodebug

package engine

func debugAssert(bool, string) {}
