//go:build !unix

package common

func adviseSequential(mapped []byte) {}
