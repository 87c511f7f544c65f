//go:build fxdebug

package manager

const debugChecks = true
