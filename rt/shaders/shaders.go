package shaders

import (
	_ "embed"
)

//go:embed particles.wgsl
var ParticlesWGSL string
