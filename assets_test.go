package particlefx

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/gekko3d/particlefx/rt/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 255, G: uint8(x), B: uint8(y), A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestAssetServer_LoadTexture(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "smoke.png"), 64, 32)
	assets := NewAssetServer(AssetsConfig{TextureDir: dir, MaxTextureSize: 16}, nil)

	id, err := assets.TextureID("smoke.png")
	require.NoError(t, err)
	assert.Equal(t, core.TextureID(1), id)

	again, err := assets.TextureID("smoke.png")
	require.NoError(t, err)
	assert.Equal(t, id, again, "a name is decoded once")

	asset, ok := assets.Texture(id)
	require.True(t, ok)
	assert.Equal(t, image.Rect(0, 0, 16, 8), asset.Image.Bounds(), "scaled to the max size, aspect kept")
	assert.NotEmpty(t, asset.Id)

	byAsset, ok := assets.TextureByAsset(asset.Id)
	require.True(t, ok)
	assert.Same(t, asset, byAsset)
}

func TestAssetServer_Untextured(t *testing.T) {
	assets := NewAssetServer(AssetsConfig{}, nil)
	id, err := assets.TextureID("")
	require.NoError(t, err)
	assert.Equal(t, core.TextureID(0), id)
	assert.Empty(t, assets.Textures())

	_, err = assets.TextureID("missing.png")
	assert.Error(t, err)
}

func TestAssetServer_CreateTexture(t *testing.T) {
	assets := NewAssetServer(AssetsConfig{}, nil)
	a := assets.CreateTexture("glow", image.NewNRGBA(image.Rect(2, 2, 6, 6)))
	b := assets.CreateTexture("ring", image.NewRGBA(image.Rect(0, 0, 8, 8)))
	assert.Equal(t, core.TextureID(1), a.Texture)
	assert.Equal(t, core.TextureID(2), b.Texture)
	assert.Equal(t, image.Rect(0, 0, 4, 4), a.Image.Bounds(), "converted to a zero-origin RGBA")

	replaced := assets.CreateTexture("glow", image.NewRGBA(image.Rect(0, 0, 2, 2)))
	assert.Equal(t, a.Texture, replaced.Texture)
	assert.Equal(t, uint(1), replaced.Version)

	var ids []core.TextureID
	for _, tex := range assets.Textures() {
		ids = append(ids, tex.Texture)
	}
	assert.Equal(t, []core.TextureID{1, 2}, ids)
}

func TestAssetServer_ResolvesTemplateTextures(t *testing.T) {
	assets := NewAssetServer(AssetsConfig{}, nil)
	assets.CreateTexture("smoke.png", image.NewRGBA(image.Rect(0, 0, 1, 1)))
	assets.CreateTexture("spark.png", image.NewRGBA(image.Rect(0, 0, 1, 1)))

	lib := NewTemplateLibrary()
	require.NoError(t, lib.LoadYAML([]byte(testTemplatesYAML), assets))
	tracer, err := lib.Get("tracer")
	require.NoError(t, err)
	assert.Equal(t, core.TextureID(2), tracer.Texture)
}
