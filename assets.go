package particlefx

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"slices"

	"github.com/gekko3d/particlefx/rt/core"
	"github.com/google/uuid"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

type AssetId string

func makeAssetId() AssetId {
	return AssetId(uuid.NewString())
}

// TextureAsset is a decoded RGBA texture and the compact id material keys
// refer to it by.
type TextureAsset struct {
	Id      AssetId
	Texture core.TextureID
	Name    string
	Image   *image.RGBA
	Version uint
}

// AssetServer owns particle textures. Each distinct name is decoded once and
// assigned the next TextureID; TextureID 0 stays reserved for untextured.
type AssetServer struct {
	dir     string
	maxSize int
	log     core.Logger

	textures map[core.TextureID]*TextureAsset
	byName   map[string]core.TextureID
	byId     map[AssetId]core.TextureID
	next     core.TextureID
}

func NewAssetServer(cfg AssetsConfig, log core.Logger) *AssetServer {
	return &AssetServer{
		dir:      cfg.TextureDir,
		maxSize:  cfg.MaxTextureSize,
		log:      core.OrNop(log).Named("assets"),
		textures: make(map[core.TextureID]*TextureAsset),
		byName:   make(map[string]core.TextureID),
		byId:     make(map[AssetId]core.TextureID),
		next:     1,
	}
}

// TextureID resolves a template texture name, loading it from the texture
// directory on first use. The empty name is untextured.
func (s *AssetServer) TextureID(name string) (core.TextureID, error) {
	if name == "" {
		return 0, nil
	}
	if id, ok := s.byName[name]; ok {
		return id, nil
	}
	asset, err := s.LoadTexture(name)
	if err != nil {
		return 0, err
	}
	return asset.Texture, nil
}

// LoadTexture decodes png, jpeg, bmp or webp from the texture directory.
func (s *AssetServer) LoadTexture(name string) (*TextureAsset, error) {
	path := name
	if s.dir != "" && !filepath.IsAbs(name) {
		path = filepath.Join(s.dir, name)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening texture: %w", err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding texture %s: %w", name, err)
	}
	asset := s.CreateTexture(name, img)
	s.log.Debugf("loaded %s texture %q as %d (%dx%d)", format, name,
		asset.Texture, asset.Image.Bounds().Dx(), asset.Image.Bounds().Dy())
	return asset, nil
}

// CreateTexture registers an in-memory image under name. Registering a name
// again replaces the pixels and bumps the version; the TextureID is kept.
func (s *AssetServer) CreateTexture(name string, img image.Image) *TextureAsset {
	rgba := s.toRGBA(img)
	if id, ok := s.byName[name]; ok {
		asset := s.textures[id]
		asset.Image = rgba
		asset.Version++
		return asset
	}
	asset := &TextureAsset{
		Id:      makeAssetId(),
		Texture: s.next,
		Name:    name,
		Image:   rgba,
	}
	s.next++
	s.textures[asset.Texture] = asset
	s.byName[name] = asset.Texture
	s.byId[asset.Id] = asset.Texture
	return asset
}

// toRGBA converts to tightly packed RGBA, scaling down so neither side
// exceeds the configured maximum.
func (s *AssetServer) toRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if s.maxSize > 0 && (w > s.maxSize || h > s.maxSize) {
		if w >= h {
			h = max(1, h*s.maxSize/w)
			w = s.maxSize
		} else {
			w = max(1, w*s.maxSize/h)
			h = s.maxSize
		}
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
		return dst
	}
	if rgba, ok := img.(*image.RGBA); ok && b.Min == (image.Point{}) && rgba.Stride == 4*w {
		return rgba
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

func (s *AssetServer) Texture(id core.TextureID) (*TextureAsset, bool) {
	t, ok := s.textures[id]
	return t, ok
}

func (s *AssetServer) TextureByAsset(id AssetId) (*TextureAsset, bool) {
	tex, ok := s.byId[id]
	if !ok {
		return nil, false
	}
	return s.textures[tex], true
}

// Textures lists every texture in id order, e.g. for GPU upload.
func (s *AssetServer) Textures() []*TextureAsset {
	out := make([]*TextureAsset, 0, len(s.textures))
	for _, t := range s.textures {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b *TextureAsset) int { return int(a.Texture) - int(b.Texture) })
	return out
}
