package vn

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// spriteAnchor is where the character sprite is pasted on the background.
type spriteAnchor struct {
	X, Y int
}

// Sprite anchors for the three supported stage positions.
var spriteAnchors = map[string]spriteAnchor{
	"left":   {-115, 0},
	"center": {108, 0},
	"right":  {300, 0},
}

// assetFiles maps renderer image keys to their file locations under the
// assets root.
var assetFiles = map[string]string{
	"smile":     "sprites/smile.png",
	"delighted": "sprites/delighted.png",
	"angry":     "sprites/angry.png",
	"shocked":   "sprites/shocked.png",
	"sad":       "sprites/sad.png",

	"overlay_chat":  "ui_elements/overlay_chat.png",
	"overlay_menu":  "ui_elements/overlay_menu.png",
	"overlay_map":   "ui_elements/overlay_map.png",
	"overlay_about": "ui_elements/overlay_about.png",

	"bridge": "backgrounds/bridge.png",
	"swing":  "backgrounds/swing.png",
	"grove":  "backgrounds/grove.png",
	"path":   "backgrounds/path.png",
}

// overlayForScreen selects the overlay image key for each screen.
var overlayForScreen = map[Screen]string{
	ScreenChat:       "overlay_chat",
	ScreenChatPaging: "overlay_chat",
	ScreenMenu:       "overlay_menu",
	ScreenMap:        "overlay_map",
	ScreenAbout:      "overlay_about",
}

// Text layout coordinates, tuned for the stock 800x600 scene assets.
const (
	statsX    = 24
	statsY    = 420
	dialogueX = 24
	dialogueY = 452
	lineGap   = 26
)

// Renderer composites the visual-novel scene into a JPEG screen image.
// It is not safe for concurrent use; the bot layer serializes rendering.
type Renderer struct {
	images map[string]image.Image
	face   font.Face
}

// NewRenderer creates a Renderer drawing text with the font at fontPath.
// An empty fontPath selects a built-in bitmap face, good enough for tests
// and headless setups.
func NewRenderer(fontPath string) (*Renderer, error) {
	face := font.Face(basicfont.Face7x13)
	if fontPath != "" {
		data, err := os.ReadFile(fontPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read font: %w", err)
		}
		parsed, err := opentype.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse font: %w", err)
		}
		face, err = opentype.NewFace(parsed, &opentype.FaceOptions{Size: 18, DPI: 72})
		if err != nil {
			return nil, fmt.Errorf("failed to build font face: %w", err)
		}
	}
	return &Renderer{
		images: make(map[string]image.Image),
		face:   face,
	}, nil
}

// LoadAssets reads every sprite, background and overlay from assetsRoot.
// Missing files are a startup error, not a render-time one.
func (r *Renderer) LoadAssets(assetsRoot string) error {
	for key, rel := range assetFiles {
		img, err := imaging.Open(filepath.Join(assetsRoot, filepath.FromSlash(rel)))
		if err != nil {
			return fmt.Errorf("failed to load asset %q: %w", rel, err)
		}
		r.images[key] = img
	}
	return nil
}

// SetImage registers or replaces a single asset image. Tests use it to
// supply synthetic assets without touching the filesystem.
func (r *Renderer) SetImage(key string, img image.Image) {
	r.images[key] = img
}

// Render composites the scene for the novel's current state: background,
// character sprite, screen overlay, stats line and dialogue text.
func (r *Renderer) Render(n *Novel) (image.Image, error) {
	background, ok := r.images[n.Location]
	if !ok {
		return nil, fmt.Errorf("no background asset for location %q", n.Location)
	}
	sprite, ok := r.images[n.Sprite()]
	if !ok {
		return nil, fmt.Errorf("no sprite asset for mood %q", n.Mood)
	}
	overlayKey := overlayForScreen[n.Screen]
	overlay, ok := r.images[overlayKey]
	if !ok {
		return nil, fmt.Errorf("no overlay asset for screen %v", n.Screen)
	}

	anchor := spriteAnchors["center"]
	scene := imaging.Clone(background)
	scene = imaging.Overlay(scene, sprite, image.Pt(anchor.X, anchor.Y), 1.0)
	scene = imaging.Overlay(scene, overlay, image.Pt(0, 0), 1.0)

	r.drawText(scene, n.Stats(), statsX, statsY)

	body := n.Chat()
	if n.Screen == ScreenMenu {
		body = n.MenuText()
	}
	for i, line := range strings.Split(body, "\n") {
		r.drawText(scene, line, dialogueX, dialogueY+i*lineGap)
	}

	return scene, nil
}

// RenderToFile renders the scene and writes it as a JPEG at path.
func (r *Renderer) RenderToFile(n *Novel, path string) error {
	scene, err := r.Render(n)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := imaging.Save(scene, path, imaging.JPEGQuality(90)); err != nil {
		return fmt.Errorf("failed to save scene: %w", err)
	}
	return nil
}

// drawText draws one line of white text at the given pixel position.
func (r *Renderer) drawText(dst *image.NRGBA, text string, x, y int) {
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.White),
		Face: r.face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
