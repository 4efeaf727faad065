package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/park285/primordia/internal/domain"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

const (
	DefaultBoardWidth  = 60.0
	DefaultBoardHeight = 44.0

	pixelsPerInch    = 12
	sideMargin       = 32
	topMargin        = 104
	bottomMargin     = 32
	markerSize       = 30
	largeMarkerSize  = 40
	deploymentDepth  = 12.0
	gridStepInches   = 6
	panelRadius      = 10
	panelHeight      = 30
	panelGap         = 10
	panelPaddingX    = 18
	titleMinWidth    = 240
	scoreMinWidth    = 120
	shadowOffsetY    = 5
	deadOpacity      = 0.35
	highlightPadding = 6
)

var (
	backgroundColor  = color.RGBA{R: 22, G: 24, B: 34, A: 255}
	fieldColor       = color.RGBA{R: 96, G: 112, B: 74, A: 255}
	gridColor        = color.NRGBA{R: 255, G: 255, B: 255, A: 28}
	p1ZoneColor      = color.NRGBA{R: 47, G: 111, B: 214, A: 40}
	p2ZoneColor      = color.NRGBA{R: 201, G: 66, B: 58, A: 40}
	highlightColor   = color.NRGBA{R: 255, G: 228, B: 120, A: 170}
	p1ArrowColor     = color.NRGBA{R: 150, G: 196, B: 255, A: 200}
	p2ArrowColor     = color.NRGBA{R: 255, G: 160, B: 150, A: 200}
	hudPanelColor    = color.NRGBA{R: 28, G: 31, B: 46, A: 250}
	hudShadowColor   = color.NRGBA{A: 60}
	hudTextPrimary   = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	hudTextSecondary = color.NRGBA{R: 204, G: 210, B: 236, A: 255}
)

// Options tunes one render. Highlight rings a unit; the last recorded move
// is drawn as an arrow unless HideLastMove is set.
type Options struct {
	Title        string
	Highlight    *uuid.UUID
	HideLastMove bool
}

// Renderer draws a battlefield snapshot as PNG.
type Renderer interface {
	RenderPNG(ctx context.Context, state *domain.GameState, opts Options) ([]byte, error)
}

// PNGRenderer draws a top-down board: deployment zones, a 6" grid, one
// marker per unit and a HUD with mission, score and turn.
type PNGRenderer struct {
	width  float64
	height float64
	face   font.Face
}

// NewPNGRenderer takes the board size in inches; non-positive values fall
// back to 60x44.
func NewPNGRenderer(widthInches, heightInches float64) *PNGRenderer {
	if widthInches <= 0 {
		widthInches = DefaultBoardWidth
	}
	if heightInches <= 0 {
		heightInches = DefaultBoardHeight
	}
	return &PNGRenderer{width: widthInches, height: heightInches, face: basicfont.Face7x13}
}

// Size returns the output image size in pixels.
func (r *PNGRenderer) Size() image.Point {
	return image.Pt(r.boardPixelsW()+sideMargin*2, r.boardPixelsH()+topMargin+bottomMargin)
}

func (r *PNGRenderer) boardPixelsW() int { return int(math.Round(r.width * pixelsPerInch)) }
func (r *PNGRenderer) boardPixelsH() int { return int(math.Round(r.height * pixelsPerInch)) }

func (r *PNGRenderer) RenderPNG(ctx context.Context, state *domain.GameState, opts Options) ([]byte, error) {
	if state == nil {
		return nil, fmt.Errorf("game state is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	size := r.Size()
	img := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	board := image.Rect(sideMargin, topMargin, sideMargin+r.boardPixelsW(), topMargin+r.boardPixelsH())
	r.drawField(img, board)
	r.drawHUD(img, board, state, opts)

	if !opts.HideLastMove {
		r.drawLastMove(img, board, state)
	}
	if opts.Highlight != nil {
		if u, ok := state.GetUnit(*opts.Highlight); ok {
			c := r.toPixel(board, u.Position)
			size := unitMarkerSize(u)
			drawRing(img, image.Pt(int(c.X), int(c.Y)), size/2+highlightPadding, size/2+2, highlightColor)
		}
	}

	// dead units first so living markers stay on top
	for _, alive := range []bool{false, true} {
		for player, units := range [][]*domain.Unit{state.Player1Units, state.Player2Units} {
			style := player1Marker
			if player == 1 {
				style = player2Marker
			}
			for _, u := range units {
				if u == nil || u.IsAlive() != alive {
					continue
				}
				if err := r.drawUnit(img, board, u, style); err != nil {
					return nil, err
				}
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *PNGRenderer) drawField(img *image.RGBA, board image.Rectangle) {
	drawRoundedPanel(img, board.Add(image.Pt(0, shadowOffsetY)), 0, hudShadowColor)
	imagedraw.Draw(img, board, image.NewUniform(fieldColor), image.Point{}, imagedraw.Src)

	depth := int(math.Round(math.Min(deploymentDepth, r.height/2) * pixelsPerInch))
	// player 1 deploys along the bottom edge, player 2 along the top
	imagedraw.Draw(img, image.Rect(board.Min.X, board.Max.Y-depth, board.Max.X, board.Max.Y), image.NewUniform(p1ZoneColor), image.Point{}, imagedraw.Over)
	imagedraw.Draw(img, image.Rect(board.Min.X, board.Min.Y, board.Max.X, board.Min.Y+depth), image.NewUniform(p2ZoneColor), image.Point{}, imagedraw.Over)

	step := gridStepInches * pixelsPerInch
	line := image.NewUniform(gridColor)
	for x := board.Min.X + step; x < board.Max.X; x += step {
		imagedraw.Draw(img, image.Rect(x, board.Min.Y, x+1, board.Max.Y), line, image.Point{}, imagedraw.Over)
	}
	for y := board.Min.Y + step; y < board.Max.Y; y += step {
		imagedraw.Draw(img, image.Rect(board.Min.X, y, board.Max.X, y+1), line, image.Point{}, imagedraw.Over)
	}
}

func (r *PNGRenderer) drawHUD(img *image.RGBA, board image.Rectangle, state *domain.GameState, opts Options) {
	drawer := &font.Drawer{Dst: img, Face: r.face}

	title := strings.TrimSpace(opts.Title)
	if title == "" {
		title = fmt.Sprintf("%s / %s", state.Mission, state.DeploymentType)
	}
	score := fmt.Sprintf("VP %d : %d", state.Player1VP, state.Player2VP)
	turn := fmt.Sprintf("Turn %d - %s - Player %d", state.TurnNumber, state.CurrentPhase, state.ActivePlayer)

	measure := func(s string, minW int) int {
		return max(minW, drawer.MeasureString(s).Round()+panelPaddingX*2)
	}
	scoreW := min(measure(score, scoreMinWidth), board.Dx()/2)
	titleW := min(measure(title, titleMinWidth), board.Dx()-scoreW-panelGap)
	turnW := min(measure(turn, 0), board.Dx())

	turnBottom := board.Min.Y - panelGap*2
	turnTop := turnBottom - panelHeight
	titleBottom := turnTop - panelGap
	titleTop := titleBottom - panelHeight

	titleRect := image.Rect(board.Min.X, titleTop, board.Min.X+titleW, titleBottom)
	scoreRect := image.Rect(board.Max.X-scoreW, titleTop, board.Max.X, titleBottom)
	turnLeft := board.Min.X + (board.Dx()-turnW)/2
	turnRect := image.Rect(turnLeft, turnTop, turnLeft+turnW, turnBottom)

	for _, rect := range []image.Rectangle{titleRect, scoreRect, turnRect} {
		drawRoundedPanel(img, rect.Add(image.Pt(0, shadowOffsetY)), panelRadius, hudShadowColor)
		drawRoundedPanel(img, rect, panelRadius, hudPanelColor)
	}
	drawCenteredString(drawer, titleRect, truncate(r.face, title, titleRect.Dx()-panelPaddingX*2), hudTextPrimary)
	drawCenteredString(drawer, scoreRect, score, hudTextPrimary)
	drawCenteredString(drawer, turnRect, truncate(r.face, turn, turnRect.Dx()-panelPaddingX), hudTextSecondary)
}

func (r *PNGRenderer) drawUnit(img *image.RGBA, board image.Rectangle, u *domain.Unit, style markerStyle) error {
	opacity := 1.0
	if !u.IsAlive() {
		opacity = deadOpacity
	}
	size := unitMarkerSize(u)
	marker, err := markerImage(style, size, opacity)
	if err != nil {
		return err
	}
	c := r.toPixel(board, u.Position)
	at := image.Pt(int(c.X)-size/2, int(c.Y)-size/2)
	imagedraw.Draw(img, marker.Bounds().Add(at), marker, image.Point{}, imagedraw.Over)
	return nil
}

// unitMarkerSize gives vehicles and monsters a bigger token.
func unitMarkerSize(u *domain.Unit) int {
	if u.HasKeyword("Vehicle") || u.HasKeyword("Monster") {
		return largeMarkerSize
	}
	return markerSize
}

// arrowColor tints a move arrow with the acting side's colour.
func arrowColor(owner int) color.NRGBA {
	if owner == 2 {
		return p2ArrowColor
	}
	return p1ArrowColor
}

// drawLastMove draws an arrow from the acting unit to its target position or
// target unit.
func (r *PNGRenderer) drawLastMove(img *image.RGBA, board image.Rectangle, state *domain.GameState) {
	m, ok := state.LastMove()
	if !ok {
		return
	}
	actor, ok := state.GetUnit(m.UnitID)
	if !ok {
		return
	}
	var target domain.Position
	switch {
	case m.TargetPosition != nil:
		target = *m.TargetPosition
	case m.TargetID != nil:
		t, ok := state.GetUnit(*m.TargetID)
		if !ok {
			return
		}
		target = t.Position
	default:
		return
	}
	drawArrow(img, r.toPixel(board, actor.Position), r.toPixel(board, target), 6, arrowColor(state.Owner(m.UnitID)))
}

// toPixel maps board inches to image pixels. Y grows toward player 2's
// edge, so it is flipped; positions outside the board are clamped.
func (r *PNGRenderer) toPixel(board image.Rectangle, p domain.Position) pointF {
	x := math.Max(0, math.Min(r.width, p.X))
	y := math.Max(0, math.Min(r.height, p.Y))
	return pointF{
		X: float64(board.Min.X) + x*pixelsPerInch,
		Y: float64(board.Max.Y) - y*pixelsPerInch,
	}
}
