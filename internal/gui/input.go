package gui

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// input is what Update reads each frame.
type input interface {
	Cursor() (int, int)
	JustPressed() bool
	JustReleased() bool
	KeyJustPressed(k ebiten.Key) bool
}

type ebitenInput struct{}

func (ebitenInput) Cursor() (int, int) { return ebiten.CursorPosition() }

func (ebitenInput) JustPressed() bool {
	return inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft)
}

func (ebitenInput) JustReleased() bool {
	return inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft)
}

func (ebitenInput) KeyJustPressed(k ebiten.Key) bool {
	return inpututil.IsKeyJustPressed(k)
}
