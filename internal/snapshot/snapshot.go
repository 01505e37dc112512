// Package snapshot exports the current wall as a PNG with a JSON sidecar.
// Exports are write-once records; nothing is ever restored from them.
package snapshot

import (
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/google/uuid"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"

	"github.com/san-kum/tilewall/internal/session"
)

const (
	frameFile = "frame.png"
	metaFile  = "metadata.json"
)

type CellMeta struct {
	Row   int    `json:"row"`
	Col   int    `json:"col"`
	State string `json:"state"`
	ID    int    `json:"id,omitempty"`
	Ref   string `json:"ref,omitempty"`
}

type Metadata struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Seed      int64         `json:"seed"`
	GridSize  int           `json:"grid_size"`
	TileSize  float64       `json:"tile_size"`
	Epoch     uint64        `json:"epoch"`
	Displayed int           `json:"displayed"`
	Cells     []CellMeta    `json:"cells"`
	Stats     session.Stats `json:"stats"`
}

// Describe captures the wall's layout and counters.
func Describe(s *session.Session) Metadata {
	meta := Metadata{
		Seed:      s.Config().Seed,
		TileSize:  s.TileSize(),
		Epoch:     s.Epoch(),
		Displayed: s.Displayed().Len(),
		Stats:     s.Stats(),
	}
	g := s.Grid()
	if g == nil {
		return meta
	}
	meta.GridSize = g.Size()
	for _, p := range g.Positions() {
		c := g.At(p)
		cm := CellMeta{Row: p.Row, Col: p.Col, State: c.State.String()}
		if !c.IsEmpty() {
			cm.ID = int(c.ID)
			if ref, ok := s.RefAt(p); ok {
				cm.Ref = ref.String()
			}
		}
		meta.Cells = append(meta.Cells, cm)
	}
	return meta
}


type Store struct {
	baseDir string
	font    *truetype.Font
	faces   map[float64]font.Face
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// labelFace returns the gomono face for size, parsing the font once.
func (s *Store) labelFace(size float64) (font.Face, error) {
	if face, ok := s.faces[size]; ok {
		return face, nil
	}
	if s.font == nil {
		f, err := truetype.Parse(gomono.TTF)
		if err != nil {
			return nil, fmt.Errorf("parse font: %w", err)
		}
		s.font = f
	}
	if s.faces == nil {
		s.faces = make(map[float64]font.Face)
	}
	face := truetype.NewFace(s.font, &truetype.Options{Size: size})
	s.faces[size] = face
	return face, nil
}

// Save writes the rendered wall with grid lines and id labels drawn on top,
// and returns the metadata with its new id filled in.
func (s *Store) Save(img image.Image, meta Metadata) (Metadata, error) {
	meta.ID = uuid.NewString()
	meta.Timestamp = time.Now()

	dir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return meta, err
	}

	dc := gg.NewContextForImage(img)
	if meta.GridSize > 0 && meta.TileSize > 0 {
		face, err := s.labelFace(labelSize(meta.TileSize))
		if err != nil {
			return meta, err
		}
		annotate(dc, meta, face)
	}
	if err := dc.SavePNG(filepath.Join(dir, frameFile)); err != nil {
		return meta, fmt.Errorf("write frame: %w", err)
	}

	f, err := os.Create(filepath.Join(dir, metaFile))
	if err != nil {
		return meta, err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return meta, err
	}
	return meta, nil
}

func labelSize(tileSize float64) float64 {
	size := tileSize / 6
	if size < 8 {
		size = 8
	}
	return size
}

func annotate(dc *gg.Context, meta Metadata, face font.Face) {
	side := meta.TileSize * float64(meta.GridSize)

	dc.SetRGBA(0, 0, 0, 0.35)
	dc.SetLineWidth(1)
	for i := 0; i <= meta.GridSize; i++ {
		v := float64(i) * meta.TileSize
		dc.DrawLine(v, 0, v, side)
		dc.DrawLine(0, v, side, v)
	}
	dc.Stroke()

	dc.SetFontFace(face)
	for _, c := range meta.Cells {
		if c.State == "empty" {
			continue
		}
		x := float64(c.Col)*meta.TileSize + 4
		y := float64(c.Row)*meta.TileSize + 4
		label := strconv.Itoa(c.ID)
		w, h := dc.MeasureString(label)
		dc.SetRGBA(0, 0, 0, 0.6)
		dc.DrawRectangle(x-2, y-2, w+4, h+4)
		dc.Fill()
		dc.SetRGB(1, 1, 1)
		dc.DrawStringAnchored(label, x, y, 0, 1)
	}
}

func (s *Store) List() ([]Metadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Metadata{}, nil
		}
		return nil, err
	}

	snaps := make([]Metadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		snaps = append(snaps, *meta)
	}
	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].Timestamp.Before(snaps[j].Timestamp)
	})
	return snaps, nil
}

func (s *Store) Load(id string) (*Metadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, id, metaFile))
	if err != nil {
		return nil, err
	}

	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// FramePath is where the PNG of snapshot id lives.
func (s *Store) FramePath(id string) string {
	return filepath.Join(s.baseDir, id, frameFile)
}
