// Package chart renders one PNG per workout: heart rate with lap and segment
// overlays, stroke count per lap, and SWOLF against lap seconds, stacked on a
// shared time axis.
package chart

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/claude/swimlaps/internal/ingest"
	"github.com/claude/swimlaps/internal/models"
	"github.com/claude/swimlaps/internal/swim"
)

// Options sets the image size in pixels.
type Options struct {
	Width  int
	Height int
}

// Renderer writes workout charts into a directory.
type Renderer struct {
	dir  string
	opts Options
}

func New(dir string, opts Options) *Renderer {
	return &Renderer{dir: dir, opts: opts}
}

// Filename is "<YYYY-MM-DD> <distance>m.png".
func Filename(ws models.WorkoutSummary, s swim.Summary) string {
	return fmt.Sprintf("%s %.0fm.png", ws.Date(), s.Distance)
}

// Title is "<date>: <distance>m, <HH:MM:SS>, Avg <hr>bpm". The heart-rate
// part is left out when the workout has no heart-rate samples.
func Title(ws models.WorkoutSummary, s swim.Summary) string {
	title := fmt.Sprintf("%s: %.0fm, %s", ws.Date(), s.Distance, swim.FormatWorkout(ws.Elapsed()))
	if s.HeartRate != nil {
		title += fmt.Sprintf(", Avg %.0fbpm", *s.HeartRate)
	}
	return title
}

// Render draws the chart for one workout into memory. Drawing is safe to run
// concurrently; Save writes the result.
func (r *Renderer) Render(win ingest.Window, laps []swim.Lap, s swim.Summary) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.WritePNG(&buf, win, laps, s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes a rendered chart as name inside the output directory and returns
// its path. The file is written under a temporary name and renamed into
// place, so a failed write leaves no partial image and an existing chart of
// the same name is replaced whole.
func (r *Renderer) Save(name string, data []byte) (string, error) {
	path := filepath.Join(r.dir, name)
	f, err := os.CreateTemp(r.dir, ".swimlaps-*.png")
	if err != nil {
		return "", fmt.Errorf("creating chart: %w", err)
	}
	tmp := f.Name()
	if err := f.Chmod(0o644); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("writing chart: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("writing chart: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("closing chart: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("saving chart: %w", err)
	}
	return path, nil
}

// WritePNG draws the three panels onto one image and encodes it to w.
func (r *Renderer) WritePNG(w io.Writer, win ingest.Window, laps []swim.Lap, s swim.Summary) error {
	hr, err := heartRatePanel(win, laps)
	if err != nil {
		return fmt.Errorf("heart rate panel: %w", err)
	}
	strokes, err := strokePanel(win.Workout, laps)
	if err != nil {
		return fmt.Errorf("stroke panel: %w", err)
	}
	swolf, err := swolfPanel(win.Workout, laps)
	if err != nil {
		return fmt.Errorf("swolf panel: %w", err)
	}
	hr.Title.Text = Title(win.Workout, s)

	grid := [][]*plot.Plot{{hr}, {strokes}, {swolf}}
	end := minutes(win.Workout.End, win.Workout.Start)
	for _, row := range grid {
		row[0].X.Min = 0
		row[0].X.Max = end
	}
	swolf.X.Label.Text = "minutes"

	// At 72 dpi one point is one pixel.
	img := vgimg.NewWith(
		vgimg.UseWH(vg.Points(float64(r.opts.Width)), vg.Points(float64(r.opts.Height))),
		vgimg.UseDPI(72),
	)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      3,
		Cols:      1,
		PadY:      vg.Millimeter,
		PadTop:    vg.Points(4),
		PadBottom: vg.Points(4),
		PadLeft:   vg.Points(4),
		PadRight:  vg.Points(12),
	}
	canvases := plot.Align(grid, tiles, dc)
	for i, row := range grid {
		row[0].Draw(canvases[i][0])
	}

	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(w); err != nil {
		return fmt.Errorf("encoding chart: %w", err)
	}
	return nil
}

var styleColors = map[string]color.RGBA{
	"Fr":    {R: 66, G: 133, B: 244, A: 60},
	"Bc":    {R: 52, G: 168, B: 83, A: 60},
	"Br":    {R: 251, G: 188, B: 5, A: 60},
	"Fly":   {R: 234, G: 67, B: 53, A: 60},
	"Kick":  {R: 154, G: 160, B: 166, A: 60},
	"Mixed": {R: 171, G: 71, B: 188, A: 60},
	"??":    {R: 0, G: 0, B: 0, A: 30},
}

// heartRatePanel scatters heart-rate samples over shaded laps, coloured by
// stroke, with a bar above the data for each segment.
func heartRatePanel(win ingest.Window, laps []swim.Lap) (*plot.Plot, error) {
	p := plot.New()
	p.Y.Label.Text = "bpm"
	p.Legend.Top = true
	p.Legend.Left = true

	start := win.Workout.Start
	samples := win.HeartRate.All()
	lo, hi := 60.0, 180.0
	if len(samples) > 0 {
		lo, hi = samples[0].Value, samples[0].Value
		for _, s := range samples[1:] {
			lo = min(lo, s.Value)
			hi = max(hi, s.Value)
		}
	}
	lo -= 5
	hi += 5

	seen := map[string]bool{}
	for _, l := range laps {
		x0, x1 := minutes(l.Start, start), minutes(l.End, start)
		poly, err := plotter.NewPolygon(plotter.XYs{{X: x0, Y: lo}, {X: x1, Y: lo}, {X: x1, Y: hi}, {X: x0, Y: hi}})
		if err != nil {
			return nil, err
		}
		poly.Color = styleColors[l.Style]
		poly.LineStyle.Width = 0
		p.Add(poly)
		if !seen[l.Style] {
			seen[l.Style] = true
			p.Legend.Add(legendName(l), poly)
		}
	}

	bar := hi + 3
	for i, seg := range win.Segments {
		line, err := plotter.NewLine(plotter.XYs{
			{X: minutes(seg.Start, start), Y: bar},
			{X: minutes(seg.End, start), Y: bar},
		})
		if err != nil {
			return nil, err
		}
		line.Width = vg.Points(4)
		line.Color = plotutil.Color(i)
		p.Add(line)
	}

	pts := make(plotter.XYs, len(samples))
	for i, s := range samples {
		pts[i] = plotter.XY{X: minutes(s.Start, start), Y: s.Value}
	}
	sc, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, err
	}
	sc.GlyphStyle.Color = color.RGBA{R: 200, A: 255}
	sc.GlyphStyle.Radius = vg.Points(1.5)
	sc.GlyphStyle.Shape = draw.CircleGlyph{}
	p.Add(sc)

	p.Y.Min = lo
	p.Y.Max = bar + 3
	p.Add(plotter.NewGrid())
	return p, nil
}

// strokePanel plots the stroke count of each lap at its midpoint.
func strokePanel(w models.WorkoutSummary, laps []swim.Lap) (*plot.Plot, error) {
	p := plot.New()
	p.Y.Label.Text = "strokes"

	pts := make(plotter.XYs, len(laps))
	for i, l := range laps {
		pts[i] = plotter.XY{X: midpoint(l, w.Start), Y: l.StrokeCount}
	}
	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return nil, err
	}
	line.Color = plotutil.Color(0)
	points.Color = plotutil.Color(0)
	points.Shape = plotutil.Shape(0)
	p.Add(line, points, plotter.NewGrid())
	return p, nil
}

// swolfPanel plots SWOLF and lap seconds per lap.
func swolfPanel(w models.WorkoutSummary, laps []swim.Lap) (*plot.Plot, error) {
	p := plot.New()
	p.Legend.Top = true
	p.Legend.Left = true

	swolf := make(plotter.XYs, len(laps))
	secs := make(plotter.XYs, len(laps))
	for i, l := range laps {
		x := midpoint(l, w.Start)
		swolf[i] = plotter.XY{X: x, Y: l.Swolf()}
		secs[i] = plotter.XY{X: x, Y: l.Duration.Seconds()}
	}
	for i, series := range []struct {
		name string
		xys  plotter.XYs
	}{{"swolf", swolf}, {"lap seconds", secs}} {
		line, points, err := plotter.NewLinePoints(series.xys)
		if err != nil {
			return nil, err
		}
		line.Color = plotutil.Color(i + 1)
		points.Color = plotutil.Color(i + 1)
		points.Shape = plotutil.Shape(i + 1)
		p.Add(line, points)
		p.Legend.Add(series.name, line, points)
	}
	p.Add(plotter.NewGrid())
	return p, nil
}

// legendName is the long stroke name of a lap, falling back to its label.
func legendName(l swim.Lap) string {
	if name := l.StrokeStyle.Name(); name != "" {
		return name
	}
	return l.Style
}

func minutes(t, start time.Time) float64 { return t.Sub(start).Minutes() }

func midpoint(l swim.Lap, start time.Time) float64 {
	return minutes(l.Start.Add(l.Duration/2), start)
}
