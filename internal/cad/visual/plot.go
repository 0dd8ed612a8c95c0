package visual

import (
	"fmt"
	"io"

	"cad-service/internal/cad/domain"
	"cad-service/internal/cad/sketch"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ============================================================
// Sketch Plot
// ============================================================

const plotSize = 6 * vg.Inch

// PlotSketch сохраняет картинку эскиза в path. Формат выбирается
// по расширению: .png, .svg, .pdf и т.д.
func PlotSketch(s *sketch.Sketch, path string) error {
	p, err := sketchPlot(s)
	if err != nil {
		return err
	}
	if err := p.Save(plotSize, plotSize, path); err != nil {
		return fmt.Errorf("save sketch plot: %w", err)
	}
	return nil
}

// WriteSketchPlot пишет картинку эскиза в w в формате format ("png", "svg", ...).
func WriteSketchPlot(s *sketch.Sketch, w io.Writer, format string) error {
	p, err := sketchPlot(s)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(plotSize, plotSize, format)
	if err != nil {
		return domain.Unsupported("plot format %q", format)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write sketch plot: %w", err)
	}
	return nil
}

// sketchPlot рисует эскиз в его локальных координатах (u, v). Контейнеры
// не рисуются отдельно, их линии уже есть среди элементов.
func sketchPlot(s *sketch.Sketch) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = s.ID
	p.X.Label.Text = "u"
	p.Y.Label.Text = "v"
	p.Add(plotter.NewGrid())

	drawn := 0
	for _, e := range s.Elements() {
		if e.IsComposite() {
			continue
		}
		pts, err := outline(s, e)
		if err != nil {
			return nil, err
		}
		xys := make(plotter.XYs, 0, len(pts))
		for _, q := range pts {
			xys = append(xys, plotter.XY{X: q.X, Y: q.Y})
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return nil, fmt.Errorf("element %s: %w", e.ID, err)
		}
		line.Width = vg.Points(1)
		p.Add(line)
		drawn++
	}
	if drawn == 0 {
		return nil, domain.Degenerate("sketch %s has nothing to plot", s.ID)
	}
	return p, nil
}
