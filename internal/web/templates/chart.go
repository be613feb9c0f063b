package templates

import (
	"fmt"
	"math"

	"github.com/JonMunkholm/dataprep/internal/core"
)

const (
	chartWidth  = 720.0
	chartHeight = 260.0
	chartPad    = 36.0
)

var seriesColors = [2]string{"#3498db", "#e67e22"}

type chartBar struct {
	X, Y, Width, Height string
	Fill                string
	Title               string
}

type chartLegend struct {
	X, TextX string
	Fill     string
	Name     string
}

// chartView is a chart with every coordinate already formatted for SVG.
type chartView struct {
	ViewBox            string
	AxisStart, AxisEnd string
	Zero               string
	Top, Bottom        string
	MaxLabel, MinLabel string
	Bars               []chartBar
	Legend             []chartLegend
}

// layoutChart places one group per row and one bar per series inside the
// padded plot area. Bars grow up or down from the zero line; nil values are
// skipped.
func layoutChart(ch *core.Chart) chartView {
	plotW := chartWidth - 2*chartPad
	plotH := chartHeight - 2*chartPad

	span := ch.Max - ch.Min
	if span == 0 {
		span = 1
	}
	y := func(v float64) float64 {
		return chartPad + plotH*(ch.Max-v)/span
	}
	zero := y(0)

	groupW := plotW / math.Max(float64(ch.Rows), 1)
	barW := groupW * 0.4

	c := chartView{
		ViewBox:   fmt.Sprintf("0 0 %.0f %.0f", chartWidth, chartHeight),
		AxisStart: fmt.Sprintf("%.1f", chartPad),
		AxisEnd:   fmt.Sprintf("%.1f", chartWidth-chartPad),
		Zero:      fmt.Sprintf("%.1f", zero),
		Top:       fmt.Sprintf("%.1f", chartPad),
		Bottom:    fmt.Sprintf("%.1f", chartPad+plotH),
		MaxLabel:  formatTick(ch.Max),
		MinLabel:  formatTick(ch.Min),
	}

	for s, series := range ch.Series {
		for row, v := range series.Values {
			if v == nil {
				continue
			}
			x := chartPad + float64(row)*groupW + groupW*0.1 + float64(s)*barW
			top, bottom := y(*v), zero
			if top > bottom {
				top, bottom = bottom, top
			}
			c.Bars = append(c.Bars, chartBar{
				X:      fmt.Sprintf("%.2f", x),
				Y:      fmt.Sprintf("%.2f", top),
				Width:  fmt.Sprintf("%.2f", barW),
				Height: fmt.Sprintf("%.2f", bottom-top),
				Fill:   seriesColors[s],
				Title:  fmt.Sprintf("%s[%d] = %s", series.Name, row, formatTick(*v)),
			})
		}
	}

	for s, series := range ch.Series {
		lx := chartPad + float64(s)*160
		c.Legend = append(c.Legend, chartLegend{
			X:     fmt.Sprintf("%.1f", lx),
			TextX: fmt.Sprintf("%.1f", lx+14),
			Fill:  seriesColors[s],
			Name:  series.Name,
		})
	}
	return c
}

func formatTick(v float64) string {
	return core.Number(v).String()
}
