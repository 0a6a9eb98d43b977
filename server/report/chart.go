package report

import (
	"bytes"
	"fmt"
	"image/color"
	"sort"

	"github.com/cyclopcam/crosswalk/pkg/aggregate"
	"github.com/cyclopcam/crosswalk/pkg/crossing"
	"github.com/fogleman/gg"
)

const (
	ChartWidth  = 800
	ChartHeight = 500
)

var (
	colorWith    = color.RGBA{46, 139, 87, 255}
	colorWithout = color.RGBA{205, 92, 92, 255}
	colorAxis    = color.RGBA{60, 60, 60, 255}
)

func conditionColor(c crossing.Condition) color.Color {
	if c == crossing.ConditionWithEquipment {
		return colorWith
	}
	return colorWithout
}

// RenderRateChart draws a bar chart of crossings per minute, with one cluster of bars per country.
// Returns a PNG image.
func RenderRateChart(rows []aggregate.Row) ([]byte, error) {
	countries := []string{}
	perCountry := map[string][]aggregate.Row{}
	maxRate := 0.0
	for _, r := range rows {
		if _, ok := perCountry[r.Country]; !ok {
			countries = append(countries, r.Country)
		}
		perCountry[r.Country] = append(perCountry[r.Country], r)
		maxRate = max(maxRate, r.RatePerMinute())
	}
	sort.Strings(countries)
	if maxRate == 0 {
		maxRate = 1
	}

	const left, right, top, bottom = 70.0, 20.0, 50.0, 50.0
	plotW := ChartWidth - left - right
	plotH := ChartHeight - top - bottom

	dc := gg.NewContext(ChartWidth, ChartHeight)
	dc.SetColor(color.White)
	dc.Clear()

	dc.SetColor(colorAxis)
	dc.DrawStringAnchored("Pedestrian crossings per minute", ChartWidth/2, top/2, 0.5, 0.5)

	// Axes, and a few horizontal grid ticks
	dc.SetLineWidth(1)
	dc.DrawLine(left, top, left, top+plotH)
	dc.DrawLine(left, top+plotH, left+plotW, top+plotH)
	dc.Stroke()
	for i := 0; i <= 4; i++ {
		v := maxRate * float64(i) / 4
		y := top + plotH - plotH*float64(i)/4
		dc.DrawLine(left-4, y, left, y)
		dc.Stroke()
		dc.DrawStringAnchored(fmt.Sprintf("%.2f", v), left-8, y, 1, 0.5)
	}

	// Legend
	legend := []crossing.Condition{crossing.ConditionWithEquipment, crossing.ConditionWithoutEquipment}
	for i, c := range legend {
		y := top + 10 + float64(i)*18
		dc.SetColor(conditionColor(c))
		dc.DrawRectangle(left+plotW-180, y-6, 12, 12)
		dc.Fill()
		dc.SetColor(colorAxis)
		dc.DrawStringAnchored(c.String(), left+plotW-162, y, 0, 0.5)
	}

	if len(countries) != 0 {
		slotW := plotW / float64(len(countries))
		barW := min(slotW*0.35, 60)
		for i, country := range countries {
			slotX := left + slotW*float64(i)
			cx := slotX + slotW/2
			for _, r := range perCountry[country] {
				x := cx - barW
				if r.Condition == crossing.ConditionWithoutEquipment {
					x = cx
				}
				h := plotH * r.RatePerMinute() / maxRate
				dc.SetColor(conditionColor(r.Condition))
				dc.DrawRectangle(x, top+plotH-h, barW, h)
				dc.Fill()
				dc.SetColor(colorAxis)
				dc.DrawStringAnchored(fmt.Sprintf("%.2f", r.RatePerMinute()), x+barW/2, top+plotH-h-4, 0.5, 1)
			}
			dc.DrawStringAnchored(country, cx, top+plotH+16, 0.5, 0.5)
		}
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
