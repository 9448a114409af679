package dto

import (
	"strconv"
	"time"

	"github.com/andresg0412/waiwahost-plataforma/internal/domain/grid"
	"github.com/andresg0412/waiwahost-plataforma/internal/domain/shared/daterange"
)

// GridBar is the render contract for one bar. Field names follow the
// dashboard's camelCase.
type GridBar struct {
	IntervalID   string `json:"intervalId"`
	Kind         string `json:"kind"`
	Status       string `json:"status,omitempty"`
	Label        string `json:"label"`
	ColStart     int    `json:"colStart"`
	ColSpan      int    `json:"colSpan"`
	Nights       int    `json:"nights"`
	Start        string `json:"start"`
	End          string `json:"end"`
	ClippedStart bool   `json:"clippedStart,omitempty"`
	ClippedEnd   bool   `json:"clippedEnd,omitempty"`
}

type GridRow struct {
	PropertyID   string    `json:"propertyId"`
	PropertyName string    `json:"propertyName"`
	City         string    `json:"city,omitempty"`
	Bars         []GridBar `json:"bars"`
}

type GridMonth struct {
	Label    string `json:"label"`
	Year     int    `json:"year"`
	Month    int    `json:"month"`
	ColStart int    `json:"colStart"`
	ColSpan  int    `json:"colSpan"`
}

type Grid struct {
	Window      Window      `json:"window"`
	Filter      string      `json:"filter"`
	Dates       []string    `json:"dates"`
	Months      []GridMonth `json:"months"`
	TodayColumn int         `json:"todayColumn"`
	Rows        []GridRow   `json:"rows"`
	Cities      []string    `json:"cities,omitempty"`
}

var monthNames = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

func MonthLabel(year int, month time.Month) string {
	if month < time.January || month > time.December {
		return strconv.Itoa(year)
	}
	return monthNames[month-1] + " " + strconv.Itoa(year)
}

func MapWindow(w grid.Window) Window {
	return Window{
		Start:     daterange.Format(w.Start),
		End:       daterange.Format(w.End()),
		Days:      w.Days,
		Signature: w.Signature(),
	}
}

func MapGrid(g grid.Grid) Grid {
	out := Grid{
		Window:      MapWindow(g.Window),
		Filter:      string(g.Filter),
		Dates:       make([]string, 0, len(g.Dates)),
		Months:      make([]GridMonth, 0, len(g.Months)),
		TodayColumn: g.TodayColumn,
		Rows:        make([]GridRow, 0, len(g.Rows)),
	}
	for _, d := range g.Dates {
		out.Dates = append(out.Dates, daterange.Format(d))
	}
	for _, m := range g.Months {
		out.Months = append(out.Months, GridMonth{
			Label:    MonthLabel(m.Year, m.Month),
			Year:     m.Year,
			Month:    int(m.Month),
			ColStart: m.ColStart,
			ColSpan:  m.ColSpan,
		})
	}
	for _, row := range g.Rows {
		r := GridRow{
			PropertyID:   string(row.Property.ID),
			PropertyName: row.Property.Name,
			City:         row.Property.City,
			Bars:         make([]GridBar, 0, len(row.Bars)),
		}
		for _, b := range row.Bars {
			r.Bars = append(r.Bars, GridBar{
				IntervalID:   string(b.IntervalID),
				Kind:         string(b.Kind),
				Status:       string(b.Status),
				Label:        b.Label,
				ColStart:     b.ColStart,
				ColSpan:      b.ColSpan,
				Nights:       b.Nights,
				Start:        daterange.Format(b.Start),
				End:          daterange.Format(b.End),
				ClippedStart: b.ClippedStart,
				ClippedEnd:   b.ClippedEnd,
			})
		}
		out.Rows = append(out.Rows, r)
	}
	return out
}
