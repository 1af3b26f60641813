package printers

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/klokku/workout-planner/pkg/calendar_grid"
	"github.com/klokku/workout-planner/pkg/planner"
)

const cellWidth = 3

// Grid prints the month as a compact calendar and the week as one row per day.
func (pp *PrettyPrint) Grid(view planner.GridView) {
	pp.Title(view.Title)
	if view.Mode == calendar_grid.Month {
		pp.month(view)
	} else {
		pp.week(view)
	}
	pp.summary(view.Summary)
}

func (pp *PrettyPrint) month(view planner.GridView) {
	header := color.New(color.Italic)
	for _, name := range view.Weekdays {
		_, _ = header.Fprintf(pp.Out, "%-*s", cellWidth+1, name[:2])
	}
	_, _ = fmt.Fprintln(pp.Out)

	outside := color.New(color.Faint)
	empty := color.New()
	planned := color.New(color.Bold, color.FgHiWhite)
	today := color.New(color.Bold, color.Underline)

	for i, cell := range view.Cells {
		printer := empty
		switch {
		case !cell.IsInDisplayedPeriod:
			printer = outside
		case cell.Date.Equal(view.Today):
			printer = today
		case cell.Summary.Selected > 0:
			printer = planned
		}
		mark := " "
		if cell.IsInDisplayedPeriod && cell.Summary.Selected > 0 {
			mark = "*"
		}
		_, _ = printer.Fprintf(pp.Out, "%*d", cellWidth-1, cell.Day)
		_, _ = fmt.Fprint(pp.Out, mark+" ")
		if (i+1)%7 == 0 {
			_, _ = fmt.Fprintln(pp.Out)
		}
	}
}

func (pp *PrettyPrint) week(view planner.GridView) {
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = 60
	tbl.Wrap = true
	day := color.New(color.Bold)
	for _, cell := range view.Cells {
		label := fmt.Sprintf("%s %2d", cell.Date.Format("Mon"), cell.Day)
		if cell.Date.Equal(view.Today) {
			label = day.Sprint(label)
		}
		titles := make([]string, 0, len(cell.Items))
		for _, item := range cell.Items {
			entry := marker(item) + " " + item.Title
			if pp.ShowID {
				entry += " (" + item.Key().String() + ")"
			}
			titles = append(titles, entry)
		}
		tbl.AddRow(label, strings.Join(titles, ", "))
	}
	_, _ = fmt.Fprintln(pp.Out, tbl)
}
