package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/term"

	"github.com/hsiuhsiu/vhacd-go/pkg/vhacd"
)

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	stageStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
)

// progressLine redraws a single status line on interactive output and stays
// silent otherwise.
type progressLine struct {
	w     io.Writer
	live  bool
	drawn bool
	width int
}

func newProgressLine(w io.Writer, interactive bool) *progressLine {
	p := &progressLine{w: w, live: interactive, width: 80}
	if f, ok := w.(*os.File); ok && interactive {
		if cols, _, err := term.GetSize(int(f.Fd())); err == nil && cols > 20 {
			p.width = cols
		}
	}
	return p
}

func (p *progressLine) update(overall float64, stage string) {
	if !p.live {
		return
	}
	bar := max(p.width-24-len(stage), 10)
	filled := min(max(int(overall*float64(bar)), 0), bar)
	fmt.Fprintf(p.w, "\r%s [%s%s] %5.1f%%", stageStyle.Render(stage), strings.Repeat("#", filled), strings.Repeat(".", bar-filled), overall*100)
	p.drawn = true
}

func (p *progressLine) done() {
	if p.drawn {
		fmt.Fprintln(p.w)
		p.drawn = false
	}
}

func renderResults(rs *vhacd.ResultSet, styled bool) string {
	rows := make([][]string, 0, rs.Len())
	for i, h := range rs.All() {
		c := h.Center()
		rows = append(rows, []string{
			fmt.Sprint(i),
			fmt.Sprint(h.NPoints()),
			fmt.Sprint(h.NTriangles()),
			fmt.Sprintf("%.4f", h.Volume()),
			fmt.Sprintf("(%.3f, %.3f, %.3f)", c[0], c[1], c[2]),
		})
	}
	t := table.New().
		Headers("hull", "points", "triangles", "volume", "center").
		Rows(rows...)
	if styled {
		t = t.Border(lipgloss.RoundedBorder()).
			StyleFunc(func(row, _ int) lipgloss.Style {
				if row == table.HeaderRow {
					return headerStyle
				}
				return cellStyle
			})
	} else {
		t = t.Border(lipgloss.ASCIIBorder())
	}
	return fmt.Sprintf("%s\n%d hulls, total volume %.4f", t.String(), rs.Len(), rs.TotalVolume())
}
