// Package report turns power flow results into plain-text tables.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/ohowland/cgc_powerflow/internal/pkg/powerflow"
)

// Table is a titled grid of formatted cells. The first column of each row is
// the bus or line ID the row belongs to.
type Table struct {
	Title  string
	Header []string
	Rows   [][]string
}

// BusTable formats one row per bus.
func BusTable(r powerflow.Result) Table {
	t := Table{
		Title:  "res_bus",
		Header: []string{"bus", "vm_pu", "va_degree", "p_mw", "q_mvar"},
		Rows:   make([][]string, 0, len(r.Buses)),
	}
	for _, b := range r.Buses {
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(b.Bus),
			num(b.VmPU),
			num(b.VaDegree()),
			num(b.PMW),
			num(b.QMVar),
		})
	}
	return t
}

// LineTable formats one row per line.
func LineTable(r powerflow.Result) Table {
	t := Table{
		Title: "res_line",
		Header: []string{
			"line", "from_bus", "to_bus",
			"p_from_mw", "q_from_mvar", "p_to_mw", "q_to_mvar",
			"pl_mw", "ql_mvar",
			"i_from_ka", "i_to_ka", "i_ka", "loading_percent",
		},
		Rows: make([][]string, 0, len(r.Lines)),
	}
	for _, l := range r.Lines {
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(l.Line),
			strconv.Itoa(l.FromBus),
			strconv.Itoa(l.ToBus),
			num(l.PFromMW),
			num(l.QFromMVar),
			num(l.PToMW),
			num(l.QToMVar),
			num(l.PlMW),
			num(l.QlMVar),
			num(l.IFromKA),
			num(l.IToKA),
			num(l.IKA),
			num(l.LoadingPercent),
		})
	}
	return t
}

// Write renders t as right-aligned columns under its title.
func Write(w io.Writer, t Table) error {
	if _, err := fmt.Fprintln(w, t.Title); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	if _, err := fmt.Fprintln(tw, strings.Join(t.Header, "\t")+"\t"); err != nil {
		return err
	}
	for _, row := range t.Rows {
		if _, err := fmt.Fprintln(tw, strings.Join(row, "\t")+"\t"); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func num(v float64) string {
	s := strconv.FormatFloat(v, 'f', 6, 64)
	// -0.000000 prints as 0.000000
	if strings.Trim(s, "-0.") == "" {
		return strconv.FormatFloat(0, 'f', 6, 64)
	}
	return s
}
