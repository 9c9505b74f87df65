package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/voucherdesk/voucherdesk/internal/app/desk"
	"github.com/voucherdesk/voucherdesk/internal/app/projection"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func printNotifications(w io.Writer, items []projection.Notification) {
	for _, n := range items {
		fmt.Fprintf(w, "[%s] %s\n", n.Kind, n.Message)
	}
}

// printView renders the voucher table of v with its paginator.
func printView(w io.Writer, v desk.View) {
	if !v.Authenticated || v.List == nil {
		fmt.Fprintln(w, "Not logged in. Run: voucherdesk login")
		return
	}
	list := v.List
	fmt.Fprintf(w, "%s vouchers, page %d\n\n", strings.ToUpper(string(list.Tab)), list.Page)

	if list.Empty != "" {
		fmt.Fprintln(w, list.Empty)
	} else {
		tw := newTable(w)
		fmt.Fprintln(tw, "ID\tCODE\tBALANCE\tLOADED\tSPENT\tCREATED\tCREATOR\tACTIONS")
		for _, r := range list.Rows {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				r.ID, r.Code, r.Balance, r.TotalLoaded, r.Spent, r.Created, r.Creator, actionLabels(r.Actions))
		}
		tw.Flush()
	}

	if p := list.Paginator; p.Visible {
		fmt.Fprintf(w, "\n%s  %s\n", p.Info, pageStrip(p))
	}
}

func actionLabels(a projection.RowActions) string {
	var labels []string
	for _, act := range append(append([]projection.Action{}, a.Buttons...), a.Menu...) {
		labels = append(labels, act.Label())
	}
	return strings.Join(labels, ", ")
}

func pageStrip(p projection.Paginator) string {
	var b strings.Builder
	if p.PrevEnabled {
		b.WriteString("< ")
	}
	for i, pg := range p.Pages {
		if i > 0 {
			b.WriteByte(' ')
		}
		if pg.Current {
			fmt.Fprintf(&b, "[%d]", pg.Number)
		} else {
			fmt.Fprintf(&b, "%d", pg.Number)
		}
	}
	if p.NextEnabled {
		b.WriteString(" >")
	}
	return b.String()
}

func printStats(w io.Writer, s *projection.StatsView) {
	if s == nil {
		fmt.Fprintln(w, "Statistics unavailable")
		return
	}
	tw := newTable(w)
	fmt.Fprintf(tw, "Total vouchers\t%d\n", s.TotalVouchers)
	fmt.Fprintf(tw, "Total balance\t%s\n", s.TotalBalance)
	fmt.Fprintf(tw, "Active\t%d\n", s.ActiveVouchers)
	fmt.Fprintf(tw, "Disabled\t%d\n", s.DisabledVouchers)
	fmt.Fprintf(tw, "Sold\t%d\n", s.SoldVouchers)
	tw.Flush()
}

func printDetails(w io.Writer, d projection.Details) {
	tw := newTable(w)
	fmt.Fprintf(tw, "Code\t%s\n", d.Code)
	fmt.Fprintf(tw, "Status\t%s\n", d.Status)
	fmt.Fprintf(tw, "Balance\t%s\n", d.Balance)
	fmt.Fprintf(tw, "Total loaded\t%s\n", d.TotalLoaded)
	fmt.Fprintf(tw, "Spent\t%s\n", d.Spent)
	fmt.Fprintf(tw, "Created\t%s\n", d.Created)
	fmt.Fprintf(tw, "Created by\t%s\n", d.Creator)
	tw.Flush()
}
