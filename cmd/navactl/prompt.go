package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/navatransportes/nava-fleet/internal/service/ledger"
)

type prompter struct {
	sc  *bufio.Scanner
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{sc: bufio.NewScanner(in), out: out}
}

// ask prints label and returns the next input line, empty at end of input.
func (p *prompter) ask(label string) string {
	fmt.Fprintf(p.out, "%s: ", label)
	if !p.sc.Scan() {
		return ""
	}
	return strings.TrimSpace(p.sc.Text())
}

func (p *prompter) confirm(label string) bool {
	b, ok := ledger.ParseBool(p.ask(label + " [y/N]"))
	return ok && b
}

var legPrompts = []struct {
	field ledger.Field
	label string
}{
	{ledger.FieldDate, "Date (YYYY-MM-DD, empty for today)"},
	{ledger.FieldOrigin, "Origin"},
	{ledger.FieldDestination, "Destination"},
	{ledger.FieldFreight, "Freight"},
	{ledger.FieldAdvance, "Advance"},
	{ledger.FieldStartOdometer, "Start odometer"},
	{ledger.FieldEndOdometer, "End odometer"},
	{ledger.FieldFuelStation, "Fuel station"},
	{ledger.FieldLiters, "Liters"},
	{ledger.FieldSigner, "Signed by"},
	{ledger.FieldPaid, "Paid [y/N]"},
}

// fillForm walks the trip header, every leg and the extras.
func fillForm(p *prompter) *ledger.Form {
	form := ledger.NewForm()

	form.SetPlate(p.ask("Plate"))
	form.SetCommissionPercent(p.ask("Commission %"))
	form.SetSignedTotal(p.ask("Signed total"))
	form.SetPaidTotal(p.ask("Paid total"))

	for leg := 0; ; {
		fmt.Fprintf(p.out, "-- leg %d --\n", leg+1)
		for _, lp := range legPrompts {
			raw := p.ask(lp.label)
			if lp.field == ledger.FieldDate && raw == "" {
				continue
			}
			// fields are fixed above, SetField only fails on unknown ones
			_ = form.SetField(leg, lp.field, raw)
		}

		l := form.Legs()[leg]
		fmt.Fprintf(p.out, "balance %.2f, %.2f km/l\n", l.Balance, l.Efficiency)

		if !p.confirm("Add another leg") {
			break
		}
		leg = form.AddLeg()
	}

	for p.confirm("Add an extra expense") {
		form.AddExtra(p.ask("Description"), p.ask("Amount"))
	}

	return form
}
