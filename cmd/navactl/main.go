// Command navactl is the terminal client of the Nava fleet API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/navatransportes/nava-fleet/internal/domain/models"
	"github.com/navatransportes/nava-fleet/internal/domain/types"
	"github.com/navatransportes/nava-fleet/pkg/logger"
	"github.com/navatransportes/nava-fleet/pkg/navaclient"
	"github.com/navatransportes/nava-fleet/pkg/session"
)

const usage = `Usage: navactl [global flags] <command> [flags]

Commands:
  login -email <email>        sign in, the password is read from stdin
  logout                      revoke and forget the stored session
  me                          show the signed in user
  passwd                      change the password
  trip new                    fill in a trip interactively and submit it
  trip submit -file <json>    submit a trip from a JSON file
  trips [-page n -limit n]    list your trips
  trip delete -id <uuid>      delete one of your trips
  payments                    list payments made to you
  dashboard                   admin: totals and newest users
  analytics                   admin: per driver statistics
  export -format pdf|xlsx     admin: download the trip report

Global flags:
`

func main() {
	global := flag.NewFlagSet("navactl", flag.ExitOnError)
	apiURL := global.String("api", envOr("NAVA_API_URL", "http://localhost:3000/nava"), "API base URL")
	sessionPath := global.String("session", "", "session file, defaults to the user config dir")
	debug := global.Bool("debug", false, "log HTTP session activity to stderr")
	global.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		global.PrintDefaults()
	}
	_ = global.Parse(os.Args[1:])

	if global.NArg() == 0 {
		global.Usage()
		os.Exit(2)
	}

	level := logger.LevelError
	if *debug {
		level = logger.LevelDebug
	}
	log := logger.New(os.Stderr, "navactl", level)

	path := *sessionPath
	if path == "" {
		p, err := session.DefaultPath()
		if err != nil {
			fail(err)
		}
		path = p
	}

	client, err := navaclient.New(*apiURL, session.NewFileStore(path), navaclient.WithLogger(log))
	if err != nil {
		fail(err)
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli := &cli{client: client, in: os.Stdin, out: os.Stdout}
	if err := cli.run(ctx, global.Args()); err != nil {
		client.Close()
		fail(err)
	}
}

type cli struct {
	client *navaclient.Client
	in     io.Reader
	out    io.Writer
}

func (c *cli) run(ctx context.Context, args []string) error {
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "login":
		return c.login(ctx, rest)
	case "logout":
		return c.client.Logout(ctx)
	case "me":
		u, err := c.client.Me(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "%s <%s> %s\n", u.Name, u.Email, u.Role)
		return nil
	case "passwd":
		return c.passwd(ctx)
	case "trip":
		if len(rest) == 0 {
			return errors.New("trip: expected new, submit or delete")
		}
		switch rest[0] {
		case "new":
			return c.newTrip(ctx)
		case "submit":
			return c.submitTrip(ctx, rest[1:])
		case "delete":
			return c.deleteTrip(ctx, rest[1:])
		}
		return fmt.Errorf("trip: unknown subcommand %q", rest[0])
	case "trips":
		return c.trips(ctx, rest)
	case "payments":
		list, err := c.client.MyPayments(ctx)
		if err != nil {
			return err
		}
		printPayments(c.out, list)
		return nil
	case "dashboard":
		return c.dashboard(ctx)
	case "analytics":
		return c.analytics(ctx)
	case "export":
		return c.export(ctx, rest)
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func (c *cli) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	if err := fs.Parse(args); err != nil {
		return err
	}

	p := newPrompter(c.in, c.out)
	if *email == "" {
		*email = p.ask("Email")
	}
	password := p.ask("Password")

	u, err := c.client.Login(ctx, strings.TrimSpace(*email), password)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Signed in as %s (%s)\n", u.Name, u.Role)
	return nil
}

func (c *cli) passwd(ctx context.Context) error {
	p := newPrompter(c.in, c.out)
	current := p.ask("Current password")
	next := p.ask("New password")
	if next != p.ask("Repeat new password") {
		return errors.New("passwords do not match")
	}
	if err := c.client.ChangePassword(ctx, current, next); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "Password changed")
	return nil
}

func (c *cli) newTrip(ctx context.Context) error {
	p := newPrompter(c.in, c.out)
	form := fillForm(p)

	printSnapshot(c.out, form.Snapshot())
	for _, w := range form.Warnings() {
		fmt.Fprintln(c.out, "warning:", w)
	}
	if !p.confirm("Submit trip") {
		fmt.Fprintln(c.out, "Discarded")
		return nil
	}

	trip, err := c.client.CreateTrip(ctx, navaclient.NewTripInput(form.Trip()))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Trip %s saved\n", trip.ID)
	return nil
}

func (c *cli) submitTrip(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("trip submit", flag.ContinueOnError)
	file := fs.String("file", "", "trip JSON file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return errors.New("trip submit: -file is required")
	}

	fh, err := os.Open(*file)
	if err != nil {
		return err
	}
	defer fh.Close()

	in, err := readTripFile(fh)
	if err != nil {
		return err
	}

	trip, err := c.client.CreateTrip(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Trip %s saved, freight %.2f, commission %.2f\n", trip.ID, trip.TotalFreight, trip.CommissionAmount)
	return nil
}

func (c *cli) deleteTrip(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("trip delete", flag.ContinueOnError)
	rawID := fs.String("id", "", "trip id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := uuid.Parse(*rawID)
	if err != nil {
		return fmt.Errorf("invalid trip id %q", *rawID)
	}
	return c.client.DeleteMyTrip(ctx, id)
}

func (c *cli) trips(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("trips", flag.ContinueOnError)
	page := fs.Int("page", 1, "page number")
	limit := fs.Int("limit", 20, "trips per page")
	if err := fs.Parse(args); err != nil {
		return err
	}

	list, err := c.client.ListMyTrips(ctx, *page, *limit)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tPLATE\tLEGS\tDISTANCE\tFREIGHT\tCOMMISSION")
	for _, t := range list.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%.2f\t%.2f\t%.2f\n",
			t.ID, t.CreatedAt.Format(models.DateLayout), t.Plate, len(t.Legs), t.Distance, t.TotalFreight, t.CommissionAmount)
	}
	fmt.Fprintf(tw, "\npage %d of %d, %d trips\n", list.Metadata.CurrentPage, list.Metadata.LastPage, list.Total)
	return tw.Flush()
}

func (c *cli) dashboard(ctx context.Context) error {
	d, err := c.client.Dashboard(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Users\t%d\nDrivers\t%d\nAdmins\t%d\nTrips\t%d\n\nNewest users:\n", d.TotalUsers, d.Drivers, d.Admins, d.Trips)
	for _, u := range d.LatestUsers {
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", u.Name, u.Email, u.Role)
	}
	return tw.Flush()
}

func (c *cli) analytics(ctx context.Context) error {
	items, err := c.client.DriverAnalytics(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DRIVER\tTRIPS\tFREIGHT\tCOMMISSION\tPAID\tKM/L")
	for _, s := range items {
		fmt.Fprintf(tw, "%s\t%d\t%.2f\t%.2f\t%.2f\t%.2f\n",
			s.DriverName, s.Trips, s.TotalFreight, s.Commission, s.PaymentsTotal, s.AverageEfficiency)
	}
	return tw.Flush()
}

func (c *cli) export(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	format := fs.String("format", string(types.ExportPDF), "pdf or xlsx")
	plate := fs.String("plate", "", "filter by plate")
	from := fs.String("from", "", "first day, YYYY-MM-DD")
	to := fs.String("to", "", "last day, YYYY-MM-DD")
	out := fs.String("out", "", "output file, defaults to the server file name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	q := navaclient.TripQuery{Plate: *plate}
	var err error
	if q.From, err = parseDay(*from); err != nil {
		return err
	}
	if q.To, err = parseDay(*to); err != nil {
		return err
	}

	exp, err := c.client.ExportTrips(ctx, types.ExportFormat(*format), q)
	if err != nil {
		return err
	}

	path := *out
	if path == "" {
		path = filepath.Base(exp.Filename)
	}
	if err := os.WriteFile(path, exp.Data, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Saved %s (%d bytes)\n", path, len(exp.Data))
	return nil
}

func printPayments(w io.Writer, list *models.PaymentList) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PAID AT\tAMOUNT\tPROOF\tNOTE")
	for _, p := range list.Items {
		fmt.Fprintf(tw, "%s\t%.2f\t%t\t%s\n", p.PaidAt.Format(models.DateLayout), p.Amount, p.ProofSent, p.Note)
	}
	fmt.Fprintf(tw, "\nTotal\t%.2f\n", list.Total)
	_ = tw.Flush()
}

func printSnapshot(w io.Writer, s models.TripTotals) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Distance\t%.2f km\n", s.Distance)
	fmt.Fprintf(tw, "Fuel\t%.2f l\n", s.TotalFuel)
	fmt.Fprintf(tw, "Efficiency\t%.2f km/l\n", s.OverallEfficiency)
	fmt.Fprintf(tw, "Freight\t%.2f\n", s.TotalFreight)
	fmt.Fprintf(tw, "Advance\t%.2f\n", s.TotalAdvance)
	fmt.Fprintf(tw, "Balance\t%.2f\n", s.TotalBalance)
	fmt.Fprintf(tw, "Extras\t%.2f\n", s.ExtrasTotal)
	fmt.Fprintf(tw, "Commission\t%.2f\n", s.CommissionAmount)
	_ = tw.Flush()
}

func parseDay(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(models.DateLayout, raw)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
	}
	return &t, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func fail(err error) {
	var apiErr *navaclient.APIError
	switch {
	case errors.Is(err, session.ErrRefreshFailed), errors.Is(err, session.ErrNoRefreshToken):
		fmt.Fprintln(os.Stderr, "error: session expired, run navactl login")
	case errors.As(err, &apiErr):
		fmt.Fprintln(os.Stderr, "error:", apiErr.Message)
	default:
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	os.Exit(1)
}
