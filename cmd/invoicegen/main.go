package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/invoicegen/pkg/api"
	"github.com/invoicegen/pkg/config"
	"github.com/invoicegen/pkg/currency"
	"github.com/invoicegen/pkg/invoice"
	"github.com/invoicegen/pkg/logger"
	"github.com/invoicegen/pkg/pdf"
	"github.com/invoicegen/pkg/store"
)

func main() {
	app := &cli.App{
		Name:  "invoicegen",
		Usage: "generate sequentially numbered, currency-correct PDF invoices",
		Commands: []*cli.Command{
			setupCommand(),
			generateCommand(),
			listCommand(),
			showCommand(),
			serveCommand(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// env bundles the wired collaborators every command needs.
type env struct {
	cfg *config.Config
	log *slog.Logger
	st  *store.Store
}

func bootstrap(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.New(cfg.LogLevel)
	st, err := store.Open(ctx, cfg.DatabaseURL, log)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, log: log, st: st}, nil
}

func (e *env) generator() *invoice.Generator {
	return invoice.NewGenerator(e.st, pdf.NewComposer(e.log), e.log)
}

func setupCommand() *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "save the company profile used on every invoice",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Usage: "company name", Required: true},
			&cli.StringFlag{Name: "address", Usage: "company address (use \\n for multiple lines)", Required: true},
			&cli.StringFlag{Name: "phone", Usage: "company phone", Required: true},
			&cli.StringFlag{Name: "logo", Usage: "path to a logo image (png/jpeg/gif)"},
			&cli.StringFlag{Name: "currency", Usage: "default currency code", Value: string(currency.USD)},
			&cli.StringFlag{Name: "output", Usage: "folder for generated PDFs"},
		},
		Action: func(c *cli.Context) error {
			e, err := bootstrap(c.Context)
			if err != nil {
				return err
			}
			defer e.st.Close()

			output := c.String("output")
			if output == "" {
				output = e.cfg.OutputDir
			}
			req := invoice.ProfileRequest{
				Name:      c.String("name"),
				Address:   c.String("address"),
				Phone:     c.String("phone"),
				LogoPath:  c.String("logo"),
				Currency:  c.String("currency"),
				OutputDir: output,
			}
			profile, err := req.Profile()
			if err != nil {
				return err
			}
			existing, err := e.st.HasProfile(c.Context)
			if err != nil {
				return err
			}
			if err := e.st.SaveProfile(c.Context, profile); err != nil {
				return err
			}
			verb := "saved"
			if existing {
				verb = "updated"
			}
			fmt.Printf("company profile %s (%s, default currency %s)\n",
				verb, profile.Name, currency.Name(profile.Currency))
			return nil
		},
	}
}

func generateCommand() *cli.Command {
	return &cli.Command{
		Name:  "generate",
		Usage: "generate one invoice from an order file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "JSON order file", Required: true},
		},
		Action: func(c *cli.Context) error {
			e, err := bootstrap(c.Context)
			if err != nil {
				return err
			}
			defer e.st.Close()

			ready, err := e.st.HasProfile(c.Context)
			if err != nil {
				return err
			}
			if !ready {
				return fmt.Errorf("no company profile yet, run 'invoicegen setup' first")
			}

			data, err := os.ReadFile(c.String("file"))
			if err != nil {
				return fmt.Errorf("reading order file: %w", err)
			}
			var req invoice.Request
			if err := json.Unmarshal(data, &req); err != nil {
				return fmt.Errorf("parsing order file: %w", err)
			}

			res, err := e.generator().Generate(c.Context, req)
			if err != nil {
				return err
			}
			fmt.Printf("issued   %s\n", res.Record.OrderNumber)
			fmt.Printf("total    %s\n", currency.Format(res.Record.Total, res.Record.Currency))
			fmt.Printf("document %s\n", res.DocumentPath)
			return nil
		},
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "list issued invoices, newest first",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Value: 20, Usage: "maximum rows (0 for all)"},
			&cli.StringFlag{Name: "from", Usage: "start of an invoice date range (YYYY-MM-DD)"},
			&cli.StringFlag{Name: "to", Usage: "end of an invoice date range (YYYY-MM-DD)"},
		},
		Action: func(c *cli.Context) error {
			e, err := bootstrap(c.Context)
			if err != nil {
				return err
			}
			defer e.st.Close()

			var records []invoice.Record
			if c.String("from") != "" || c.String("to") != "" {
				from, ferr := time.Parse("2006-01-02", c.String("from"))
				to, terr := time.Parse("2006-01-02", c.String("to"))
				if ferr != nil || terr != nil {
					return fmt.Errorf("--from and --to must both be YYYY-MM-DD dates")
				}
				records, err = e.st.ListRecordsByDateRange(c.Context, from, to)
			} else {
				records, err = e.st.ListRecords(c.Context, c.Int("limit"))
			}
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Println("no invoices issued yet")
				return nil
			}
			for _, rec := range records {
				fmt.Printf("%s  %s  %-25s %s\n",
					rec.OrderNumber,
					rec.InvoiceDate.Format("2006-01-02"),
					rec.BillingName,
					currency.Format(rec.Total, rec.Currency))
			}
			total, err := e.st.CountRecords(c.Context)
			if err != nil {
				return err
			}
			fmt.Printf("showing %d of %d issued\n", len(records), total)
			return nil
		},
	}
}

func showCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "show one issued invoice",
		ArgsUsage: "<order-number>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("usage: invoicegen show <order-number>")
			}
			e, err := bootstrap(c.Context)
			if err != nil {
				return err
			}
			defer e.st.Close()

			rec, err := e.st.GetByOrderNumber(c.Context, c.Args().First())
			if err != nil {
				return err
			}
			fmt.Printf("order number %s\n", rec.OrderNumber)
			fmt.Printf("date         %s\n", rec.InvoiceDate.Format("January 2, 2006"))
			fmt.Printf("billed to    %s, %s\n", rec.BillingName, rec.BillingPhone)
			fmt.Printf("subtotal     %s\n", currency.Format(rec.Subtotal, rec.Currency))
			fmt.Printf("tax          %s\n", currency.Format(rec.TaxAmount, rec.Currency))
			fmt.Printf("discount     %s\n", currency.Format(rec.DiscountAmount, rec.Currency))
			fmt.Printf("total        %s\n", currency.Format(rec.Total, rec.Currency))
			fmt.Printf("document     %s\n", rec.DocumentPath)
			return nil
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "serve the local HTTP surface",
		Action: func(c *cli.Context) error {
			e, err := bootstrap(c.Context)
			if err != nil {
				return err
			}
			defer e.st.Close()

			srv := api.New(e.generator(), e.st, e.log)
			e.log.Info("listening", "addr", e.cfg.Addr)
			return http.ListenAndServe(e.cfg.Addr, srv.Handler())
		},
	}
}
