// Command quote prices health insurance quotes from the command line against
// an in-memory copy of a tariff grid.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/warp/premium-engine/api"
	"github.com/warp/premium-engine/factory"
	"github.com/warp/premium-engine/logging"
	"github.com/warp/premium-engine/pricing"
	"github.com/warp/premium-engine/pricing/store"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "quote",
		Short:         "Health insurance premium calculator",
		Long:          "Computes monthly premiums for the Senior, Senior Plus and TNS Formules product lines.",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("grid", "", "tariff grid file (default: embedded demonstration grid)")
	root.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(computeCmd(), zoneCmd(), productsCmd(), versionCmd())
	return root
}

// loadStore builds an in-memory repository from the --grid flag.
func loadStore(cmd *cobra.Command) (*store.Memory, error) {
	gridFile, _ := cmd.Flags().GetString("grid")
	level, _ := cmd.Flags().GetString("log-level")

	logger, err := logging.New("dev", level)
	if err != nil {
		return nil, err
	}
	defer logger.Sync()

	var bundle *factory.Bundle
	if gridFile != "" {
		bundle, err = factory.LoadFile(gridFile)
	} else {
		bundle, err = factory.Default()
	}
	if err != nil {
		return nil, err
	}

	m := store.NewMemory()
	if err := factory.Seed(cmd.Context(), m, bundle); err != nil {
		return nil, err
	}
	logger.Debug("tariff grid loaded", zap.String("file", gridFile), zap.Int("rows", m.Len()))
	return m, nil
}

// =============================================================================
// COMMANDS
// =============================================================================

func computeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compute",
		Short: "Compute a quote from a YAML or JSON request file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			requestFile, _ := cmd.Flags().GetString("request")
			asJSON, _ := cmd.Flags().GetBool("json")

			data, err := os.ReadFile(requestFile)
			if err != nil {
				return fmt.Errorf("failed to read request: %w", err)
			}
			var dto api.QuoteRequestDTO
			if err := yaml.Unmarshal(data, &dto); err != nil {
				return fmt.Errorf("failed to parse request: %w", err)
			}

			repo, err := loadStore(cmd)
			if err != nil {
				return err
			}

			res, err := pricing.NewCalculator(repo).ComputeQuote(cmd.Context(), dto.ToQuoteRequest())
			if err != nil {
				var invalid *pricing.InvalidInputError
				if errors.As(err, &invalid) {
					for _, fe := range invalid.Errors {
						fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %s\n", fe.Field, fe.Message)
					}
				}
				return err
			}

			if asJSON {
				out, err := json.MarshalIndent(api.NewQuoteResultDTO(res), "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return nil
			}
			printQuote(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().StringP("request", "r", "", "request file (required)")
	cmd.Flags().Bool("json", false, "print the result as JSON")
	cmd.MarkFlagRequired("request")
	return cmd
}

func zoneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "zone <postal-code>",
		Short: "Show the pricing zone of a postal code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lineFlag, _ := cmd.Flags().GetString("line")
			line, err := pricing.ParseProductLine(lineFlag)
			if err != nil {
				return err
			}
			postal := args[0]
			if !pricing.ValidPostalCode(postal) {
				return fmt.Errorf("postal code %q must be exactly 5 digits", postal)
			}

			repo, err := loadStore(cmd)
			if err != nil {
				return err
			}
			zone, ok, err := repo.ResolveZone(cmd.Context(), postal, line)
			if err != nil {
				return err
			}
			if !ok {
				return &pricing.ZoneNotFoundError{PostalCode: postal, Department: pricing.Department(postal), ProductLine: line}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", postal, line, zone)
			return nil
		},
	}
	cmd.Flags().StringP("line", "l", string(pricing.LineSenior), "product line (senior_plus, senior, tns_formules)")
	return cmd
}

func productsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "products",
		Short: "List the product catalog",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "LINE\tCOMMISSION\tPRODUCT")
			for _, p := range pricing.Catalog() {
				fmt.Fprintf(tw, "%s\t%d%%\t%s\n", p.Line, int(p.Tier), p.Name)
			}
			tw.Flush()
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "quote %s (commit %s)\n", version, commit)
			if bi, ok := debug.ReadBuildInfo(); ok && bi.GoVersion != "" {
				fmt.Fprintln(cmd.OutOrStdout(), bi.GoVersion)
			}
		},
	}
}

// =============================================================================
// OUTPUT
// =============================================================================

func printQuote(w io.Writer, res pricing.QuoteResult) {
	fmt.Fprintf(w, "Product: %s   Zone: %s\n\n", res.ProductName, res.Zone)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "BENEFICIARY\tAGE\tBRACKET\tBASE\tSURCHARGE\tREINFORCEMENT\tTOTAL\t")
	for _, d := range res.Details {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%s\t\n",
			d.Label, d.Age, d.Bracket,
			d.BasePrice.StringFixed(2),
			d.SurchargePrice.StringFixed(2),
			d.ReinforcementPrice.StringFixed(2),
			d.Total.StringFixed(2),
		)
	}
	tw.Flush()

	fmt.Fprintf(w, "\nMonthly premium: %s EUR\n", res.MonthlyPremium.StringFixed(2))
}
