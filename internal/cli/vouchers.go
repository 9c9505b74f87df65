package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/voucherdesk/voucherdesk/internal/domain"
	"github.com/voucherdesk/voucherdesk/internal/infra/observability"
)

func init() {
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(rechargeCmd)
	rootCmd.AddCommand(disableCmd)
	rootCmd.AddCommand(enableCmd)
	rootCmd.AddCommand(sellCmd)
	rootCmd.AddCommand(detailsCmd)
	rootCmd.AddCommand(balanceCmd)
	rootCmd.AddCommand(payCmd)
	rootCmd.AddCommand(traceCmd)

	createCmd.Flags().StringP("amount", "a", "", "Initial value of each voucher")
	createCmd.Flags().IntP("count", "n", 1, "Number of vouchers to create")
	sellCmd.Flags().String("code", "", "Voucher code (default: the code shown on the current page)")
	traceCmd.Flags().Int("limit", 20, "Number of spans to show")
}

// ─── create ─────────────────────────────────────────────────────────────────

var createCmd = &cobra.Command{
	Use:   "create --amount 100 --count 5",
	Short: "Create vouchers in bulk",
	Long: `Create COUNT vouchers worth AMOUNT each, one request at a time.
A failed voucher does not stop the rest; the summary reports both counts.`,
	RunE: runCreate,
}

func runCreate(cmd *cobra.Command, args []string) error {
	rt := current(cmd)
	amount, _ := cmd.Flags().GetString("amount")
	count, _ := cmd.Flags().GetInt("count")
	if _, err := rt.desk.CreateBulk(cmd.Context(), amount, count); err != nil {
		return err
	}
	printView(cmd.OutOrStdout(), rt.desk.View())
	return nil
}

// ─── recharge ───────────────────────────────────────────────────────────────

var rechargeCmd = &cobra.Command{
	Use:   "recharge CODE AMOUNT",
	Short: "Recharge a voucher by 100, 200 or 500",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := current(cmd)
		amount, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("%w: %q", domain.ErrInvalidAmount, args[1])
		}
		resp, err := rt.desk.Recharge(cmd.Context(), args[0], amount)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "New balance: Rs %s\n", resp.NewBalance.Fixed2())
		return nil
	},
}

// ─── transitions ────────────────────────────────────────────────────────────

var disableCmd = &cobra.Command{
	Use:   "disable ID",
	Short: "Disable an active voucher",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := current(cmd)
		return rt.desk.Disable(cmd.Context(), domain.VoucherID(args[0]))
	},
}

var enableCmd = &cobra.Command{
	Use:   "enable ID",
	Short: "Re-enable a disabled voucher",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := current(cmd)
		return rt.desk.Enable(cmd.Context(), domain.VoucherID(args[0]))
	},
}

var sellCmd = &cobra.Command{
	Use:   "sell ID",
	Short: "Copy a voucher code to the clipboard and mark it sold",
	Args:  cobra.ExactArgs(1),
	RunE:  runSell,
}

func runSell(cmd *cobra.Command, args []string) error {
	rt := current(cmd)
	id := domain.VoucherID(args[0])
	code, _ := cmd.Flags().GetString("code")
	if code == "" {
		if err := rt.loadList(cmd.Context()); err != nil {
			return err
		}
		v, ok := rt.desk.List().Item(id)
		if !ok {
			return fmt.Errorf("%w: %s (pass --code)", domain.ErrVoucherNotVisible, id)
		}
		code = v.Code
	}
	return rt.desk.MarkSold(cmd.Context(), id, code)
}

var detailsCmd = &cobra.Command{
	Use:   "details ID",
	Short: "Show the details of a voucher on the current page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := current(cmd)
		if err := rt.loadList(cmd.Context()); err != nil {
			return err
		}
		d, err := rt.desk.ShowDetails(domain.VoucherID(args[0]))
		if err != nil {
			return err
		}
		printDetails(cmd.OutOrStdout(), d)
		return nil
	},
}

// ─── balance & pay ──────────────────────────────────────────────────────────

var balanceCmd = &cobra.Command{
	Use:   "balance CODE",
	Short: "Look up a voucher balance across all tabs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := current(cmd)
		_, err := rt.desk.CheckBalance(cmd.Context(), args[0])
		if v := rt.desk.View(); v.BalanceResult != "" {
			fmt.Fprintln(cmd.OutOrStdout(), v.BalanceResult)
		}
		return err
	},
}

var payCmd = &cobra.Command{
	Use:   "pay CODE AMOUNT",
	Short: "Spend from a voucher (no login required)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := current(cmd)
		resp, err := rt.desk.Pay(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Remaining balance: Rs %s\n", resp.RemainingBalance.Fixed2())
		return nil
	},
}

// ─── trace ──────────────────────────────────────────────────────────────────

var traceCmd = &cobra.Command{
	Use:   "trace",
	Short: "Show the actions recorded in this invocation",
	Long: `Show recent action spans. Spans live in memory, so this is most
useful against a running dashboard (GET /api/trace); here it lists the
spans of the current process.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := current(cmd)
		limit, _ := cmd.Flags().GetInt("limit")
		tw := newTable(cmd.OutOrStdout())
		fmt.Fprintln(tw, "OPERATION\tSTATUS\tDURATION\tATTRS")
		for _, s := range rt.desk.Tracer().Spans(limit) {
			status := "ok"
			if s.Status == observability.SpanError {
				status = "error"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%v\n", s.Operation, status, s.Duration.Round(time.Millisecond), s.Attrs)
		}
		return tw.Flush()
	},
}
