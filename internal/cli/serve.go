package cli

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/voucherdesk/voucherdesk/internal/api"
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (default from [dashboard] host:port)")
	serveCmd.Flags().Bool("no-metrics", false, "Disable the /metrics endpoint")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local voucher dashboard",
	Long: `Serve the dashboard JSON API on the local machine. The session and
list position are shared with the CLI through the local database.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	rt := current(cmd)
	ctx := cmd.Context()
	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = rt.cfg.DashboardAddr()
	}
	noMetrics, _ := cmd.Flags().GetBool("no-metrics")

	if err := rt.desk.Start(ctx); err != nil {
		log.WithError(err).Warn("initial load failed")
	}

	srv := api.NewServer(rt.desk)
	if rt.cfg.Dashboard.Metrics && !noMetrics {
		srv.EnableMetrics()
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Dashboard: http://%s/api/view\n", addr)
	return srv.ListenAndServe(ctx, addr)
}
