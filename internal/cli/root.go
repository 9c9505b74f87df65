// Package cli implements the voucherdesk command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/voucherdesk/voucherdesk/internal/app/desk"
	"github.com/voucherdesk/voucherdesk/internal/app/vouchers"
	"github.com/voucherdesk/voucherdesk/internal/daemon"
	"github.com/voucherdesk/voucherdesk/internal/domain"
	"github.com/voucherdesk/voucherdesk/internal/infra/clipboard"
	"github.com/voucherdesk/voucherdesk/internal/infra/logging"
	"github.com/voucherdesk/voucherdesk/internal/infra/sqlite"
)

var (
	flagConfig     string
	flagAPIURL     string
	flagPagination string
	flagVerbose    bool
)

// newClipboard picks the mark-sold target from [ui] clipboard. Tests
// replace it.
var newClipboard = func(cfg daemon.Config) (domain.Clipboard, error) {
	if cfg.UI.Clipboard != daemon.ClipboardMemory && !clipboard.Available() {
		log.Warn(`no clipboard utility found; "sell" will fail until one is installed or [ui] clipboard = "memory" is set`)
	}
	return clipboard.New(cfg.UI.Clipboard)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to config.toml (default $VOUCHERDESK_HOME/config.toml)")
	rootCmd.PersistentFlags().StringVar(&flagAPIURL, "api-url", "", "Backend base URL, e.g. http://127.0.0.1:8000/api")
	rootCmd.PersistentFlags().StringVar(&flagPagination, "pagination", "", `Pagination authority: "client" or "server"`)
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")
}

var rootCmd = &cobra.Command{
	Use:   "voucherdesk",
	Short: "Voucher management desk",
	Long: `voucherdesk is the operator client of a voucher backend. It logs in,
pages through active, disabled and sold vouchers, creates vouchers in bulk,
recharges, disables, enables and sells them, and checks balances.

Run "voucherdesk serve" for the local dashboard.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// ─── Runtime ────────────────────────────────────────────────────────────────

// runtime is everything one invocation holds open.
type runtime struct {
	cfg       daemon.Config
	store     *sqlite.DB
	desk      *desk.Desk
	logCloser io.Closer
	out       io.Writer
}

type runtimeKey struct{}

// runtimeSlot is filled by setup and drained by execute.
type runtimeSlot struct{ rt *runtime }

// current returns the runtime of the running invocation.
func current(cmd *cobra.Command) *runtime {
	if slot, ok := cmd.Context().Value(runtimeKey{}).(*runtimeSlot); ok {
		return slot.rt
	}
	return nil
}

// setup loads config, opens the local store and restores the session and
// list position. Nothing is fetched yet.
func setup(cmd *cobra.Command, args []string) error {
	slot, ok := cmd.Context().Value(runtimeKey{}).(*runtimeSlot)
	if !ok {
		return fmt.Errorf("voucherdesk commands must run through Execute")
	}

	path := flagConfig
	if path == "" {
		path = daemon.ConfigPath()
	}
	cfg, err := daemon.Load(path)
	if err != nil {
		return err
	}
	if flagAPIURL != "" {
		cfg.API.BaseURL = flagAPIURL
	}
	if flagPagination != "" {
		cfg.API.Pagination = flagPagination
	}
	if flagVerbose {
		cfg.Log.Level = "debug"
	}

	closer, err := logging.Setup(cfg.Log)
	if err != nil {
		return err
	}

	store, err := sqlite.Open(cfg.DataDir())
	if err != nil {
		closer.Close()
		return err
	}

	clip, err := newClipboard(cfg)
	if err != nil {
		store.Close()
		closer.Close()
		return err
	}

	d, err := desk.New(cfg, desk.Deps{Store: store, Clipboard: clip})
	if err != nil {
		store.Close()
		closer.Close()
		return err
	}

	vs, err := store.LoadViewState()
	if err != nil {
		log.WithError(err).Warn("ignoring unreadable view state")
	} else if status, perr := domain.ParseStatus(vs.Tab); perr == nil {
		d.Restore(vouchers.Position{Filter: status, Page: vs.Page})
	}

	if err := d.Resume(); err != nil {
		store.Close()
		closer.Close()
		return err
	}

	slot.rt = &runtime{cfg: cfg, store: store, desk: d, logCloser: closer, out: cmd.OutOrStdout()}
	return nil
}

// finish prints pending notifications, persists the list position and
// releases the store.
func (r *runtime) finish() {
	printNotifications(r.out, r.desk.Notifier().Active())

	if r.desk.Authenticated() {
		pos := r.desk.Position()
		if err := r.store.SaveViewState(sqlite.ViewState{Tab: string(pos.Filter), Page: pos.Page}); err != nil {
			log.WithError(err).Warn("failed to save view state")
		}
	} else if err := r.store.ResetViewState(); err != nil {
		log.WithError(err).Warn("failed to reset view state")
	}

	r.store.Close()
	r.logCloser.Close()
}

// Execute runs the root command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return execute(ctx, os.Args[1:])
}

func execute(ctx context.Context, args []string) error {
	slot := &runtimeSlot{}
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.WithValue(ctx, runtimeKey{}, slot))
	if slot.rt != nil {
		slot.rt.finish()
	}
	if err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", domain.Message(err))
	}
	return err
}

// loadList fetches the current tab and page when logged in.
func (r *runtime) loadList(ctx context.Context) error {
	if !r.desk.Authenticated() {
		return domain.ErrNotAuthenticated
	}
	return r.desk.Reload(ctx)
}
