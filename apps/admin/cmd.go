package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	echoapi "github.com/trezcool/lichsu/apps/api/echo"
	"github.com/trezcool/lichsu/core"
	"github.com/trezcool/lichsu/core/timeline"
	"github.com/trezcool/lichsu/storage/database"
	"github.com/trezcool/lichsu/storage/seed"
)

var (
	gooseRunFunc   = database.Run                                                // mockable
	isTerminalFunc = func() bool { return term.IsTerminal(int(os.Stdout.Fd())) } // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf    *core.Config
	db      *sqlx.DB
	svc     *timeline.Service
	mailSvc core.EmailService
	out     io.Writer
}

func (cli *commandLine) run(args []string) error {
	root := cli.rootCmd()
	if len(args) < 2 {
		_ = root.Usage()
		return errHelp
	}
	root.SetArgs(args[1:])
	return root.Execute()
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         cli.conf.AppName + " administration",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.SetOut(cli.out)
	root.SetErr(cli.out)

	migrateCmd := &cobra.Command{
		Use:   "migrate COMMAND [ARGS...]",
		Short: "Run a migration command (up, down, status, version, redo, reset, up-to, down-to...)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Usage()
				return errHelp
			}
			return cli.migrate(args)
		},
	}
	migrateCmd.Flags().SetInterspersed(false)

	seedCmd := &cobra.Command{
		Use:   "seed [DIR]",
		Short: "Import YAML seed files (the embedded defaults when DIR is omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var dir string
			if len(args) > 0 {
				dir = args[0]
			}
			return cli.seed(dir)
		},
	}

	var email string
	tokenCmd := &cobra.Command{
		Use:   "token --email EMAIL",
		Short: "Issue an API token for an editor of the admin allow-list",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				_ = cmd.Usage()
				return errHelp
			}
			return cli.token(email)
		},
	}
	tokenCmd.Flags().StringVar(&email, "email", "", "the editor's email")

	hideCmd := &cobra.Command{
		Use:   "hide ID...",
		Short: "Soft-delete stages or events",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Usage()
				return errHelp
			}
			return cli.svc.Hide(context.Background(), timeline.HideRequest{IDs: args})
		},
	}

	unhideCmd := &cobra.Command{
		Use:   "unhide ID...",
		Short: "Restore soft-deleted stages or events",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Usage()
				return errHelp
			}
			return cli.svc.Unhide(context.Background(), args...)
		},
	}

	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Timeline content reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Usage()
			return errHelp
		},
	}

	var notify bool
	orphansCmd := &cobra.Command{
		Use:   "orphans",
		Short: "List supplementary events whose stage does not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.reportOrphans(notify)
		},
	}
	orphansCmd.Flags().BoolVar(&notify, "notify", false, "email the report to the admin allow-list")

	var threshold float64
	duplicatesCmd := &cobra.Command{
		Use:   "duplicates",
		Short: "List events of the same stage with look-alike titles",
		RunE: func(cmd *cobra.Command, args []string) error {
			if threshold <= 0 || threshold > 1 {
				return core.NewValidationError(nil, core.FieldError{Field: "threshold", Error: "must be a number in (0, 1]"})
			}
			return cli.reportDuplicates(threshold)
		},
	}
	duplicatesCmd.Flags().Float64Var(&threshold, "threshold", timeline.DefaultDuplicateThreshold, "minimum title similarity")

	reportCmd.AddCommand(orphansCmd, duplicatesCmd)
	root.AddCommand(migrateCmd, seedCmd, tokenCmd, hideCmd, unhideCmd, reportCmd)
	return root
}

func (cli *commandLine) migrate(args []string) error {
	return gooseRunFunc(cli.db, args[0], args[1:]...)
}

func (cli *commandLine) seed(dir string) error {
	var (
		snap timeline.Snapshot
		err  error
	)
	if dir == "" {
		snap, err = seed.Default()
	} else {
		snap, err = seed.Load(dir)
	}
	if err != nil {
		return err
	}
	if err = cli.svc.Import(context.Background(), snap); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cli.out, "imported %d stages, %d extra events, %d hidden ids\n",
		len(snap.Stages), len(snap.Extras), len(snap.Hidden))
	return err
}

func (cli *commandLine) token(email string) error {
	if !cli.conf.IsAdmin(email) {
		return core.NewValidationError(nil, core.FieldError{Field: "email", Error: "not on the admin allow-list"})
	}
	token, err := echoapi.GenerateToken(cli.conf, echoapi.NewClaims(cli.conf, email))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cli.out, token)
	return err
}

func (cli *commandLine) reportOrphans(notify bool) error {
	orphans := cli.svc.Orphans()
	if notify && len(orphans) > 0 {
		cli.mailSvc.SendMessages(echoapi.NewOrphansMessage(cli.conf, orphans))
	}

	if !isTerminalFunc() {
		return json.NewEncoder(cli.out).Encode(orphans)
	}
	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "STAGE\tCATEGORY\tID\tYEAR\tTITLE")
	for _, o := range orphans {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", o.StageID, o.Category, o.ID, o.Year, o.Title)
	}
	return w.Flush()
}

func (cli *commandLine) reportDuplicates(threshold float64) error {
	pairs := cli.svc.Duplicates(threshold)
	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].Ratio > pairs[j].Ratio })

	if !isTerminalFunc() {
		return json.NewEncoder(cli.out).Encode(pairs)
	}
	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "STAGE\tCATEGORY\tRATIO\tFIRST\tSECOND")
	for _, p := range pairs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			p.StageID, p.Category, strconv.FormatFloat(p.Ratio, 'f', 2, 64), p.First.Title, p.Second.Title)
	}
	return w.Flush()
}
