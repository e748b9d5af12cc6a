package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/dgrijalva/jwt-go"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/lichsu/apps/api/echo"
	"github.com/trezcool/lichsu/core"
	"github.com/trezcool/lichsu/core/timeline"
	emailsvc "github.com/trezcool/lichsu/services/email"
	sqlxrepos "github.com/trezcool/lichsu/storage/database/sqlx"
	testutil "github.com/trezcool/lichsu/tests"
)

type testCLI struct {
	*commandLine
	buf     *bytes.Buffer
	mailSvc *emailsvc.ConsoleServiceMock
}

func setup(t *testing.T) testCLI {
	t.Helper()
	conf := core.NewTestConfig()
	db := testutil.OpenDB(t)
	validate, _ := testutil.NewValidator()
	svc := timeline.NewService(sqlxrepos.NewTimelineRepository(db), timeline.NewProjector(), validate)
	mailSvc := emailsvc.NewConsoleServiceMock(conf, testutil.NewLogger(t))

	buf := new(bytes.Buffer)
	return testCLI{
		commandLine: &commandLine{
			conf:    conf,
			db:      db,
			svc:     svc,
			mailSvc: mailSvc,
			out:     buf,
		},
		buf:     buf,
		mailSvc: mailSvc,
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func runCLITests(t *testing.T, cli *commandLine, tests []cliTest) {
	t.Helper()
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if !strings.Contains(err.Error(), tt.wantErrStr) {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			} else if tt.wantErr != nil || tt.wantErrStr != "" {
				t.Errorf("cli.run() error = nil, want an error")
			}
		})
	}
}

func Test_commandLine_run(t *testing.T) {
	cli := setup(t)
	runCLITests(t, cli.commandLine, []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErrStr: "unknown command \"lol\""},
		{name: "report without subcommand", args: []string{"report"}, wantErr: errHelp},
		{name: "hide without ids", args: []string{"hide"}, wantErr: errHelp},
		{name: "unhide without ids", args: []string{"unhide"}, wantErr: errHelp},
		{name: "token without email", args: []string{"token"}, wantErr: errHelp},
		{name: "seed with too many args", args: []string{"seed", "a", "b"}, wantErrStr: "accepts at most 1 arg(s)"},
	})
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	orig := gooseRunFunc
	defer func() { gooseRunFunc = orig }()
	gooseRunFunc = func(db *sqlx.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	runCLITests(t, cli.commandLine, []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	})
}

func Test_commandLine_migrate_real(t *testing.T) {
	cli := setup(t)
	// the database is already migrated
	require.NoError(t, cli.run([]string{"admin", "migrate", "version"}))
	require.NoError(t, cli.run([]string{"admin", "migrate", "up"}))
}

func Test_commandLine_seed(t *testing.T) {
	cli := setup(t)

	require.NoError(t, cli.run([]string{"admin", "seed"}))
	assert.Contains(t, cli.buf.String(), "imported 4 stages, 4 extra events, 0 hidden ids")

	stg, err := cli.svc.Stage("stage-1945-1954")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(stg.DomesticEvents), 2)
	assert.Equal(t, "e1", stg.DomesticEvents[0].ID)
	assert.Equal(t, "e2", stg.DomesticEvents[len(stg.DomesticEvents)-1].ID)

	// seeding twice updates in place
	require.NoError(t, cli.run([]string{"admin", "seed"}))
	again, err := cli.svc.Stage("stage-1945-1954")
	require.NoError(t, err)
	assert.Equal(t, stg, again)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stages.yaml"), []byte("- id: stage-2000-2020\n  title: Hội nhập\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hidden.yaml"), []byte("- e1\n"), 0o644))
	cli.buf.Reset()
	require.NoError(t, cli.run([]string{"admin", "seed", dir}))
	assert.Contains(t, cli.buf.String(), "imported 1 stages, 0 extra events, 1 hidden ids")

	_, err = cli.svc.Stage("stage-2000-2020")
	assert.NoError(t, err)
	stg, err = cli.svc.Stage("stage-1945-1954")
	require.NoError(t, err)
	assert.NotEqual(t, "e1", stg.DomesticEvents[0].ID)

	runCLITests(t, cli.commandLine, []cliTest{
		{name: "missing dir", args: []string{"seed", filepath.Join(dir, "missing")}},
	})
}

func Test_commandLine_token(t *testing.T) {
	cli := setup(t)

	runCLITests(t, cli.commandLine, []cliTest{
		{name: "not an admin", args: []string{"token", "--email", "reader@example.com"}, wantErrStr: "not on the admin allow-list"},
	})

	cli.buf.Reset()
	require.NoError(t, cli.run([]string{"admin", "token", "--email", "Admin@LichSu.vn"}))
	raw := strings.TrimSpace(cli.buf.String())

	claims := new(echoapi.Claims)
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(cli.conf.SecretKey), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "admin@lichsu.vn", claims.Email)
	assert.True(t, claims.IsAdmin)
}

func Test_commandLine_hide(t *testing.T) {
	cli := setup(t)
	testutil.SeedFixture(t, cli.svc)
	ctx := context.Background()

	require.NoError(t, cli.run([]string{"admin", "hide", "e1", "w1"}))
	hidden, err := cli.svc.HiddenIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, timeline.NewHiddenSet("e1", "w1"), hidden)

	stg, err := cli.svc.Stage("stage-1945-1954")
	require.NoError(t, err)
	assert.Empty(t, stg.WorldEvents)

	require.NoError(t, cli.run([]string{"admin", "unhide", "w1"}))
	hidden, err = cli.svc.HiddenIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, timeline.NewHiddenSet("e1"), hidden)
}

func Test_commandLine_reportOrphans(t *testing.T) {
	cli := setup(t)
	testutil.SeedFixture(t, cli.svc)

	orig := isTerminalFunc
	defer func() { isTerminalFunc = orig }()

	isTerminalFunc = func() bool { return false }
	require.NoError(t, cli.run([]string{"admin", "report", "orphans"}))
	var orphans []timeline.ExtraEvent
	require.NoError(t, json.Unmarshal(cli.buf.Bytes(), &orphans))
	require.Len(t, orphans, 1)
	assert.Equal(t, "x-orphan", orphans[0].ID)
	assert.Empty(t, cli.mailSvc.Sent())

	isTerminalFunc = func() bool { return true }
	cli.buf.Reset()
	require.NoError(t, cli.run([]string{"admin", "report", "orphans", "--notify"}))
	assert.Contains(t, cli.buf.String(), "STAGE")
	assert.Contains(t, cli.buf.String(), "stage-1930-1945")
	assert.Len(t, cli.mailSvc.Sent(), 1)
}

func Test_commandLine_reportDuplicates(t *testing.T) {
	cli := setup(t)
	testutil.SeedFixture(t, cli.svc)
	_, err := cli.svc.AppendEvent(context.Background(), "stage-1945-1954", timeline.NewEvent{
		Title: "Toàn quốc kháng chiến!", Year: "20/12/1946", Category: timeline.Domestic,
	})
	require.NoError(t, err)

	orig := isTerminalFunc
	defer func() { isTerminalFunc = orig }()
	isTerminalFunc = func() bool { return false }

	runCLITests(t, cli.commandLine, []cliTest{
		{name: "threshold too high", args: []string{"report", "duplicates", "--threshold", "1.5"}, wantErrStr: "threshold"},
		{name: "threshold not a number", args: []string{"report", "duplicates", "--threshold", "lol"}, wantErrStr: "invalid argument"},
	})

	cli.buf.Reset()
	require.NoError(t, cli.run([]string{"admin", "report", "duplicates"}))
	var pairs []timeline.DuplicatePair
	require.NoError(t, json.Unmarshal(cli.buf.Bytes(), &pairs))
	require.Len(t, pairs, 1)
	assert.Equal(t, "e3", pairs[0].First.ID)
	assert.Equal(t, "stage-1945-1954", pairs[0].StageID)
}
