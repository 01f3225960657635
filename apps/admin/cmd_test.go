package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/admission"
	"github.com/trezcool/shule/core/site"
	"github.com/trezcool/shule/core/user"
	emailsvc "github.com/trezcool/shule/services/email"
	logsvc "github.com/trezcool/shule/services/logger"
	sqlxrepos "github.com/trezcool/shule/storage/database/sqlx"
	testutil "github.com/trezcool/shule/tests"
)

var (
	usrRepo user.Repository
	storage core.Storage
)

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	conf := core.NewTestConfig()
	logger := logsvc.NewNopLogger()
	validate, _ := core.NewValidator()

	// set up DB & repos
	db := testutil.PrepareDB(t)
	usrRepo = sqlxrepos.NewUserRepository(db)
	storage = sqlxrepos.NewSnapshotStorage(db)

	store, err := site.NewStore(site.StoreDeps{Storage: storage, Logger: logger, Validate: validate})
	require.NoError(t, err)
	admissionSvc, err := admission.NewService(admission.Deps{
		Store:   store,
		MailSvc: emailsvc.NewConsoleServiceMock(conf, logger),
		Conf:    conf,
		Logger:  logger,
	})
	require.NoError(t, err)

	// start CLI
	out := new(bytes.Buffer)
	return &commandLine{
		db:           db,
		usrRepo:      usrRepo,
		store:        store,
		sweeper:      site.NewSweeper(store, logger),
		admissionSvc: admissionSvc,
		out:          out,
	}, out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func checkErr(t *testing.T, tt cliTest, err error) {
	t.Helper()
	switch {
	case err == nil:
		if tt.wantErr != nil || tt.wantErrStr != "" {
			t.Errorf("cli.run() error = nil, wantErr %v %s", tt.wantErr, tt.wantErrStr)
		}
	case tt.wantErr != nil:
		if errors.Cause(err) != tt.wantErr {
			t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
		}
	case tt.wantErrStr != "":
		if err.Error() != tt.wantErrStr {
			t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
		}
	default:
		t.Errorf("cli.run() unexpected error = %v", err)
	}
}

// saveSite persists `sc` as another process would.
func saveSite(t *testing.T, sc site.SiteContent) {
	data, err := site.EncodeSnapshot(sc)
	require.NoError(t, err)
	require.NoError(t, storage.Save(context.Background(), site.DefaultStorageKey, data))
}

func Test_commandLine_run(t *testing.T) {
	cli, _ := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	origRunMigrations := runMigrationsFunc
	t.Cleanup(func() { runMigrationsFunc = origRunMigrations })

	runMigrationsFunc = func(db *sqlx.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
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

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
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
		{name: "create", args: []string{"migrate", "create", "notice", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}
}

func mockPassword(t *testing.T, pwd string) {
	origReadPassword := readPasswordFunc
	t.Cleanup(func() { readPasswordFunc = origReadPassword })
	readPasswordFunc = func(fd int) ([]byte, error) {
		if pwd == "" {
			return nil, nil
		}
		return []byte(pwd), nil
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli, out := setup(t)
	ctx := context.Background()

	type extra struct {
		pwd       string
		wantRoles []string
		wantName  string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "no name", args: []string{"adduser", "--email", "admin@school.test"}, extra: extra{pwd: "LolC@t123"}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "--email", "admin@school.test", "--name", "Admin"}, wantErr: errHelp},
		{
			name:  "create admin",
			args:  []string{"adduser", "--email", " Admin@School.test ", "--name", "Admin"},
			extra: extra{pwd: "LolC@t123", wantRoles: []string{user.RoleAdmin}, wantName: "Admin"},
		},
		{
			name:  "promote to owner",
			args:  []string{"adduser", "--email", "admin@school.test", "--name", "Head Master", "--owner"},
			extra: extra{pwd: "N3w-Passw0rd!", wantRoles: user.AdminRoles, wantName: "Head Master"},
		},
	}
	for _, tt := range tests {
		ext, _ := tt.extra.(extra)
		mockPassword(t, ext.pwd)

		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			err := cli.run(append([]string{"admin"}, tt.args...))
			checkErr(t, tt, err)
			if err != nil {
				return
			}

			usr, err := usrRepo.GetUser(ctx, user.GetFilter{Email: "admin@school.test"})
			require.NoError(t, err)
			assert.Equal(t, ext.wantName, usr.Name)
			assert.Equal(t, ext.wantRoles, usr.Roles)
			assert.True(t, usr.IsActive)
			assert.NoError(t, usr.CheckPassword(ext.pwd))
			assert.Contains(t, out.String(), "admin admin@school.test saved")
		})
	}

	users, err := usrRepo.QueryUsers(ctx, nil, nil)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, _ := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "User", "awe@test.cd", "mdr", nil, true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "--email", "lol@test.cd"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "--email", "lol@test.cd"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "--email", usr.Email}, extra: extra{pwd: "lol"}},
		{name: "reset with mixed case email", args: []string{"resetpassword", "--email", "AWE@test.cd"}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		ext, _ := tt.extra.(extra)
		mockPassword(t, ext.pwd)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(append([]string{"admin"}, tt.args...))
			checkErr(t, tt, err)
			if err != nil {
				return
			}

			refreshedUsr, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
			if err != nil {
				t.Fatalf("GetUser() failed, %v", err)
			}
			if bytes.Equal(refreshedUsr.PasswordHash, usr.PasswordHash) {
				t.Error("failed to update new password")
			}
			assert.NoError(t, refreshedUsr.CheckPassword(ext.pwd))
		})
	}
}

func Test_commandLine_sweep(t *testing.T) {
	cli, out := setup(t)

	sc := site.DefaultContent()
	sc.AdmissionInquiries = []site.AdmissionInquiry{
		{ID: "old", StudentName: "A", ClassApplied: "1", FatherName: "B", PrimaryContact: "9876543210", SubmittedDate: "2020-01-01"},
		{ID: "new", StudentName: "C", ClassApplied: "1", FatherName: "D", PrimaryContact: "9876543210", SubmittedDate: "2099-01-01"},
	}
	saveSite(t, sc)

	require.NoError(t, cli.run([]string{"admin", "sweep"}))
	assert.Equal(t, "removed 1 admission inquiries\n", out.String())

	// the sweep was persisted
	raw, err := storage.Load(context.Background(), site.DefaultStorageKey)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"old"`)
	assert.Contains(t, string(raw), `"new"`)
}

func Test_commandLine_export(t *testing.T) {
	cli, out := setup(t)

	t.Run("nothing to export", func(t *testing.T) {
		err := cli.run([]string{"admin", "export", "--out", "-"})
		assert.Equal(t, site.ErrNothingToExport, errors.Cause(err))
	})

	sc := site.DefaultContent()
	sc.AdmissionInquiries = []site.AdmissionInquiry{
		{ID: "a", StudentName: "ASHA", ClassApplied: "5", FatherName: "RAVI", PrimaryContact: "9876543210", SubmittedDate: "2024-01-02"},
	}
	saveSite(t, sc)

	t.Run("stdout", func(t *testing.T) {
		out.Reset()
		require.NoError(t, cli.run([]string{"admin", "export", "--out", "-"}))

		rows, err := csv.NewReader(bytes.NewReader(out.Bytes())).ReadAll()
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, site.ExportColumns, rows[0])
		assert.Equal(t, "ASHA", rows[1][0])
	})

	t.Run("file", func(t *testing.T) {
		out.Reset()
		fp := filepath.Join(t.TempDir(), "inquiries.csv")
		require.NoError(t, cli.run([]string{"admin", "export", "-o", fp}))
		assert.Contains(t, out.String(), "exported 1 admission inquiries")

		data, err := os.ReadFile(fp)
		require.NoError(t, err)
		assert.Contains(t, string(data), "RAVI")
	})
}
