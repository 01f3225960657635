package main

import (
	"fmt"
	"log"
	"os"

	"github.com/jmoiron/sqlx"
	"go.uber.org/dig"

	dig_container "github.com/trezcool/shule/apps/api/di/dig"
	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/admission"
	"github.com/trezcool/shule/core/site"
	"github.com/trezcool/shule/core/user"
)

type cliParams struct {
	dig.In
	Logger       core.Logger
	DB           *sqlx.DB
	UsrRepo      user.Repository
	Store        *site.Store
	Sweeper      *site.Sweeper
	AdmissionSvc admission.Service
}

func main() {
	c := dig_container.New()

	var exitCode int
	err := c.Invoke(func(p cliParams) {
		defer func() { _ = p.DB.Close() }()

		cli := commandLine{
			db:           p.DB,
			usrRepo:      p.UsrRepo,
			store:        p.Store,
			sweeper:      p.Sweeper,
			admissionSvc: p.AdmissionSvc,
			out:          os.Stdout,
		}
		if err := cli.run(os.Args); err != nil {
			if err != errHelp {
				p.Logger.Error(fmt.Sprintf("admin: %v", err), err)
			}
			exitCode = 1
		}
	})
	if err != nil {
		log.Fatal(err)
	}
	os.Exit(exitCode)
}
