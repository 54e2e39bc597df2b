package main

import (
	"log"
	"os"

	"github.com/classoptima/backend/core"
	"github.com/classoptima/backend/storage/database"
	"github.com/classoptima/backend/storage/database/postgres"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()

	// set up DB
	errAndDie(database.CreateIfNotExist(conf))
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()
	errAndDie(db.Ping())

	wrapped := database.Wrap(db)

	// start CLI
	cli := commandLine{
		db:       db,
		usrRepo:  postgres.NewUserRepository(wrapped),
		roleRepo: postgres.NewRoleRepository(wrapped),
		menuRepo: postgres.NewMenuRepository(wrapped),
		permRepo: postgres.NewPermissionRepository(wrapped),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
