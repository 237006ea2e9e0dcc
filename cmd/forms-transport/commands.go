package main

import (
	"github.com/upcrm/forms-transport/core"
	"github.com/upcrm/forms-transport/core/config"
	"github.com/upcrm/forms-transport/core/db"
)

// RunCommand starts the HTTP server.
type RunCommand struct {
	Config string `short:"c" long:"config" default:"config.yml" description:"Path to the configuration file"`
}

// Execute the run command.
func (x *RunCommand) Execute(_ []string) error {
	app := core.New(core.AppInfo{
		Version:   version,
		Commit:    commit,
		Build:     build,
		BuildDate: buildDate,
	})
	app.Config = config.NewConfig(x.Config)
	app.Prepare()
	app.UseZabbix(app.MetricsCollectors())

	defer func() {
		_ = app.Logger().Sync()
	}()

	return app.Run()
}

// MigrateCommand migrates the database schema.
type MigrateCommand struct {
	Config   string `short:"c" long:"config" default:"config.yml" description:"Path to the configuration file"`
	Rollback bool   `short:"r" long:"rollback" description:"Rollback all migrations instead of applying them"`
}

// Execute the migrate command.
func (x *MigrateCommand) Execute(_ []string) error {
	conf := config.NewConfig(x.Config)
	orm := db.NewORM(conf.GetDBConfig())
	defer orm.CloseDB()

	migrate := db.Migrations().SetDB(orm.DB)
	if x.Rollback {
		return migrate.Rollback()
	}

	return migrate.Migrate()
}
