package main

import (
	"os"

	"github.com/jessevdk/go-flags"
)

// Options for the service command line.
type Options struct{}

var (
	build     string
	commit    string
	buildDate string
	version   = "dev"

	options = Options{}
	parser  = flags.NewParser(&options, flags.Default)
)

func init() {
	if _, err := parser.AddCommand("run",
		"Run the forms transport server.",
		"Run the forms transport server.",
		&RunCommand{},
	); err != nil {
		panic(err.Error())
	}

	if _, err := parser.AddCommand("migrate",
		"Migrate database to the latest version.",
		"Migrate database to the latest version.",
		&MigrateCommand{},
	); err != nil {
		panic(err.Error())
	}
}

func main() {
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		} else {
			os.Exit(1)
		}
	}
}
