package main

import (
	"fmt"
	"os"

	"breads/command"
	"breads/command/import_openlibrary"
	"breads/command/show"
	"breads/command/version"
	"breads/ingest"

	"github.com/hashicorp/cli"
)

func main() {

	commands := map[string]cli.CommandFactory{
		"version": command.NewCommand(version.NewVersionCommand()),

		"import authors": command.NewCommand(import_openlibrary.NewImportCommand(ingest.Authors)),
		"import works":   command.NewCommand(import_openlibrary.NewImportCommand(ingest.Works)),
		"import all":     command.NewCommand(import_openlibrary.NewImportCommand(ingest.Authors, ingest.Works)),

		"show": command.NewCommand(show.NewShowCommand()),
	}

	cli := &cli.CLI{
		Name:                       "breads",
		Args:                       os.Args[1:],
		Commands:                   commands,
		Autocomplete:               true,
		AutocompleteNoDefaultFlags: false,
	}

	exitCode, err := cli.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error executing CLI: %s\n", err.Error())
	}

	os.Exit(exitCode)
}
