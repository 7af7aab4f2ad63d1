// Command jsonlkv-dump opens a jsonlkv database with the default
// Config (taking its lockfile and creating a missing file like any
// other Open) and prints its contents as pretty JSON to stdout. A
// small debugging entry point, not a bindings layer.
package main

import (
	"flag"
	"fmt"
	"os"

	jsonlkv "github.com/jpl-au/jsonlkv"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s <database-path>\n", os.Args[0])
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	path := flag.Arg(0)

	db, err := jsonlkv.Open(path, jsonlkv.Config{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "jsonlkv-dump: open %s: %v\n", path, err)
		os.Exit(1)
	}
	defer db.Close()

	tmp, err := os.CreateTemp("", "jsonlkv-dump-*.json")
	if err != nil {
		fmt.Fprintf(os.Stderr, "jsonlkv-dump: %v\n", err)
		os.Exit(1)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := db.ExportJSON(tmpPath, true); err != nil {
		fmt.Fprintf(os.Stderr, "jsonlkv-dump: export: %v\n", err)
		os.Exit(1)
	}

	body, err := os.ReadFile(tmpPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "jsonlkv-dump: %v\n", err)
		os.Exit(1)
	}
	os.Stdout.Write(body)
	fmt.Println()
}
