// Package main provides the quarryctl CLI tool for inspecting quarry
// databases.
//
// Usage:
//
//	quarryctl --db=<path> <command> [options]
//
// Commands:
//
//	scan            Scan all key-value pairs
//	get <key>       Get value for a key
//	put <key> <val> Put a key-value pair
//	delete <key>    Delete a key
//	info            Print database properties
//	compact         Compact the whole keyspace
//	repair          Attempt to repair a damaged database
//	destroy         Remove the database entirely
package main

import (
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/quarrykv/quarry"
)

var (
	dbPath          = flag.String("db", "", "Path to the database (required)")
	hexOutput       = flag.Bool("hex", false, "Output keys and values in hex format")
	limit           = flag.Int("limit", 0, "Limit number of entries (0 = unlimited)")
	fromKey         = flag.String("from", "", "Start key for scan")
	toKey           = flag.String("to", "", "End key for scan")
	createIfMissing = flag.Bool("create_if_missing", false, "Create database if it doesn't exist")
	library         = flag.String("library", "", "Load a native engine library instead of the embedded engine")
	help            = flag.Bool("help", false, "Print help")
)

func main() {
	flag.Parse()

	if *help || len(flag.Args()) == 0 {
		printUsage()
		return
	}

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "Error: --db flag is required")
		os.Exit(1)
	}

	if *library != "" {
		if err := quarry.UseNativeLibrary(*library); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	command := flag.Arg(0)
	args := flag.Args()[1:]

	var err error
	switch command {
	case "scan":
		err = cmdScan()
	case "get":
		err = cmdGet(args)
	case "put":
		err = cmdPut(args)
	case "delete":
		err = cmdDelete(args)
	case "info":
		err = cmdInfo()
	case "compact":
		err = cmdCompact()
	case "repair":
		err = quarry.RepairDatabase(*dbPath, options())
	case "destroy":
		err = quarry.DestroyDatabase(*dbPath, options())
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("quarryctl - quarry database inspection tool")
	fmt.Println()
	fmt.Println("Usage: quarryctl --db=<path> <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  scan              Scan all key-value pairs")
	fmt.Println("  get <key>         Get value for a key")
	fmt.Println("  put <key> <val>   Put a key-value pair")
	fmt.Println("  delete <key>      Delete a key")
	fmt.Println("  info              Print database properties")
	fmt.Println("  compact           Compact the whole keyspace")
	fmt.Println("  repair            Attempt to repair a damaged database")
	fmt.Println("  destroy           Remove the database entirely")
	fmt.Println()
	fmt.Println("Options:")
	flag.PrintDefaults()
}

func options() *quarry.Options {
	opts := quarry.DefaultOptions()
	opts.CreateIfMissing = *createIfMissing
	return opts
}

func openDB() (*quarry.DB, error) {
	return quarry.Open(*dbPath, options())
}

func format(b []byte) string {
	if *hexOutput {
		return hex.EncodeToString(b)
	}
	return string(b)
}

func parseKey(s string) ([]byte, error) {
	if *hexOutput {
		return hex.DecodeString(s)
	}
	return []byte(s), nil
}

func cmdScan() error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	it, err := db.NewIterator(nil)
	if err != nil {
		return err
	}
	defer it.Close()

	if *fromKey != "" {
		from, err := parseKey(*fromKey)
		if err != nil {
			return err
		}
		it.Seek(from)
	} else {
		it.SeekToFirst()
	}

	var to []byte
	if *toKey != "" {
		if to, err = parseKey(*toKey); err != nil {
			return err
		}
	}

	n := 0
	for ; it.Valid(); it.Next() {
		k, err := it.Key()
		if err != nil {
			return err
		}
		if to != nil && string(k) >= string(to) {
			break
		}
		v, err := it.Value()
		if err != nil {
			return err
		}
		fmt.Printf("%s : %s\n", format(k), format(v))
		n++
		if *limit > 0 && n >= *limit {
			break
		}
	}
	if err := it.Err(); err != nil {
		return err
	}
	fmt.Printf("%d entries\n", n)
	return nil
}

func cmdGet(args []string) error {
	if len(args) != 1 {
		return errors.New("get requires exactly one key argument")
	}
	key, err := parseKey(args[0])
	if err != nil {
		return err
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	v, err := db.Get(nil, key)
	if errors.Is(err, quarry.ErrNotFound) {
		return fmt.Errorf("key %s not found", args[0])
	}
	if err != nil {
		return err
	}
	fmt.Println(format(v))
	return nil
}

func cmdPut(args []string) error {
	if len(args) != 2 {
		return errors.New("put requires key and value arguments")
	}
	key, err := parseKey(args[0])
	if err != nil {
		return err
	}
	val, err := parseKey(args[1])
	if err != nil {
		return err
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()
	return db.Put(&quarry.WriteOptions{Sync: true}, key, val)
}

func cmdDelete(args []string) error {
	if len(args) != 1 {
		return errors.New("delete requires exactly one key argument")
	}
	key, err := parseKey(args[0])
	if err != nil {
		return err
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()
	return db.Delete(&quarry.WriteOptions{Sync: true}, key)
}

func cmdInfo() error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Printf("path: %s\n", db.Path())
	for _, prop := range []string{
		"leveldb.stats",
		"leveldb.approximate-memory-usage",
		"leveldb.num-files-at-level0",
	} {
		if v, ok := db.PropertyValue(prop); ok {
			fmt.Printf("%s: %s\n", prop, v)
		}
	}
	return nil
}

func cmdCompact() error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()
	return db.CompactRange(nil, nil)
}
