package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/moclojer/chrondb"
	"github.com/moclojer/chrondb/broker"
	"github.com/moclojer/chrondb/setup"
)

func main() {
	var (
		dataPath    = flag.String("data", "", "Path for the data repository")
		indexPath   = flag.String("index", "", "Path for the search index")
		branch      = flag.String("branch", "", "Branch name (empty for default)")
		putID       = flag.String("put", "", "Store a document under this id (requires -doc)")
		docText     = flag.String("doc", "", "Document JSON for -put")
		getID       = flag.String("get", "", "Fetch the document with this id")
		deleteID    = flag.String("delete", "", "Delete the document with this id")
		prefix      = flag.String("prefix", "", "List documents whose id starts with this prefix")
		table       = flag.String("table", "", "List documents in this table")
		historyID   = flag.String("history", "", "Show the change history of this id")
		queryText   = flag.String("query", "", "Run a query (JSON, Lucene AST format)")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		verbose     = flag.Bool("v", false, "Verbose logging")
	)
	flag.Parse()

	if *dataPath == "" || *indexPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: chrondb -data <dir> -index <dir> [-branch name] <operation>")
		fmt.Fprintln(os.Stderr, "       chrondb -data <dir> -index <dir> -i  (interactive mode)")
		fmt.Fprintln(os.Stderr, "Operations: -put ID -doc JSON | -get ID | -delete ID | -prefix P | -table T | -history ID | -query JSON")
		os.Exit(1)
	}

	if *verbose {
		logger, err := zap.NewDevelopment()
		if err == nil {
			setup.SetLogger(logger)
			broker.SetLogger(logger)
			defer logger.Sync()
		}
	}

	if *interactive {
		if err := runInteractive(*dataPath, *indexPath, *branch); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*dataPath, *indexPath, *branch, oneShot{
		putID:     *putID,
		docText:   *docText,
		getID:     *getID,
		deleteID:  *deleteID,
		prefix:    *prefix,
		table:     *table,
		historyID: *historyID,
		queryText: *queryText,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type oneShot struct {
	putID     string
	docText   string
	getID     string
	deleteID  string
	prefix    string
	table     string
	historyID string
	queryText string
}

func run(dataPath, indexPath, branch string, op oneShot) error {
	db, err := chrondb.Open(dataPath, indexPath)
	if err != nil {
		return err
	}
	defer db.Close()

	switch {
	case op.putID != "":
		if op.docText == "" {
			return fmt.Errorf("-put requires -doc")
		}
		var doc chrondb.Document
		if err := json.Unmarshal([]byte(op.docText), &doc); err != nil {
			return fmt.Errorf("parse -doc: %w", err)
		}
		stored, err := db.Put(op.putID, doc, branch)
		if err != nil {
			return err
		}
		return print(stored)

	case op.getID != "":
		doc, err := db.Get(op.getID, branch)
		if err != nil {
			return err
		}
		return print(doc)

	case op.deleteID != "":
		if err := db.Delete(op.deleteID, branch); err != nil {
			return err
		}
		fmt.Println("deleted", op.deleteID)
		return nil

	case op.prefix != "":
		docs, err := db.ListByPrefix(op.prefix, branch)
		if err != nil {
			return err
		}
		return print(docs)

	case op.table != "":
		docs, err := db.ListByTable(op.table, branch)
		if err != nil {
			return err
		}
		return print(docs)

	case op.historyID != "":
		entries, err := db.History(op.historyID, branch)
		if err != nil {
			return err
		}
		return print(entries)

	case op.queryText != "":
		var query any
		if err := json.Unmarshal([]byte(op.queryText), &query); err != nil {
			return fmt.Errorf("parse -query: %w", err)
		}
		res, err := db.Query(query, branch)
		if err != nil {
			return err
		}
		return print(res)
	}

	return fmt.Errorf("no operation given")
}

// print writes v as JSON: indented on a terminal, compact when piped.
func print(v any) error {
	enc := json.NewEncoder(os.Stdout)
	if term.IsTerminal(int(os.Stdout.Fd())) {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
