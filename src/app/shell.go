package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

const shellHelp = `commands:
  scan                  print every page
  search <key>          find a record
  delete <key>          remove a record
  insert <v1;v2;...>    add a record, one value per field
  load <csv>            insert every row of a CSV file
  export                print every record as JSON
  reorganize            pack the file in key order
  rebuild               rebuild the index from the data file
  schema                print the record schema
  stats                 page and index counters
  help                  this message
  exit                  leave the shell
`

var errQuit = errors.New("quit")

// Shell executes menu commands against a store.
type Shell struct {
	store *Store
	out   io.Writer
}

func NewShell(store *Store, out io.Writer) *Shell {
	return &Shell{store: store, out: out}
}

// Exec runs one command line. Command failures are printed; only exit is
// reported through errQuit.
func (sh *Shell) Exec(line string) error {
	cmd, args, _ := strings.Cut(strings.TrimSpace(line), " ")
	args = strings.TrimSpace(args)

	var err error
	switch strings.ToLower(cmd) {
	case "":
	case "help", "?":
		fmt.Fprint(sh.out, shellHelp)
	case "exit", "quit", "q":
		return errQuit
	case "scan":
		err = sh.store.PrintPages(sh.out)
	case "search":
		err = sh.search(args)
	case "delete":
		err = sh.delete(args)
	case "insert":
		err = sh.insert(args)
	case "load":
		err = sh.load(args)
	case "export":
		_, err = sh.store.Export(sh.out)
	case "reorganize":
		if err = sh.store.File.Reorganize(); err == nil {
			fmt.Fprintln(sh.out, "reorganized")
		}
	case "rebuild":
		if err = sh.store.File.Rebuild(); err == nil {
			fmt.Fprintln(sh.out, "index rebuilt")
		}
	case "schema":
		err = sh.store.PrintSchema(sh.out)
	case "stats":
		sh.store.PrintStats(sh.out)
	default:
		fmt.Fprintf(sh.out, "unknown command %q, type help\n", cmd)
	}

	if err != nil {
		fmt.Fprintf(sh.out, "error: %v\n", err)
	}
	return nil
}

func (sh *Shell) search(args string) error {
	key, err := ParseKey(args)
	if err != nil {
		return err
	}
	found, err := sh.store.File.Search(key)
	if err != nil {
		return err
	}
	if r, ok := found.Get(); ok {
		fmt.Fprintln(sh.out, sh.store.Format(r))
	} else {
		fmt.Fprintf(sh.out, "record %d not found\n", key)
	}
	return nil
}

func (sh *Shell) delete(args string) error {
	key, err := ParseKey(args)
	if err != nil {
		return err
	}
	deleted, err := sh.store.File.Delete(key)
	if err != nil {
		return err
	}
	if deleted.IsSome() {
		fmt.Fprintf(sh.out, "record %d deleted\n", key)
	} else {
		fmt.Fprintf(sh.out, "record %d not found\n", key)
	}
	return nil
}

func (sh *Shell) insert(args string) error {
	r, err := sh.store.ParseRecord(args)
	if err != nil {
		return err
	}
	if err := sh.store.File.Insert(r); err != nil {
		return err
	}
	fmt.Fprintln(sh.out, "record inserted")
	return nil
}

func (sh *Shell) load(args string) error {
	if args == "" {
		return errors.New("load needs a csv path")
	}
	n, err := sh.store.LoadCSV(args, false)
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "loaded %d records\n", n)
	return nil
}

// Run reads commands from in until exit, end of input or ctx is done.
func (sh *Shell) Run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		fmt.Fprint(sh.out, "isam> ")
		select {
		case <-ctx.Done():
			fmt.Fprintln(sh.out)
			return nil
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(sh.out)
				select {
				case err := <-readErr:
					return err
				default:
					return nil
				}
			}
			if err := sh.Exec(line); errors.Is(err, errQuit) {
				return nil
			}
		}
	}
}

// ShellEntrypoint runs an interactive shell under Run.
type ShellEntrypoint struct {
	EnvPath string
	In      io.Reader
	Out     io.Writer

	store *Store
}

func (e *ShellEntrypoint) Init(_ context.Context) error {
	store, err := OpenStore(e.EnvPath)
	if err != nil {
		return err
	}
	e.store = store
	fmt.Fprint(e.Out, shellHelp)
	return nil
}

func (e *ShellEntrypoint) Run(ctx context.Context) error {
	return NewShell(e.store, e.Out).Run(ctx, e.In)
}

func (e *ShellEntrypoint) Close() error {
	if e.store == nil {
		return nil
	}
	return e.store.Close()
}
