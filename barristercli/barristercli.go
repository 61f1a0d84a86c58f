// Package barristercli builds command-line entry points for Barrister
// services. Options are declared as a Go struct and filled from flags, then
// `BARRISTER_*` environment variables, then struct tag defaults.
package barristercli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/danielgtaylor/casing"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// EnvPrefix is prepended to option names to find their environment variable,
// e.g. `--max-body` is read from `BARRISTER_MAX_BODY`.
var EnvPrefix = "BARRISTER_"

// CLI is a command-line interface for a Barrister service.
type CLI interface {
	// Run parses flags and environment variables, then runs the selected
	// command. Without a subcommand the `OnStart` hook is run until it
	// returns or the process is interrupted. The process exits with status 1
	// if the command fails.
	Run()

	// Execute is like `Run` but returns the command's error instead of
	// exiting.
	Execute() error

	// Root returns the root Cobra command, for adding commands and flags.
	Root() *cobra.Command
}

// Hooks start and stop the service.
type Hooks interface {
	// OnStart sets the function which runs the service, e.g.
	// `httpServer.ListenAndServe()`.
	OnStart(func())

	// OnStop sets the function which stops the service on SIGINT or SIGTERM,
	// e.g. `httpServer.Shutdown(...)`.
	OnStop(func())
}

type contextKey string

var optionsKey contextKey = "barrister/cli/options"

var durationType = reflect.TypeOf(time.Duration(0))

// WithOptions gives a custom command access to the parsed options.
//
//	cli.Root().AddCommand(&cobra.Command{
//		Use: "check",
//		Run: barristercli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
//			fmt.Println("Checking " + opts.IDL)
//		}),
//	})
func WithOptions[O any](f func(cmd *cobra.Command, args []string, options *O)) func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		f(cmd, args, cmd.Context().Value(optionsKey).(*O))
	}
}

// WithOptionsE is like `WithOptions` for commands which can fail.
func WithOptionsE[O any](f func(cmd *cobra.Command, args []string, options *O) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return f(cmd, args, cmd.Context().Value(optionsKey).(*O))
	}
}

// option binds a flag to a (possibly nested) field of the options struct.
type option struct {
	flag string
	typ  reflect.Type
	path []int
}

type cli[O any] struct {
	root     *cobra.Command
	options  []option
	onParsed func(Hooks, *O)
	start    func()
	stop     func()
}

func (c *cli[O]) Root() *cobra.Command {
	return c.root
}

func (c *cli[O]) OnStart(fn func()) {
	c.start = fn
}

func (c *cli[O]) OnStop(fn func()) {
	c.stop = fn
}

func (c *cli[O]) Run() {
	if err := c.Execute(); err != nil {
		os.Exit(1)
	}
}

func (c *cli[O]) Execute() error {
	var o O

	existing := c.root.PersistentPreRun
	c.root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if err := c.load(&o); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}

		c.onParsed(c, &o)

		if existing != nil {
			existing(cmd, args)
		}

		cmd.SetContext(context.WithValue(cmd.Context(), optionsKey, &o))
	}

	return c.root.Execute()
}

// load copies flag values into the options struct. Environment variables
// were already applied as flag defaults, so flags win over env vars which
// win over tag defaults.
func (c *cli[O]) load(o *O) error {
	flags := c.root.PersistentFlags()
	root := reflect.ValueOf(o).Elem()

	for _, opt := range c.options {
		f := root
		for _, i := range opt.path {
			if f.Kind() == reflect.Ptr {
				if f.IsNil() {
					f.Set(reflect.New(f.Type().Elem()))
				}
				f = f.Elem()
			}
			f = f.Field(i)
		}

		var value any
		var err error
		base := deref(opt.typ)
		switch {
		case base == durationType:
			value, err = flags.GetDuration(opt.flag)
		case base.Kind() == reflect.String:
			value, err = flags.GetString(opt.flag)
		case base.Kind() == reflect.Bool:
			value, err = flags.GetBool(opt.flag)
		default:
			value, err = flags.GetInt64(opt.flag)
		}
		if err != nil {
			return fmt.Errorf("option %s: %w", opt.flag, err)
		}

		v := reflect.ValueOf(value).Convert(base)
		if opt.typ.Kind() == reflect.Ptr {
			ptr := reflect.New(base)
			ptr.Elem().Set(v)
			v = ptr
		}
		f.Set(v)
	}
	return nil
}

func deref(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

// envName returns the environment variable for a flag, e.g. `log.level`
// becomes `BARRISTER_LOG_LEVEL`.
func envName(flag string) string {
	return EnvPrefix + casing.Snake(strings.ReplaceAll(flag, ".", "_"), strings.ToUpper)
}

func (c *cli[O]) register(flags *pflag.FlagSet, field reflect.StructField, path []int, name string) error {
	def := field.Tag.Get("default")
	if v, ok := os.LookupEnv(envName(name)); ok {
		def = v
	}
	short, doc := field.Tag.Get("short"), field.Tag.Get("doc")
	typ := deref(field.Type)

	switch {
	case typ == durationType:
		var d time.Duration
		if def != "" {
			parsed, err := time.ParseDuration(def)
			if err != nil {
				return fmt.Errorf("invalid duration %q: %w", def, err)
			}
			d = parsed
		}
		flags.DurationP(name, short, d, doc)
	case typ.Kind() == reflect.String:
		flags.StringP(name, short, def, doc)
	case typ.Kind() == reflect.Bool:
		var b bool
		if def != "" {
			parsed, err := strconv.ParseBool(def)
			if err != nil {
				return fmt.Errorf("invalid bool %q: %w", def, err)
			}
			b = parsed
		}
		flags.BoolP(name, short, b, doc)
	case typ.Kind() == reflect.Int || typ.Kind() == reflect.Int64:
		var n int64
		if def != "" {
			parsed, err := strconv.ParseInt(def, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid int %q: %w", def, err)
			}
			n = parsed
		}
		flags.Int64P(name, short, n, doc)
	default:
		return fmt.Errorf("unsupported option type %s", field.Type)
	}

	c.options = append(c.options, option{flag: name, typ: field.Type, path: path})
	return nil
}

func (c *cli[O]) setup(t reflect.Type, path []int, prefix string) error {
	flags := c.root.PersistentFlags()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		current := append(append([]int{}, path...), i)
		typ := deref(field.Type)

		if field.Anonymous && typ.Kind() == reflect.Struct {
			// Embedded options compose without a prefix.
			if err := c.setup(typ, current, prefix); err != nil {
				return err
			}
			continue
		}

		name := field.Tag.Get("name")
		if name == "" {
			name = casing.Kebab(field.Name)
		}
		if prefix != "" {
			name = prefix + "." + name
		}

		if typ.Kind() == reflect.Struct && typ != durationType {
			if err := c.setup(typ, current, name); err != nil {
				return err
			}
			continue
		}

		if err := c.register(flags, field, current, name); err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}
	}
	return nil
}

// New creates a CLI. `onParsed` is called once the options struct has been
// filled in and should register `OnStart` and `OnStop` hooks. Supported
// option types are string, bool, int, int64, `time.Duration`, pointers to
// those and nested structs, whose fields become dotted flags like
// `--log.level`. Fields may carry `name`, `short`, `doc` and `default` tags.
//
//	type Options struct {
//		IDL  string `doc:"IDL file to serve" short:"i"`
//		Port int    `doc:"Port to listen on" short:"p" default:"8080"`
//	}
//
//	cli := barristercli.New(func(hooks barristercli.Hooks, opts *Options) {
//		contract, _ := barrister.LoadContract(opts.IDL)
//		server := barrister.NewServer(contract)
//		barristercli.Serve(hooks, fmt.Sprintf(":%d", opts.Port), server)
//	})
//	cli.Run()
func New[O any](onParsed func(Hooks, *O)) CLI {
	c := &cli[O]{
		root:     &cobra.Command{Use: filepath.Base(os.Args[0])},
		onParsed: onParsed,
	}

	var o O
	if err := c.setup(reflect.TypeOf(o), nil, ""); err != nil {
		panic(err)
	}

	c.root.Run = func(cmd *cobra.Command, args []string) {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		done := make(chan struct{}, 1)
		if c.start != nil {
			go func() {
				c.start()
				done <- struct{}{}
			}()
		} else {
			done <- struct{}{}
		}

		select {
		case <-done:
		case <-quit:
			if c.stop != nil {
				fmt.Fprintln(os.Stderr, "Gracefully shutting down the server...")
				c.stop()
			}
		}
	}
	return c
}

// Serve registers hooks which run an HTTP server on `addr` and shut it down
// gracefully, waiting up to `ShutdownTimeout` for in-flight calls.
func Serve(hooks Hooks, addr string, handler http.Handler) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	hooks.OnStart(func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintln(os.Stderr, "listen:", err)
		}
	})

	hooks.OnStop(func() {
		ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})

	return srv
}

// ShutdownTimeout bounds graceful shutdown in `Serve`.
var ShutdownTimeout = 10 * time.Second
