// Command barrister serves, inspects and calls Barrister JSON-RPC contracts.
//
//	barrister serve --idl calc.json --port 8080
//	barrister idl http://localhost:8080/ -o yaml
//	barrister call http://localhost:8080/ Calculator.add 1 2
//	barrister check calc.json
//	barrister validate calc.json Person '{name: Ada, age: 36}'
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/danielgtaylor/barrister/barristercli"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Options are shared by every command. Each can also be set from a config
// file or a `BARRISTER_*` environment variable.
type Options struct {
	Config  string        `doc:"Config file (YAML, TOML or JSON)" short:"c"`
	Debug   bool          `doc:"Enable debug logging"`
	Host    string        `doc:"Hostname to listen on"`
	Port    int           `doc:"Port to listen on" short:"p" default:"8080"`
	IDL     string        `name:"idl" doc:"IDL file to serve" short:"i"`
	Path    string        `doc:"URL path to serve the contract on" default:"/"`
	MaxBody int64         `doc:"Maximum request body size in bytes" default:"1048576"`
	Timeout time.Duration `doc:"Timeout for client calls" default:"30s"`
}

// applyConfig layers a config file under the flags. Explicit flags win, then
// environment variables, then the config file, then defaults.
func applyConfig(flags *pflag.FlagSet, opts *Options) error {
	v := viper.New()
	if err := v.BindPFlags(flags); err != nil {
		return err
	}
	v.SetEnvPrefix("BARRISTER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if opts.Config != "" {
		v.SetConfigFile(opts.Config)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("unable to read config: %w", err)
		}
	}

	opts.Debug = v.GetBool("debug")
	opts.Host = v.GetString("host")
	opts.Port = v.GetInt("port")
	opts.IDL = v.GetString("idl")
	opts.Path = v.GetString("path")
	opts.MaxBody = v.GetInt64("max-body")
	opts.Timeout = v.GetDuration("timeout")
	return nil
}

func newCLI() barristercli.CLI {
	var cli barristercli.CLI
	cli = barristercli.New(func(hooks barristercli.Hooks, opts *Options) {
		fail := func(err error) {
			hooks.OnStart(func() {
				fmt.Fprintln(os.Stderr, "error:", err)
				os.Exit(1)
			})
		}

		if err := applyConfig(cli.Root().PersistentFlags(), opts); err != nil {
			fail(err)
			return
		}

		if opts.IDL == "" {
			fail(fmt.Errorf("an IDL file is required to serve, pass --idl"))
			return
		}

		handler, logger, err := newHandler(opts)
		if err != nil {
			fail(err)
			return
		}

		addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
		logger.Debug("Serving contract", zap.String("addr", addr), zap.String("path", opts.Path))
		barristercli.Serve(hooks, addr, handler)
	})

	root := cli.Root()
	root.Use = "barrister"
	root.Short = "Serve, inspect and call Barrister JSON-RPC contracts"
	root.SilenceUsage = true

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Serve an IDL file over HTTP",
		Args:  cobra.NoArgs,
		Run:   root.Run,
	})
	root.AddCommand(idlCommand(), callCommand(), checkCommand(), validateCommand())

	return cli
}

func main() {
	newCLI().Run()
}
