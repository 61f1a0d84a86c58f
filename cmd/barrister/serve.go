package main

import (
	"net/http"

	"github.com/danielgtaylor/barrister"
	"github.com/danielgtaylor/barrister/adapters/barristerchi"
	"github.com/danielgtaylor/barrister/barristercli"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	// Serve CBOR alongside JSON.
	_ "github.com/danielgtaylor/barrister/formats/cbor"
)

// newHandler loads the IDL and returns a router serving it. No handlers are
// bound, so only `barrister-idl` succeeds; every other call is answered with
// a server error. This is enough for clients to fetch and validate against
// the contract.
func newHandler(opts *Options) (http.Handler, *zap.Logger, error) {
	logger, err := barristercli.NewLogger(opts.Debug)
	if err != nil {
		return nil, nil, err
	}

	contract, err := barrister.LoadContract(opts.IDL)
	if err != nil {
		return nil, nil, err
	}

	server := barrister.NewServer(contract,
		barrister.WithLogger(logger),
		barrister.WithMaxBodyBytes(opts.MaxBody),
		barrister.WithMiddleware(barristercli.LogCalls(logger)),
	)

	r := chi.NewMux()
	r.Use(barristercli.LogRequests(logger))
	barristerchi.Mount(r, opts.Path, server)
	return r, logger, nil
}
