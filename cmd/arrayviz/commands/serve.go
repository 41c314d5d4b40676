// cmd/arrayviz/commands/serve.go
package commands

import (
	"context"

	"arrayviz/internal/catalog"
	"arrayviz/internal/server"
)

// ServeCommand runs the WebSocket session server until ctx is cancelled.
func ServeCommand(ctx context.Context, s Streams, args []string) error {
	fs, g := newFlagSet("serve", s)
	addr := fs.String("addr", "", "listen address (default from config)")
	readLimit := fs.Int64("read-limit", 0, "largest accepted request in bytes (default from config)")
	driver := fs.String("driver", "", "catalog database driver (default from config)")
	dsn := fs.String("dsn", "", "catalog data source name (default from config)")
	noCatalog := fs.Bool("no-catalog", false, "serve without a program catalog")
	if err := fs.Parse(args); err != nil {
		return err
	}
	e, err := g.load(fs, s)
	if err != nil {
		return err
	}
	if fs.Changed("addr") {
		e.cfg.Server.Addr = *addr
	}
	if fs.Changed("read-limit") {
		e.cfg.Server.ReadLimit = *readLimit
	}
	applyCatalogFlags(&e, fs.Changed("driver"), *driver, fs.Changed("dsn"), *dsn)

	opts := []server.Option{
		server.WithAddr(e.cfg.Server.Addr),
		server.WithReadLimit(e.cfg.Server.ReadLimit),
		server.WithMachineOptions(e.cfg.MachineOptions(e.logger)...),
		server.WithLogger(e.logger),
	}
	if !*noCatalog {
		store, err := catalog.Open(ctx, e.cfg.Catalog.Driver, e.cfg.Catalog.DSN, catalog.WithLogger(e.logger))
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, server.WithCatalog(store))
	}
	return server.New(opts...).ListenAndServe(ctx)
}
