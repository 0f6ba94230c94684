// Package cli implements the ecofinds command line: the API server plus an
// in-process client that keeps its signed-in user between invocations.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"ecofinds/internal/app"
	"ecofinds/internal/config"
	"ecofinds/internal/models"
	"ecofinds/internal/session"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// runtime carries what the commands share between PersistentPreRunE and RunE.
type runtime struct {
	v          *viper.Viper
	fs         afero.Fs
	out        io.Writer
	configFile string
	verbose    bool
	jsonOut    bool

	cfg *config.Config
	app *app.App
}

// client is the signed-in side of the CLI: a session holder and the views
// that follow it.
type client struct {
	*app.App
	holder    *session.Holder
	cart      *session.View[[]models.CartItem]
	purchases *session.View[[]models.Purchase]
	listings  *session.View[[]models.Product]
}

// NewRootCommand builds the ecofinds command tree. fs backs uploads and the
// session file; out receives command output.
func NewRootCommand(fs afero.Fs, out io.Writer) *cobra.Command {
	root, _ := newRoot(fs, out)
	return root
}

func newRoot(fs afero.Fs, out io.Writer) (*cobra.Command, *runtime) {
	rt := &runtime{v: config.New(), fs: fs, out: out}

	root := &cobra.Command{
		Use:           "ecofinds",
		Short:         "EcoFinds second-hand marketplace",
		Long:          "EcoFinds runs the marketplace API and lets you browse, sell and buy from the command line.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return rt.load()
		},
	}
	root.SetOut(out)

	pf := root.PersistentFlags()
	pf.StringVar(&rt.configFile, "config", "", "Config file (yaml, json, toml or env)")
	pf.String("backend", "", "Storage backend: memory, redis, postgres, mysql or sqlite")
	pf.String("dsn", "", "Database DSN for relational backends")
	pf.BoolVarP(&rt.verbose, "verbose", "v", false, "Log at debug level")
	pf.BoolVar(&rt.jsonOut, "json", false, "Print results as JSON")
	_ = rt.v.BindPFlag("STORAGE_BACKEND", pf.Lookup("backend"))
	_ = rt.v.BindPFlag("DATABASE_DSN", pf.Lookup("dsn"))

	root.AddCommand(
		newServeCommand(rt),
		newMigrateCommand(rt),
		newSeedCommand(rt),
		newRegisterCommand(rt),
		newLoginCommand(rt),
		newLogoutCommand(rt),
		newWhoamiCommand(rt),
		newProfileCommand(rt),
		newProductsCommand(rt),
		newSellCommand(rt),
		newCartCommand(rt),
		newCheckoutCommand(rt),
		newPurchasesCommand(rt),
	)
	return root, rt
}

// Execute runs the command line against the OS filesystem.
func Execute(ctx context.Context) error {
	root, rt := newRoot(afero.NewOsFs(), os.Stdout)
	err := root.ExecuteContext(ctx)
	if closeErr := rt.close(); closeErr != nil {
		logrus.WithError(closeErr).Warn("Error closing storage")
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

func (rt *runtime) load() error {
	cfg, err := config.Load(rt.v, rt.configFile)
	if err != nil {
		return err
	}
	if rt.verbose {
		cfg.LogLevel = "debug"
	}
	cfg.SetupLogging()
	rt.cfg = cfg
	return nil
}

// open wires storage and services once per invocation.
func (rt *runtime) open(ctx context.Context) (*app.App, error) {
	if rt.app != nil {
		return rt.app, nil
	}
	a, err := app.New(ctx, rt.cfg, rt.fs)
	if err != nil {
		return nil, err
	}
	rt.app = a
	return a, nil
}

func (rt *runtime) close() error {
	if rt.app == nil {
		return nil
	}
	err := rt.app.Close()
	rt.app = nil
	return err
}

// client opens the app and restores the persisted session.
func (rt *runtime) client(ctx context.Context) (*client, error) {
	a, err := rt.open(ctx)
	if err != nil {
		return nil, err
	}
	holder := session.NewHolder(a.Auth, a.SessionStore(clientID()))
	c := &client{
		App:       a,
		holder:    holder,
		cart:      session.NewView[[]models.CartItem](holder, "cart", a.Cart.GetCart),
		purchases: session.NewView[[]models.Purchase](holder, "purchases", a.Cart.ListPurchases),
		listings:  session.NewView[[]models.Product](holder, "listings", a.Catalog.ListMine),
	}
	if err := holder.Restore(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// signedIn is client plus a check that somebody is signed in.
func (rt *runtime) signedIn(ctx context.Context) (*client, error) {
	c, err := rt.client(ctx)
	if err != nil {
		return nil, err
	}
	if c.holder.State() != session.SignedIn {
		return nil, fmt.Errorf("not signed in; run 'ecofinds login' first")
	}
	return c, nil
}

// clientID names this machine's session when it is kept in Redis.
func clientID() string {
	host, err := os.Hostname()
	if err != nil {
		logrus.WithError(err).Debug("Could not read hostname")
		return "local"
	}
	return host
}
