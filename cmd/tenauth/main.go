package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/tenauth/internal/access"
	"github.com/dropDatabas3/tenauth/internal/auth"
	"github.com/dropDatabas3/tenauth/internal/cache"
	"github.com/dropDatabas3/tenauth/internal/config"
	"github.com/dropDatabas3/tenauth/internal/domain"
	"github.com/dropDatabas3/tenauth/internal/metrics"
	"github.com/dropDatabas3/tenauth/internal/observability/logger"
	"github.com/dropDatabas3/tenauth/internal/query"
	"github.com/dropDatabas3/tenauth/internal/security/hash"
	"github.com/dropDatabas3/tenauth/internal/security/token"
	"github.com/dropDatabas3/tenauth/internal/store"
	"github.com/dropDatabas3/tenauth/internal/tenancy"
)

// app agrupa el wiring completo del servicio para los comandos.
type app struct {
	cfg         *config.Config
	cache       cache.Client
	catalog     *tenancy.Catalog
	coordinator *auth.Coordinator
	reporter    *auth.Reporter
}

func buildApp(cfgPath string) (*app, error) {
	_ = godotenv.Load() // .env opcional

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level, ServiceName: "tenauth"})

	cacheCfg := cache.Config{Driver: cfg.Cache.Driver, DefaultTTL: cfg.CacheDefaultTTL()}
	cacheCfg.Redis.Addr = cfg.Cache.Redis.Addr
	cacheCfg.Redis.Password = cfg.Cache.Redis.Password
	cacheCfg.Redis.DB = cfg.Cache.Redis.DB
	cacheCfg.Redis.Prefix = cfg.Cache.Redis.Prefix
	cacheClient, err := cache.New(cacheCfg)
	if err != nil {
		return nil, err
	}

	users := newRepository[domain.User](cfg, "users")
	credentials := newRepository[domain.Credential](cfg, "credentials")
	rankings := newRepository[domain.Ranking](cfg, "rankings")
	roles := newRepository[domain.Role](cfg, "roles")
	dominions := newRepository[domain.Dominion](cfg, "dominions")

	var hasher hash.Service
	switch cfg.Hash.Algorithm {
	case "plain":
		hasher = hash.Plain{}
	default:
		hasher = hash.NewArgon2()
	}

	accessTokens := token.NewService(cfg.Token.AccessSecret, cfg.AccessTTL(), 0)
	refreshTokens := token.NewService(cfg.Token.RefreshSecret, cfg.RefreshTTL(), cfg.RenewalWindow())

	return &app{
		cfg:     cfg,
		cache:   cacheClient,
		catalog: tenancy.NewCatalog(cfg.Storage.Root, cacheClient),
		coordinator: auth.NewCoordinator(
			users, credentials, hasher,
			access.NewAssembler(rankings, roles, dominions),
			accessTokens, refreshTokens,
		),
		reporter: auth.NewReporter(users, credentials, roles, dominions),
	}, nil
}

func newRepository[T store.Record[T]](cfg *config.Config, collection string) store.Repository[T] {
	if cfg.Storage.Driver == "memory" {
		return store.NewMemoryRepository[T]()
	}
	return store.NewJSONRepository[T](cfg.Storage.Root, collection)
}

// tenantCtx resuelve el slug contra el catálogo y lo mete en el context.
func (a *app) tenantCtx(ctx context.Context, slug string) (context.Context, error) {
	if slug == "" {
		return nil, fmt.Errorf("--tenant is required")
	}
	tenant, err := a.catalog.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return tenancy.WithTenant(ctx, tenant), nil
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func main() {
	var cfgPath, tenantSlug string

	var a *app
	root := &cobra.Command{
		Use:           "tenauth",
		Short:         "Núcleo de identidad multi-tenant",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			a, err = buildApp(cfgPath)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a != nil {
				_ = a.cache.Close()
			}
			_ = logger.Sync()
		},
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", os.Getenv("TENAUTH_CONFIG"), "Ruta del config YAML (env TENAUTH_CONFIG)")
	root.PersistentFlags().StringVar(&tenantSlug, "tenant", "", "Slug del tenant sobre el que operar")

	// grupo tenant
	tenantCmd := &cobra.Command{Use: "tenant", Short: "Administración del catálogo de tenants"}

	var tenantName string
	tenantCreateCmd := &cobra.Command{
		Use:   "create",
		Short: "Crear un tenant nuevo",
		RunE: func(cmd *cobra.Command, args []string) error {
			if tenantName == "" {
				return fmt.Errorf("--name is required")
			}
			tenant, err := a.catalog.Create(cmd.Context(), tenantName)
			if err != nil {
				return err
			}
			printJSON(tenant)
			return nil
		},
	}
	tenantCreateCmd.Flags().StringVar(&tenantName, "name", "", "Nombre del tenant (el slug se deriva)")

	tenantListCmd := &cobra.Command{
		Use:   "list",
		Short: "Listar tenants registrados",
		RunE: func(cmd *cobra.Command, args []string) error {
			tenants, err := a.catalog.List(cmd.Context())
			if err != nil {
				return err
			}
			printJSON(tenants)
			return nil
		},
	}
	tenantCmd.AddCommand(tenantCreateCmd, tenantListCmd)

	// register
	var reg auth.Registration
	registerCmd := &cobra.Command{
		Use:   "register",
		Short: "Registrar una cuenta en el tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := a.tenantCtx(cmd.Context(), tenantSlug)
			if err != nil {
				return err
			}
			created, err := a.coordinator.Register(ctx, []auth.Registration{reg})
			if err != nil {
				return err
			}
			printJSON(created[0])
			return nil
		},
	}
	registerCmd.Flags().StringVar(&reg.Username, "username", "", "Username (sin '@')")
	registerCmd.Flags().StringVar(&reg.Email, "email", "", "Email")
	registerCmd.Flags().StringVar(&reg.Password, "password", "", "Password")
	registerCmd.Flags().StringVar(&reg.Name, "name", "", "Nombre completo (opcional)")
	registerCmd.Flags().StringVar(&reg.Gender, "gender", "", "Género (opcional)")

	// login
	var identifier, password, client string
	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "Autenticar por username o email",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := a.tenantCtx(cmd.Context(), tenantSlug)
			if err != nil {
				return err
			}
			pair, err := a.coordinator.Authenticate(ctx, identifier, password, client)
			if err != nil {
				return err
			}
			printJSON(pair)
			return nil
		},
	}
	loginCmd.Flags().StringVar(&identifier, "identifier", "", "Username o email")
	loginCmd.Flags().StringVar(&password, "password", "", "Password")
	loginCmd.Flags().StringVar(&client, "client", "cli", "Client que origina la sesión")

	// refresh
	var refreshToken string
	refreshCmd := &cobra.Command{
		Use:   "refresh",
		Short: "Intercambiar un refresh token por un access token nuevo",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := a.tenantCtx(cmd.Context(), tenantSlug)
			if err != nil {
				return err
			}
			pair, err := a.coordinator.RefreshAuthenticate(ctx, refreshToken)
			if err != nil {
				return err
			}
			printJSON(pair)
			return nil
		},
	}
	refreshCmd.Flags().StringVar(&refreshToken, "token", "", "Refresh token vigente")

	// deregister
	var userID string
	deregisterCmd := &cobra.Command{
		Use:   "deregister",
		Short: "Eliminar una cuenta y sus credenciales",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := a.tenantCtx(cmd.Context(), tenantSlug)
			if err != nil {
				return err
			}
			removed, err := a.coordinator.Deregister(ctx, userID)
			if err != nil {
				return err
			}
			printJSON(map[string]bool{"removed": removed})
			return nil
		},
	}
	deregisterCmd.Flags().StringVar(&userID, "id", "", "Id del usuario")

	// users: listado vía reporter
	var usersLimit, usersOffset int
	usersCmd := &cobra.Command{
		Use:   "users",
		Short: "Listar usuarios del tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := a.tenantCtx(cmd.Context(), tenantSlug)
			if err != nil {
				return err
			}
			users, err := a.reporter.SearchUsers(ctx, query.Domain{},
				store.WithLimit(usersLimit), store.WithOffset(usersOffset))
			if err != nil {
				return err
			}
			printJSON(users)
			return nil
		},
	}
	usersCmd.Flags().IntVar(&usersLimit, "limit", -1, "Máximo de resultados (-1 = sin límite)")
	usersCmd.Flags().IntVar(&usersOffset, "offset", 0, "Resultados a saltar")

	// serve-metrics
	serveMetricsCmd := &cobra.Command{
		Use:   "serve-metrics",
		Short: "Servir /metrics y /healthz hasta recibir señal",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := metrics.Register(nil); err != nil {
				return err
			}
			srv := metrics.NewServer(a.cfg.Metrics.Addr)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errc := make(chan error, 1)
			go func() { errc <- srv.Start() }()

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
				return srv.Shutdown(context.Background())
			}
		},
	}

	root.AddCommand(tenantCmd, registerCmd, loginCmd, refreshCmd, deregisterCmd, usersCmd, serveMetricsCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
