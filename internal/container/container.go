package container

import (
	"context"

	"cloud.google.com/go/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/los-rm-provisioner/config"
	"github.com/oksasatya/los-rm-provisioner/internal/application"
	repo "github.com/oksasatya/los-rm-provisioner/internal/domain/repository"
	"github.com/oksasatya/los-rm-provisioner/internal/infrastructure/keycloak"
	pginfra "github.com/oksasatya/los-rm-provisioner/internal/infrastructure/postgres"
	"github.com/oksasatya/los-rm-provisioner/internal/infrastructure/psql"
	"github.com/oksasatya/los-rm-provisioner/internal/infrastructure/reporting"
	"github.com/oksasatya/los-rm-provisioner/pkg/helpers"
)

// Container holds the components of one provisioning process.
// Optional backends stay nil when unconfigured. Nothing here opens a connection;
// clients dial on first use, after the admin token has been obtained.
type Container struct {
	Config   *config.Config
	Logger   *logrus.Logger
	Keycloak *keycloak.Client
	Apps     repo.ApplicationRepository

	Redis     *redis.Client
	ES        *elasticsearch.Client
	Archive   *reporting.ArchiveSink
	RabbitPub *helpers.LazyRabbitPublisher

	closers []func()
}

// New wires the identity provider, the application store picked by DB_DRIVER and
// every report backend that is configured. Client init failures are logged and skipped.
func New(_ context.Context, cfg *config.Config, logger *logrus.Logger) *Container {
	c := &Container{Config: cfg, Logger: logger}
	c.Keycloak = keycloak.NewClient(cfg.KeycloakURL, cfg.KeycloakRealm, cfg.KeycloakAdminRealm, cfg.KeycloakClientID, cfg.KeycloakTimeout)
	c.Apps = c.buildApps()
	c.initRedis()
	c.initES()
	c.initArchive()
	c.initRabbit()
	return c
}

func (c *Container) buildApps() repo.ApplicationRepository {
	cfg := c.Config
	if cfg.DBDriver == "pgx" {
		r := pginfra.NewApplicationRepository(pginfra.PoolConfig{
			DSN:         cfg.PostgresDSN(),
			AppName:     cfg.AppName,
			MaxConns:    cfg.DBMaxConns,
			MaxConnLife: cfg.DBMaxConnLife,
		})
		c.closers = append(c.closers, r.Close)
		return r
	}
	return psql.NewApplicationRepository(psql.ExecRunner{}, cfg.DBContainer, cfg.DBUser, cfg.DBName)
}

func (c *Container) initRedis() {
	if c.Config.RedisAddr == "" {
		return
	}
	rdb := helpers.NewRedisClient(c.Config.RedisAddr, c.Config.RedisPassword, c.Config.RedisDB)
	c.Redis = rdb
	c.closers = append(c.closers, func() { _ = rdb.Close() })
}

func (c *Container) initES() {
	addrs := c.Config.ESAddrs()
	if len(addrs) == 0 {
		return
	}
	es, err := helpers.NewESClient(addrs, c.Config.ElasticsearchUser, c.Config.ElasticsearchPass)
	if err != nil {
		helpers.LogWarn(c.Logger, "elasticsearch client init failed; report indexing disabled", err, nil)
		return
	}
	c.ES = es
}

func (c *Container) initArchive() {
	bucket, creds := c.Config.GCSBucket, c.Config.GCSCredentialsJSONPath
	if bucket == "" {
		return
	}
	open := func(ctx context.Context) (*storage.Client, error) { return helpers.NewGCSClient(ctx, creds) }
	c.Archive = reporting.NewArchiveSink(open, bucket, c.Logger.WithField("bucket", bucket))
	c.closers = append(c.closers, c.Archive.Close)
}

func (c *Container) initRabbit() {
	if c.Config.RabbitMQURL == "" || len(c.Config.ReportEmailTo) == 0 {
		return
	}
	pub := helpers.NewLazyRabbitPublisher(c.Config.RabbitMQURL, c.Config.RabbitMQEmailQueue, c.Config.AppName)
	c.RabbitPub = pub
	c.closers = append(c.closers, pub.Close)
}

// Sinks returns the report sinks of every backend that came up.
func (c *Container) Sinks() []application.ReportSink {
	var sinks []application.ReportSink
	if c.Redis != nil {
		sinks = append(sinks, c.redisStore())
	}
	if c.ES != nil {
		sinks = append(sinks, reporting.NewSearchSink(c.ES, c.Config.ESReportsIndex))
	}
	if c.Archive != nil {
		sinks = append(sinks, c.Archive)
	}
	if c.RabbitPub != nil {
		sinks = append(sinks, reporting.NewEmailSink(c.RabbitPub, c.Config.AppName, c.Config.ReportEmailTo))
	}
	return sinks
}

func (c *Container) redisStore() *reporting.RedisStore {
	return reporting.NewRedisStore(c.Redis, c.Config.LockTTL, c.Config.ReportTTL)
}

// Service builds the provisioning service writing progress to console.
func (c *Container) Service(console application.Console) *application.Service {
	svc := application.NewService(c.Keycloak, c.Apps, application.OptionsFromConfig(c.Config), c.Logger, console)
	svc.Sinks = c.Sinks()
	if c.Redis != nil {
		svc.Locker = c.redisStore()
	}
	return svc
}

// Close releases backends in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}
