package server

import (
	"database/sql"
	"io"

	"go.uber.org/zap"

	"github.com/teranos/taxa/am"
	"github.com/teranos/taxa/dataset"
	"github.com/teranos/taxa/db"
	"github.com/teranos/taxa/errors"
	"github.com/teranos/taxa/logger"
	"github.com/teranos/taxa/storage/badgerstore"
	"github.com/teranos/taxa/storage/cache"
	"github.com/teranos/taxa/storage/memstore"
	"github.com/teranos/taxa/storage/sqlitestore"
	"github.com/teranos/taxa/taxonomy"
)

// NewFromConfig opens every backend cfg names, registers its namespaces and
// returns a server over them. The server owns the opened backends; Stop
// closes them.
func NewFromConfig(cfg *am.Config, log *zap.SugaredLogger) (*Server, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	b := &backends{cfg: cfg, logger: log, datasets: make(map[string]*dataset.Dataset)}

	registry, err := b.registry()
	if err != nil {
		b.close()
		return nil, err
	}

	engine := taxonomy.NewEngine(registry, taxonomy.Options{
		DefaultLimit: cfg.Search.DefaultLimit,
		MaxLimit:     cfg.Search.MaxLimit,
	}, log.Named("engine"))
	resolver := taxonomy.NewResolver(registry, log.Named("resolver"))

	s := New(engine, resolver, Options{
		Service:           cfg.GetService(),
		AllowedOrigins:    cfg.GetServerAllowedOrigins(),
		RequestsPerSecond: cfg.Server.RequestsPerSecond,
		Burst:             cfg.Server.Burst,
	}, log)
	s.closers = b.closers
	return s, nil
}

// backends opens each storage backend at most once while namespaces are built.
type backends struct {
	cfg      *am.Config
	logger   *zap.SugaredLogger
	sqlDB    *sql.DB
	badgerDB *badgerstore.DB
	datasets map[string]*dataset.Dataset // memory backend files by path
	closers  []io.Closer
}

func (b *backends) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i].Close(); err != nil {
			b.logger.Warnw("Failed to close backend", logger.FieldError, err)
		}
	}
	b.closers = nil
}

func (b *backends) registry() (*taxonomy.Registry, error) {
	namespaces := make([]*taxonomy.Namespace, 0, len(b.cfg.Namespaces))
	for _, nc := range b.cfg.Namespaces {
		ns, err := b.namespace(nc)
		if err != nil {
			return nil, errors.Wrapf(err, "namespace %q", nc.ID)
		}
		namespaces = append(namespaces, ns)
		b.logger.Infow("Registered namespace",
			logger.FieldNamespace, nc.ID,
			logger.FieldBackend, nc.Backend,
			"cache_size", nc.CacheSize,
			"associations", nc.Associations,
		)
	}
	return taxonomy.NewRegistry(namespaces...)
}

// namespaceStore is what every backend provides for one namespace.
type namespaceStore interface {
	taxonomy.GraphStore
	taxonomy.SearchIndex
	taxonomy.AssociationIndex
}

func (b *backends) namespace(nc am.NamespaceConfig) (*taxonomy.Namespace, error) {
	release, err := taxonomy.ParseRelease(nc.Release)
	if err != nil {
		return nil, err
	}

	var store namespaceStore
	var objects taxonomy.ObjectSource
	switch nc.Backend {
	case am.BackendSQLite:
		conn, err := b.sqlite()
		if err != nil {
			return nil, err
		}
		s := sqlitestore.New(conn, nc.ID)
		store, objects = s, s
	case am.BackendBadger:
		kv, err := b.badger()
		if err != nil {
			return nil, err
		}
		s := kv.Namespace(nc.ID)
		store, objects = s, s
	case am.BackendMemory:
		d, err := b.dataset(nc.Dataset)
		if err != nil {
			return nil, err
		}
		s, err := memstore.FromDataset(d, nc.ID)
		if err != nil {
			return nil, err
		}
		objs, err := memstore.ObjectsFromDataset(d)
		if err != nil {
			return nil, err
		}
		store, objects = s, objs
	default:
		return nil, errors.Newf("unknown backend %q", nc.Backend)
	}

	ns := &taxonomy.Namespace{
		ID:         nc.ID,
		NameField:  nc.NameField,
		HasRank:    nc.HasRank,
		HasStrains: nc.HasStrains,
		Release:    release,
		Graph:      store,
		Search:     store,
	}
	if nc.CacheSize > 0 {
		cached, err := cache.NewGraph(store, nc.CacheSize)
		if err != nil {
			return nil, err
		}
		ns.Graph = cached
	}
	if nc.Associations {
		ns.Associations = store
		ns.Objects = objects
	}
	return ns, nil
}

func (b *backends) sqlite() (*sql.DB, error) {
	if b.sqlDB != nil {
		return b.sqlDB, nil
	}
	conn, err := db.OpenWithMigrations(b.cfg.GetDatabasePath(), b.logger)
	if err != nil {
		return nil, err
	}
	b.sqlDB = conn
	b.closers = append(b.closers, conn)
	return conn, nil
}

func (b *backends) badger() (*badgerstore.DB, error) {
	if b.badgerDB != nil {
		return b.badgerDB, nil
	}
	kv, err := badgerstore.Open(badgerstore.Options{Dir: b.cfg.Database.BadgerDir, Logger: b.logger.Named("badger")})
	if err != nil {
		return nil, err
	}
	b.badgerDB = kv
	b.closers = append(b.closers, kv)
	return kv, nil
}

func (b *backends) dataset(path string) (*dataset.Dataset, error) {
	if d, ok := b.datasets[path]; ok {
		return d, nil
	}
	d, err := dataset.Load(path)
	if err != nil {
		return nil, err
	}
	b.datasets[path] = d
	return d, nil
}
