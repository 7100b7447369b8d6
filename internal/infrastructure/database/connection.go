package database

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kkkppp/p2proto/internal/config"
	"github.com/kkkppp/p2proto/pkg/query"
)

// Executor is the statement surface shared by *sql.DB, *sql.Conn and *sql.Tx
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Connection is the pooled database handle together with its SQL dialect.
// sql.DB is already safe for concurrent use, so no extra locking is done here.
type Connection struct {
	db      *sql.DB
	dialect query.Dialect

	gormOnce sync.Once
	gormDB   *gorm.DB
	gormErr  error
}

var tlsOnce sync.Once // the mysql TLS config may only be registered once

// NewConnection wraps an already opened *sql.DB
func NewConnection(db *sql.DB, dialect query.Dialect) *Connection {
	return &Connection{db: db, dialect: dialect}
}

// Open connects to the configured database and checks it with a ping
func Open(ctx context.Context, cfg *config.Config) (*Connection, error) {
	dialect := cfg.Dialect()

	driverName, dsn := driverAndDSN(dialect, cfg)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if dialect == query.SQLite {
		// one writer at a time; also keeps an in-memory database on a single connection
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
		db.SetConnMaxLifetime(cfg.DBConnMaxLifetime)
		db.SetConnMaxIdleTime(3 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("✅ Connected to %s database %s", dialect, cfg.DBName)
	return NewConnection(db, dialect), nil
}

func driverAndDSN(dialect query.Dialect, cfg *config.Config) (string, string) {
	switch dialect {
	case query.MySQL:
		if cfg.DBDSN != "" {
			return "mysql", cfg.DBDSN
		}
		return "mysql", mysqlDSN(cfg)
	case query.SQLite:
		dsn := cfg.DBDSN
		if dsn == "" {
			dsn = cfg.DBName
		}
		return sqlite.DriverName, dsn
	}
	if cfg.DBDSN != "" {
		return "pgx", cfg.DBDSN
	}
	return "pgx", fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName)
}

// mysqlDSN builds a go-sql-driver DSN. Remote hosts (e.g. TiDB Cloud) get TLS.
func mysqlDSN(cfg *config.Config) string {
	mc := mysql.NewConfig()
	mc.User = cfg.DBUser
	mc.Passwd = cfg.DBPassword
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.DBHost, cfg.DBPort)
	mc.DBName = cfg.DBName
	mc.ParseTime = true
	mc.Params = map[string]string{"charset": "utf8mb4"}

	if isRemoteHost(cfg.DBHost) {
		tlsOnce.Do(func() {
			if err := mysql.RegisterTLSConfig("p2proto", &tls.Config{
				MinVersion: tls.VersionTLS12,
				ServerName: cfg.DBHost,
			}); err != nil {
				log.Printf("❌ Failed to register TLS config: %v", err)
			}
		})
		mc.TLSConfig = "p2proto"
	}
	return mc.FormatDSN()
}

func isRemoteHost(host string) bool {
	return host != "" && host != "127.0.0.1" && host != "localhost"
}

// Dialect returns the SQL dialect statements are rendered for
func (c *Connection) Dialect() query.Dialect {
	return c.dialect
}

// DB returns the underlying *sql.DB
func (c *Connection) DB() *sql.DB {
	return c.db
}

// QueryContext executes a query that returns rows
func (c *Connection) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return c.db.QueryContext(ctx, query, args...)
}

// QueryRowContext executes a query that returns at most one row
func (c *Connection) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return c.db.QueryRowContext(ctx, query, args...)
}

// ExecContext executes an INSERT, UPDATE, DELETE or DDL statement
func (c *Connection) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return c.db.ExecContext(ctx, query, args...)
}

// BeginTx starts a new transaction
func (c *Connection) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	return c.db.BeginTx(ctx, opts)
}

// Conn takes a single connection out of the pool; the caller must Close it
func (c *Connection) Conn(ctx context.Context) (*sql.Conn, error) {
	return c.db.Conn(ctx)
}

// Gorm returns a gorm handle sharing this connection's pool. The catalog
// repositories use it; user tables are always accessed through plain SQL.
func (c *Connection) Gorm() (*gorm.DB, error) {
	c.gormOnce.Do(func() {
		var dialector gorm.Dialector
		switch c.dialect {
		case query.MySQL:
			dialector = gormmysql.New(gormmysql.Config{Conn: c.db, SkipInitializeWithVersion: true})
		case query.SQLite:
			dialector = &sqlite.Dialector{Conn: c.db}
		default:
			dialector = postgres.New(postgres.Config{Conn: c.db})
		}
		c.gormDB, c.gormErr = gorm.Open(dialector, &gorm.Config{
			Logger:                 newGormLogger(os.Stdout),
			SkipDefaultTransaction: true,
			DisableAutomaticPing:   true,
		})
		if c.gormErr != nil {
			c.gormErr = fmt.Errorf("failed to open gorm: %w", c.gormErr)
		}
	})
	return c.gormDB, c.gormErr
}

// newGormLogger reports slow queries and errors. Lookups by name miss on
// purpose (duplicate checks), so record-not-found is not logged.
func newGormLogger(w io.Writer) logger.Interface {
	return logger.New(log.New(w, "\r\n", log.LstdFlags), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

// Close closes the pool
func (c *Connection) Close() error {
	return c.db.Close()
}
