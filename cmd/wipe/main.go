package main

import (
	"context"
	"database/sql"
	"flag"
	"log"

	"github.com/kkkppp/p2proto/internal/application/services"
	"github.com/kkkppp/p2proto/internal/config"
	"github.com/kkkppp/p2proto/internal/infrastructure/database"
	"github.com/kkkppp/p2proto/internal/infrastructure/persistence"
	"github.com/kkkppp/p2proto/pkg/constants"
	"github.com/kkkppp/p2proto/pkg/query"
)

// wipe drops every table registered in the catalog. With -catalog the
// catalog tables go too, leaving an empty database.
func main() {
	dropCatalog := flag.Bool("catalog", false, "also drop the catalog tables")
	confirm := flag.Bool("yes", false, "confirm the wipe")
	flag.Parse()

	if !*confirm {
		log.Fatal("Refusing to wipe without -yes")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	db, err := database.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer db.Close()

	if err := persistence.MigrateCatalog(ctx, db); err != nil {
		log.Fatalf("Failed to read catalog: %v", err)
	}

	svcMgr := services.NewServiceManager(db, services.Options{})
	tables, err := svcMgr.Tables.ListTables(ctx)
	if err != nil {
		log.Fatalf("Failed to list tables: %v", err)
	}

	names := make([]string, 0, len(tables)+len(constants.CatalogTables()))
	for _, t := range tables {
		names = append(names, t.Name)
	}
	if *dropCatalog {
		names = append(names, constants.CatalogTables()...)
	}

	log.Printf("🧹 Wiping %d tables (%s)", len(names), db.Dialect())

	// FOREIGN_KEY_CHECKS is session state, so everything runs on one connection
	conn, err := db.Conn(ctx)
	if err != nil {
		log.Fatalf("Failed to get connection: %v", err)
	}
	defer conn.Close()

	if db.Dialect() == query.MySQL {
		if _, err := conn.ExecContext(ctx, "SET FOREIGN_KEY_CHECKS = 0"); err != nil {
			log.Fatalf("Failed to disable FK checks: %v", err)
		}
	}

	failed := 0
	for _, name := range names {
		log.Printf("🔥 Dropping table: %s", name)
		if err := dropTable(ctx, conn, db.Dialect(), name); err != nil {
			log.Printf("⚠️  Warning: Failed to drop table %s: %v", name, err)
			failed++
		}
	}

	if !*dropCatalog && failed == 0 {
		if err := clearCatalog(ctx, conn, db.Dialect()); err != nil {
			log.Fatalf("Failed to clear catalog: %v", err)
		}
	}

	if db.Dialect() == query.MySQL {
		if _, err := conn.ExecContext(ctx, "SET FOREIGN_KEY_CHECKS = 1"); err != nil {
			log.Fatalf("Failed to enable FK checks: %v", err)
		}
	}

	log.Println("✅ Database wipe complete")
}

func dropTable(ctx context.Context, conn *sql.Conn, dialect query.Dialect, name string) error {
	stmt := "DROP TABLE IF EXISTS " + dialect.QuoteIdent(name)
	if dialect == query.Postgres {
		stmt += " CASCADE"
	}
	_, err := conn.ExecContext(ctx, stmt)
	return err
}

// clearCatalog empties the catalog rows of the dropped tables, children first
func clearCatalog(ctx context.Context, conn *sql.Conn, dialect query.Dialect) error {
	for _, name := range []string{
		constants.TableFieldMetadata,
		constants.TableMetadata,
		constants.TableComponentHistory,
		constants.TableComponents,
	} {
		if _, err := conn.ExecContext(ctx, "DELETE FROM "+dialect.QuoteIdent(name)); err != nil {
			return err
		}
	}
	return nil
}
