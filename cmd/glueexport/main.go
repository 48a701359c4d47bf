package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danthegoodman1/glueexport"
	"github.com/danthegoodman1/glueexport/crdb"
	"github.com/danthegoodman1/glueexport/gologger"
	"github.com/danthegoodman1/glueexport/http_server"
	"github.com/danthegoodman1/glueexport/metastore"
	"github.com/danthegoodman1/glueexport/migrations"
	"github.com/danthegoodman1/glueexport/utils"
)

var logger = gologger.NewLogger()

func main() {
	logger.Debug().Msg("starting glue export api")

	var opts []glueexport.Option
	var meta metastore.MetaStore
	if utils.CRDB_DSN != "" {
		pool, err := crdb.ConnectToDB(context.Background(), utils.CRDB_DSN)
		if err != nil {
			logger.Error().Err(err).Msg("error connecting to CRDB")
			os.Exit(1)
		}

		if utils.GetEnvOrDefault("RUN_MIGRATIONS", "") == "1" {
			_, err = migrations.RunMigrations(utils.CRDB_DSN)
		} else {
			err = migrations.CheckMigrations(utils.CRDB_DSN)
		}
		if err != nil {
			logger.Error().Err(err).Msg("Error checking migrations")
			os.Exit(1)
		}

		meta = metastore.NewCRDBMetaStore(pool)
		opts = append(opts, glueexport.WithMetaStore(meta))
	} else {
		logger.Warn().Msg("CRDB_DSN not set, exports are not recorded and can not be reconciled")
	}

	httpServer := http_server.StartHTTPServer(glueexport.New(opts...))

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	logger.Warn().Msg("received shutdown signal!")

	// For AWS ALB needing some time to de-register pod
	sleepTime := utils.GetEnvOrDefaultInt("SHUTDOWN_SLEEP_SEC", 0)
	logger.Info().Msg(fmt.Sprintf("sleeping for %ds before exiting", sleepTime))

	time.Sleep(time.Second * time.Duration(sleepTime))
	logger.Info().Msg(fmt.Sprintf("slept for %ds, exiting", sleepTime))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown HTTP server")
	} else {
		logger.Info().Msg("successfully shutdown HTTP server")
	}
	if meta != nil {
		if err := meta.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown metastore")
		}
	}
}
