package main

import (
	"context"

	"github.com/mlens/eventpulse/clients"
	"github.com/mlens/eventpulse/config"
	"github.com/mlens/eventpulse/pipeline"
	"github.com/mlens/eventpulse/store"
	. "github.com/mlens/eventpulse/utils"
	"github.com/mlens/eventpulse/utils/dotenv"
	. "github.com/mlens/eventpulse/utils/log"
)

func main() {
	if err := dotenv.LoadDotEnvs(); err != nil {
		Log.Fatal("fail to load env : ", err)
	}

	cfg := config.FromEnv()

	db, err := GetDBConnection()
	if err != nil {
		Log.Fatal("fail to connect database : ", err)
	}
	DatabaseSetupAndMigration(db)

	p := pipeline.New(
		clients.NewXClient(cfg.XApiBearerToken),
		clients.NewGrokClient(cfg.GrokApiKey, cfg.GrokBaseUrl),
		clients.NewMapboxClient(cfg.MapboxGeocodingToken),
		store.NewStore(db),
		cfg.Pipeline,
	)

	// One batch per invocation; scheduling is external (cron or a
	// container job).
	if err := p.Run(context.Background()); err != nil {
		Log.Fatal("batch run failed : ", err)
	}
}
