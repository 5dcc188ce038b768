package main

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/dyseo521/baepdoongi-bot-sub000/pkg/engine"
	"github.com/dyseo521/baepdoongi-bot-sub000/pkg/ingest"
)

var jwtSecret []byte // loaded from env JWT_SECRET (fallback to dev default)

func main() {
	cfg := loadConfig()
	jwtSecret = cfg.JWTSecret

	// Support a lightweight migrate command: `./baepdoongi migrate`
	// It runs AutoMigrate and seeding then exits. Useful for CI or manual DB setup.
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		initDB(cfg)
		fmt.Println("migration and seeding completed")
		return
	}

	initDB(cfg)

	// collaborators are constructed once here and passed down; no hidden
	// globals beyond the db handle
	srv := &server{
		eng:    engine.New(newGormStore(db)),
		parser: ingest.NewParser(cfg.AccountKeyword),
		cfg:    cfg,
	}

	r := gin.Default()

	setupRoutes(r, srv)

	r.Run(cfg.Addr)
}
