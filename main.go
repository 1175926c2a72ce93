package main

import (
	"os"

	"github.com/lukewen/studyblog/config"
	"github.com/lukewen/studyblog/models"
	"github.com/lukewen/studyblog/routes"
	"github.com/lukewen/studyblog/utils"
)

func main() {
	cfg := config.Load()

	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	utils.InitRedis(cfg)

	db := config.InitDatabase(&models.Post{}, &models.Media{})

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		utils.Sugar.Fatalf("failed to create upload directory: %v", err)
	}

	r := routes.SetupRouter(cfg, db)

	utils.Sugar.Infof("starting server on port %s", cfg.AppPort)
	if err := utils.Serve(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
