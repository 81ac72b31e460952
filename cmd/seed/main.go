// Command seed creates the default administrator account.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"github.com/navatransportes/nava-fleet/config"
	"github.com/navatransportes/nava-fleet/internal/adapter/postgres"
	"github.com/navatransportes/nava-fleet/internal/domain/models"
	"github.com/navatransportes/nava-fleet/internal/domain/types"
	"github.com/navatransportes/nava-fleet/pkg/configparser"
	"github.com/navatransportes/nava-fleet/pkg/logger"
	"github.com/navatransportes/nava-fleet/pkg/passhash"
	postgresclient "github.com/navatransportes/nava-fleet/pkg/postgres"
)

var (
	configPath = flag.String("config-path", "config.yaml", "Path to the config yaml file")
	name       = flag.String("name", "Administrador", "Name of the admin account")
	email      = flag.String("email", "admin@admin.com", "Email of the admin account")
	password   = flag.String("password", "admin", "Password of the admin account, change it after the first login")
)

func main() {
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log := logger.InitLogger("seed", logger.LevelInfo)

	// the mode flag is not needed here, only the database section
	var cfg config.Config
	if err := configparser.LoadAndParseYaml(*configPath, &cfg); err != nil {
		log.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	db, err := postgresclient.New(ctx, cfg.Database)
	if err != nil {
		log.Error(ctx, "failed to connect to postgres", err)
		os.Exit(1)
	}
	defer db.Pool.Close()

	if err := seedAdmin(ctx, postgres.NewUserRepo(db.Pool), cfg.Auth.BcryptCost); err != nil {
		log.Error(ctx, "failed to seed admin", err)
		os.Exit(1)
	}
	log.Info(ctx, "admin account ready", "email", *email)
}

func seedAdmin(ctx context.Context, users *postgres.UserRepo, cost int) error {
	hash, err := passhash.HashPassword(*password, cost)
	if err != nil {
		return err
	}

	admin := &models.User{
		Name:         *name,
		Email:        *email,
		Role:         types.RoleAdmin,
		Active:       true,
		PasswordHash: hash,
	}

	err = users.Create(ctx, admin)
	if errors.Is(err, types.ErrEmailAlreadyTaken) {
		return nil
	}
	return err
}
