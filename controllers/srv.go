// controllers/srv.go
package controllers

import (
	"library-lending/app"
	"library-lending/db"

	"github.com/redis/go-redis/v9"
)

type Srv struct {
	Repo *db.Repo
	RDB  *redis.Client
	Cfg  app.Config
}

func GetSrv(a *app.App) *Srv {
	return &Srv{
		Repo: db.NewRepo(a.DB),
		RDB:  a.RDB,
		Cfg:  a.Config,
	}
}
