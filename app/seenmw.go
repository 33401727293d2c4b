// app/seenmw.go
package app

import (
	"time"

	"library-lending/db"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// TouchLastSeen 节流更新 last_seen_at，SetNX 限制写库频率.
func TouchLastSeen(repo *db.Repo, rdb *redis.Client, throttle time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := CurrentUser(c)
		if u == nil {
			c.Next()
			return
		}

		key := "user:lastseen:" + u.ID
		if ok, _ := rdb.SetNX(c.Request.Context(), key, "1", throttle).Result(); ok {
			_ = repo.TouchUserSeen(c.Request.Context(), u.ID) // 忽略错误，不阻塞请求
		}
		c.Next()
	}
}
