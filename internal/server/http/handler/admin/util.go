package admin

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

func qInt(c *gin.Context, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	if i, err := strconv.Atoi(v); err == nil {
		return i
	}
	return def
}

func qInt64(c *gin.Context, key string) int64 {
	v := c.Query(key)
	if v == "" {
		return 0
	}
	i, _ := strconv.ParseInt(v, 10, 64)
	return i
}

func pageLimit(c *gin.Context) (int, int) { return qInt(c, "page", 1), qInt(c, "limit", 20) }
