package cache

import (
	"math/rand"
	"time"
)

// nil sentinel：缓存"确认为空"的结果，防穿透。与正常 JSON 值可区分。
const nilSentinel = "__nil__"

func WrapNil(_ bool) string { return nilSentinel }

func IsNilSentinel(v string) bool { return v == nilSentinel }

// JitterTTL 在基础 TTL 上加 0~10% 抖动，避免同批 key 同时过期
func JitterTTL(base time.Duration) time.Duration {
	if base < 10 {
		return base
	}
	j := time.Duration(rand.Int63n(int64(base) / 10))
	return base + j
}
