package crypto

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = bcrypt.DefaultCost

// HashPassword 生成 bcrypt 哈希（长度 60 以内，适配 varchar(64)）
func HashPassword(pwd string) (string, error) {
	bs, err := bcrypt.GenerateFromPassword([]byte(pwd), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(bs), nil
}

// VerifyPassword 校验 bcrypt 哈希（$2a$ / $2b$ / $2y$ 开头）
func VerifyPassword(plain, stored string) bool {
	if !strings.HasPrefix(stored, "$2") {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(plain)) == nil
}
