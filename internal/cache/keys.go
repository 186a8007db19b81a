package cache

import "strconv"

func TaskKey(id int64) string {
	return "tasks:v1:" + strconv.FormatInt(id, 10)
}

func UserKey(id int64) string {
	return "users:v1:" + strconv.FormatInt(id, 10)
}

func RevokedTokenKey(jti string) string {
	return "auth:revoked:" + jti
}
