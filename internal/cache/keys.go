package cache

import "fmt"

func MetadataKey(fileID int64) string {
	return fmt.Sprintf("metadata:%d", fileID)
}

func RateLimitKey(keyPrefix string) string {
	return fmt.Sprintf("ratelimit:%s", keyPrefix)
}
