// Package redis implements the driven ports on top of Redis.
package redis

// keyPrefix namespaces every key this service writes
const keyPrefix = "ledgerscan:"

const (
	jobKeyPrefix       = keyPrefix + "job:"
	jobResultKeyPrefix = keyPrefix + "result:"
	jobStatusKeyPrefix = keyPrefix + "jobs:status:"
	lockKeyPrefix      = keyPrefix + "lock:"
)

func lockKey(name string) string {
	return lockKeyPrefix + name
}

// extractionKeyPattern matches the keys written by the extraction cache
const extractionKeyPattern = "ocr:*"
