package utils

import "os"

var (
	CRDB_DSN = os.Getenv("CRDB_DSN")

	AWS_ACCESS_KEY_ID     = os.Getenv("AWS_ACCESS_KEY_ID")
	AWS_SECRET_ACCESS_KEY = os.Getenv("AWS_SECRET_ACCESS_KEY")
	AWS_PROFILE           = os.Getenv("AWS_PROFILE")
	AWS_DEFAULT_REGION    = GetEnvOrDefault("AWS_DEFAULT_REGION", "us-east-1")

	S3_ENDPOINT = os.Getenv("S3_ENDPOINT")

	QUERY_MAX_WAIT_SEC    = GetEnvOrDefaultInt("QUERY_MAX_WAIT_SEC", 300)
	QUERY_POLL_INITIAL_MS = GetEnvOrDefaultInt("QUERY_POLL_INITIAL_MS", 200)
	QUERY_POLL_MAX_MS     = GetEnvOrDefaultInt("QUERY_POLL_MAX_MS", 5000)
)
