package database

import (
	"fmt"
	"strings"
)

// BuildDatabaseURL joins a base postgres URL with a database name and
// forces sslmode=disable unless the URL already names a mode. An empty
// database name passes the base URL through untouched.
func BuildDatabaseURL(baseURL, databaseName string) string {
	if databaseName == "" {
		return baseURL
	}

	var url string
	base := strings.TrimRight(baseURL, "/")
	if host, query, found := strings.Cut(base, "?"); found {
		url = fmt.Sprintf("%s/%s?%s", host, databaseName, query)
	} else {
		url = fmt.Sprintf("%s/%s", base, databaseName)
	}

	if !strings.Contains(url, "sslmode=") {
		separator := "?"
		if strings.Contains(url, "?") {
			separator = "&"
		}
		url += separator + "sslmode=disable"
	}

	return url
}
