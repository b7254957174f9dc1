package utils

import "strings"

// RemoveEmptyStrings trims each element and drops the blank ones.
func RemoveEmptyStrings(slice []string) []string {
	var result []string

	for _, s := range slice {
		if s = strings.TrimSpace(s); s != "" {
			result = append(result, s)
		}
	}

	return result
}
