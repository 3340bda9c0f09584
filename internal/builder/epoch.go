// SPDX-License-Identifier: MPL-2.0

package builder

import (
	"strconv"
	"strings"
	"time"
)

// SourceDateEpochEnv is the reproducible-builds variable holding a Unix timestamp.
const SourceDateEpochEnv = "SOURCE_DATE_EPOCH"

// SourceDateEpoch parses a SOURCE_DATE_EPOCH value. An empty value yields the
// zero time, meaning members keep their own modification times. The zip
// format cannot store dates before 1980, so earlier instants are rejected.
func SourceDateEpoch(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	secs, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}, &UsageError{Reason: "invalid " + SourceDateEpochEnv, Err: err}
	}
	t := time.Unix(secs, 0).UTC()
	if t.Year() < 1980 {
		return time.Time{}, &UsageError{Reason: "invalid " + SourceDateEpochEnv + ": zip timestamps start in 1980"}
	}
	return t, nil
}
