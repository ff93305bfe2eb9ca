package xhttp

import (
	"fmt"

	"github.com/arxiv/canonical-go/pkg/appinfo"
)

// UserAgent returns the User-Agent header value outbound requests
// identify themselves with.
func UserAgent() string {
	return fmt.Sprintf("canon/%s", appinfo.ShortVersion())
}
