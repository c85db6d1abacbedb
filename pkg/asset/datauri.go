package asset

import (
	"encoding/base64"
	"net/url"
	"strings"

	"github.com/srunlabs/srun/pkg/srunerr"
)

// decodeDataURL decodes an RFC 2397 data URL body. No third-party data-URL
// library appears anywhere in the corpus, so this is a justified stdlib
// exception (see DESIGN.md) mirroring what the Rust original's data_url
// crate does: split off the "data:" scheme, split the metadata from the
// body at the first comma, and base64-decode the body when the metadata
// ends in ";base64".
func decodeDataURL(raw string) ([]byte, error) {
	const prefix = "data:"
	if !strings.HasPrefix(raw, prefix) {
		return nil, srunerr.New(srunerr.Spec, "asset must start with data or http")
	}
	rest := raw[len(prefix):]

	comma := strings.IndexByte(rest, ',')
	if comma < 0 {
		return nil, srunerr.New(srunerr.Spec, "malformed data URL: missing comma separator")
	}
	meta, body := rest[:comma], rest[comma+1:]

	if strings.HasSuffix(meta, ";base64") {
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return nil, srunerr.Wrap(srunerr.Encoding, err, "decode base64 data URL body")
		}
		return decoded, nil
	}

	unescaped, err := url.QueryUnescape(body)
	if err != nil {
		return nil, srunerr.Wrap(srunerr.Encoding, err, "decode percent-escaped data URL body")
	}
	return []byte(unescaped), nil
}
